package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/Spok95/bom-console/internal/infra/backend"
)

var ErrEmptySkillName = errors.New("skill name is required")

type Repo struct{ api *backend.Client }

func NewRepo(api *backend.Client) *Repo { return &Repo{api: api} }

func (r *Repo) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	if err := r.api.GetJSON(ctx, "/suppliers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var out []Warehouse
	if err := r.api.GetJSON(ctx, "/warehouses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListSkills(ctx context.Context) ([]SkillRef, error) {
	var out []SkillRef
	if err := r.api.GetJSON(ctx, "/skills", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSkill заводит навык на бэкенде и возвращает его уже с ID.
func (r *Repo) CreateSkill(ctx context.Context, name string) (SkillRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SkillRef{}, ErrEmptySkillName
	}
	var out SkillRef
	if err := r.api.PostJSON(ctx, "/skills", map[string]string{"name": name}, &out); err != nil {
		return SkillRef{}, err
	}
	if out.Name == "" {
		out.Name = name
	}
	return out, nil
}
