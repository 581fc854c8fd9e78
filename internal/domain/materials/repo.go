package materials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/bom-console/internal/infra/backend"
)

// ValidationError ошибка формы: поле и причина. Запрос на бэкенд не уходит.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var ErrRejected = errors.New("backend rejected material")

type Repo struct{ api *backend.Client }

func NewRepo(api *backend.Client) *Repo { return &Repo{api: api} }

func (r *Repo) List(ctx context.Context) ([]Material, error) {
	var recs []record
	if err := r.api.GetJSON(ctx, "/products", &recs); err != nil {
		return nil, err
	}
	out := make([]Material, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toMaterial())
	}
	return out, nil
}

// Validate проверки формы до отправки.
func (n *NewMaterial) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.SKU = strings.TrimSpace(n.SKU)
	n.Unit = strings.TrimSpace(n.Unit)

	if n.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if n.SKU == "" {
		return &ValidationError{Field: "sku", Reason: "is required"}
	}
	if n.Category == "" {
		n.Category = CategoryComponent
	}
	if !n.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", n.Category)}
	}
	if n.Unit == "" {
		n.Unit = "units"
	}
	if n.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "must be a non-negative number"}
	}
	if n.CostPerUnit.IsNegative() {
		return &ValidationError{Field: "cost", Reason: "must be a non-negative number"}
	}
	if n.ReorderLevel.IsNegative() {
		return &ValidationError{Field: "reorder_level", Reason: "must be a non-negative number"}
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, n NewMaterial) error {
	if err := n.Validate(); err != nil {
		return err
	}
	payload := map[string]any{
		"name":          n.Name,
		"sku":           n.SKU,
		"category":      string(n.Category),
		"unit":          n.Unit,
		"quantity":      n.Quantity.InexactFloat64(),
		"cost":          n.CostPerUnit.InexactFloat64(),
		"reorder_level": n.ReorderLevel.InexactFloat64(),
	}
	if n.SupplierID != nil {
		payload["supplier_id"] = *n.SupplierID
	}
	if n.PhotoURL != "" {
		payload["photo_url"] = n.PhotoURL
	}

	var res backend.Result
	if err := r.api.PostJSON(ctx, "/products", payload, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrRejected, res.Error)
	}
	return nil
}

// MarkNotified поднимает флаг «письмо о низком остатке отправлено».
func (r *Repo) MarkNotified(ctx context.Context, id int64) error {
	return r.api.PostJSON(ctx, "/products/"+strconv.FormatInt(id, 10)+"/increment-email-count", nil, nil)
}

// ResetNotified сбрасывает флаг, например после ручной приёмки.
func (r *Repo) ResetNotified(ctx context.Context, id int64) error {
	return r.api.PostJSON(ctx, "/products/"+strconv.FormatInt(id, 10)+"/reset-email-count", nil, nil)
}
