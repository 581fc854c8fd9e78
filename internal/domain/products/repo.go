package products

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/backend"
)

var ErrNoID = errors.New("backend did not return product id")

type Repo struct {
	api *backend.Client
	log *slog.Logger
}

func NewRepo(api *backend.Client, log *slog.Logger) *Repo { return &Repo{api: api, log: log} }

// List битый materials_json не валит весь список: изделие отдаётся без строк.
func (r *Repo) List(ctx context.Context) ([]Product, error) {
	var recs []record
	if err := r.api.GetJSON(ctx, "/finished_products", &recs); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toProduct()
		if err != nil {
			r.log.Warn("bad materials_json", "product_id", rec.ID, "err", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate проверки формы изделия до отправки.
func (p *Product) Validate() error {
	p.ModelName = strings.TrimSpace(p.ModelName)
	if p.ModelName == "" {
		return &materials.ValidationError{Field: "model_name", Reason: "is required"}
	}
	if len(p.Lines) == 0 {
		return &materials.ValidationError{Field: "materials", Reason: "at least one material is required"}
	}
	for _, l := range p.Lines {
		if !l.Quantity.IsPositive() {
			return &materials.ValidationError{Field: "materials", Reason: "quantity must be > 0"}
		}
	}
	if len(p.Skills) == 0 {
		return &materials.ValidationError{Field: "skills", Reason: "at least one skill is required"}
	}
	if !p.EstimatedHours.IsPositive() {
		return &materials.ValidationError{Field: "estimated_hours", Reason: "must be > 0"}
	}
	if !p.WeightKg.IsPositive() {
		return &materials.ValidationError{Field: "weight", Reason: "must be > 0"}
	}
	if p.ProfitMarginPercent.IsNegative() {
		return &materials.ValidationError{Field: "profit_margin_percent", Reason: "must be a non-negative number"}
	}
	if !p.TotalCost.Equal(p.MaterialsCost.Add(p.LaborCost)) {
		return &materials.ValidationError{Field: "total_cost", Reason: "must equal materials_cost + labor_cost"}
	}
	return nil
}

// Create сохраняет изделие и возвращает его ID.
func (r *Repo) Create(ctx context.Context, p Product) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	mats := make([]map[string]any, 0, len(p.Lines))
	for _, l := range p.Lines {
		mats = append(mats, map[string]any{
			"id":       l.MaterialID,
			"name":     p.LineNames[l.MaterialID],
			"quantity": l.Quantity.InexactFloat64(),
		})
	}
	payload := map[string]any{
		"model_name":            p.ModelName,
		"total_cost":            p.TotalCost.InexactFloat64(),
		"materials_cost":        p.MaterialsCost.InexactFloat64(),
		"labor_cost":            p.LaborCost.InexactFloat64(),
		"profit_margin_percent": p.ProfitMarginPercent.InexactFloat64(),
		"skills":                p.SkillNames(),
		"materials":             mats,
		"weight":                p.WeightKg.InexactFloat64(),
	}
	if p.PhotoURL != "" {
		payload["photo_url"] = p.PhotoURL
	}

	var out struct {
		ID    int64  `json:"id"`
		Error string `json:"error"`
	}
	if err := r.api.PostJSON(ctx, "/finished_products", payload, &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		return 0, ErrNoID
	}
	return out.ID, nil
}

// Quote итоги изделия по текущему каталогу.
func Quote(p Product, c bom.Catalog) bom.Totals {
	mats := bom.MaterialsCost(p.Lines, c)
	return bom.Totals{MaterialsCost: mats, LaborCost: p.LaborCost, TotalCost: mats.Add(p.LaborCost)}
}
