package products

import (
	"encoding/json"
	"strings"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Product готовое изделие: спецификация материалов, навыки и посчитанные стоимости.
type Product struct {
	ID                  int64              `json:"id"`
	ModelName           string             `json:"model_name"`
	Lines               []bom.Line         `json:"lines"`
	LineNames           map[int64]string   `json:"-"`
	Skills              []catalog.SkillRef `json:"skills"`
	EstimatedHours      decimal.Decimal    `json:"estimated_hours"`
	MaterialsCost       decimal.Decimal    `json:"materials_cost"`
	LaborCost           decimal.Decimal    `json:"labor_cost"`
	TotalCost           decimal.Decimal    `json:"total_cost"`
	ProfitMarginPercent decimal.Decimal    `json:"profit_margin_percent"`
	WeightKg            decimal.Decimal    `json:"weight"`
	PhotoURL            string             `json:"photo_url,omitempty"`
}

func (p Product) SkillNames() []string {
	out := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		out = append(out, s.Name)
	}
	return out
}

type materialEntry struct {
	MaterialID int64           `json:"material_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// record строка GET /finished_products. materials_json хранится строкой с JSON внутри.
type record struct {
	ID            int64           `json:"id"`
	ModelName     string          `json:"model_name"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	MaterialsCost decimal.Decimal `json:"materials_cost"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	Skills        []string        `json:"skills"`
	MaterialsJSON *string         `json:"materials_json"`
	PhotoURL      *string         `json:"photo_url"`
	Weight        decimal.Decimal `json:"weight"`
}

func (r record) toProduct() (Product, error) {
	p := Product{
		ID:            r.ID,
		ModelName:     r.ModelName,
		TotalCost:     r.TotalCost,
		MaterialsCost: r.MaterialsCost,
		LaborCost:     r.LaborCost,
		WeightKg:      r.Weight,
		LineNames:     map[int64]string{},
	}
	if r.PhotoURL != nil {
		p.PhotoURL = *r.PhotoURL
	}
	for _, s := range r.Skills {
		p.Skills = append(p.Skills, catalog.SkillRef{Name: s})
	}
	if r.MaterialsJSON == nil || strings.TrimSpace(*r.MaterialsJSON) == "" {
		return p, nil
	}
	var entries []materialEntry
	if err := json.Unmarshal([]byte(*r.MaterialsJSON), &entries); err != nil {
		return p, err
	}
	for _, e := range entries {
		p.Lines = append(p.Lines, bom.Line{MaterialID: e.MaterialID, Quantity: e.Quantity})
		p.LineNames[e.MaterialID] = e.Name
	}
	return p, nil
}
