package console

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/labor"
	"github.com/shopspring/decimal"
)

// DraftState сериализуемая часть черновика (хранится в диалоге бота).
type DraftState struct {
	ModelName      string          `json:"model_name"`
	Lines          []bom.Line      `json:"lines"`
	Skills         []string        `json:"skills"`
	EstimatedHours decimal.Decimal `json:"estimated_hours"`
	WeightKg       decimal.Decimal `json:"weight"`
	MarginPercent  decimal.Decimal `json:"profit_margin_percent"`
}

// Draft изделие в процессе сборки: спецификация плюс навыки.
// Правка навыков или часов пересчитывает работу с задержкой, итоги обновляются сами.
type Draft struct {
	agg  *bom.Aggregator
	calc *labor.Calculator

	mu     sync.Mutex
	name   string
	skills []string
	hours  decimal.Decimal
	weight decimal.Decimal
	margin decimal.Decimal
}

func (s *Service) NewDraft() *Draft {
	agg := bom.NewAggregator(s.store.Current())
	calc := labor.NewCalculator(s.labor, s.debounce, s.log)
	calc.OnUpdate(func(e labor.Estimate) { agg.RecomputeTotals(e.LaborCost) })
	return &Draft{agg: agg, calc: calc, hours: decimal.NewFromInt(1), margin: bom.DefaultMarginPercent}
}

// RestoreDraft собирает черновик из сохранённого состояния. Строки с материалами,
// которых больше нет в снимке, отбрасываются. Работа по сохранённым навыкам
// пересчитывается сразу, чтобы итоги были полными с первого показа.
func (s *Service) RestoreDraft(ctx context.Context, st DraftState) *Draft {
	d := s.NewDraft()
	d.name = st.ModelName
	for _, l := range st.Lines {
		_, _ = d.agg.AddLine(l.MaterialID, l.Quantity)
	}
	d.skills = labor.NormalizeSkills(st.Skills)
	if st.EstimatedHours.IsPositive() {
		d.hours = st.EstimatedHours
	}
	d.weight = st.WeightKg
	if !st.MarginPercent.IsZero() {
		d.margin = st.MarginPercent
	}
	if len(d.skills) > 0 {
		if _, err := d.Settle(ctx); err != nil {
			s.log.Warn("restored draft labor estimate failed", "err", err)
		}
	}
	return d
}

func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DraftState{
		ModelName:      d.name,
		Lines:          d.agg.Lines(),
		Skills:         append([]string(nil), d.skills...),
		EstimatedHours: d.hours,
		WeightKg:       d.weight,
		MarginPercent:  d.margin,
	}
}

func (d *Draft) SetName(name string) {
	d.mu.Lock()
	d.name = name
	d.mu.Unlock()
}

func (d *Draft) SetWeight(w decimal.Decimal) {
	d.mu.Lock()
	d.weight = w
	d.mu.Unlock()
}

func (d *Draft) SetMargin(m decimal.Decimal) {
	d.mu.Lock()
	d.margin = m
	d.mu.Unlock()
}

func (d *Draft) AddLine(materialID int64, qty decimal.Decimal) (bom.Totals, error) {
	return d.agg.AddLine(materialID, qty)
}

func (d *Draft) RemoveLine(i int) (bom.Totals, error) { return d.agg.RemoveLine(i) }

func (d *Draft) UpdateLineQuantity(i int, qty decimal.Decimal) (bom.Totals, error) {
	return d.agg.UpdateLineQuantity(i, qty)
}

// ToggleSkill добавляет навык или убирает, если он уже выбран.
func (d *Draft) ToggleSkill(name string) {
	d.mu.Lock()
	next := make([]string, 0, len(d.skills)+1)
	removed := false
	for _, s := range d.skills {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			removed = true
			continue
		}
		next = append(next, s)
	}
	if !removed {
		next = append(next, name)
	}
	d.skills = labor.NormalizeSkills(next)
	skills, hours := d.skills, d.hours
	d.mu.Unlock()

	d.calc.Request(skills, hours)
}

func (d *Draft) SetHours(h decimal.Decimal) {
	d.mu.Lock()
	d.hours = h
	skills := d.skills
	d.mu.Unlock()

	d.calc.Request(skills, h)
}

func (d *Draft) Skills() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.skills...)
}

// Settle пересчитывает работу сразу, без задержки, и возвращает итоги.
// При сбое остаётся прежняя стоимость работы.
func (d *Draft) Settle(ctx context.Context) (bom.Totals, error) {
	d.mu.Lock()
	skills, hours := d.skills, d.hours
	d.mu.Unlock()

	_, err := d.calc.RequestNow(ctx, skills, hours)
	// отложенный запрос успел стартовать позже нашего: повторяем, чтобы наш стал последним
	for i := 0; i < 2 && errors.Is(err, labor.ErrStaleResponse); i++ {
		_, err = d.calc.RequestNow(ctx, skills, hours)
	}
	return d.agg.Totals(), err
}

func (d *Draft) Refresh(snap *inventory.Snapshot) bom.Totals { return d.agg.SetCatalog(snap) }

func (d *Draft) Totals() bom.Totals { return d.agg.Totals() }
func (d *Draft) Breakdown() []bom.LineCost { return d.agg.Breakdown() }
func (d *Draft) Labor() labor.Estimate { return d.calc.Current() }
func (d *Draft) Len() int { return d.agg.Len() }
func (d *Draft) SellingPrice() decimal.Decimal { return bom.SellingPrice(d.Totals().TotalCost, d.State().MarginPercent) }

// Input данные для SaveProduct.
func (d *Draft) Input() ProductInput {
	st := d.State()
	margin := st.MarginPercent
	return ProductInput{
		ModelName:           st.ModelName,
		Lines:               st.Lines,
		Skills:              st.Skills,
		EstimatedHours:      st.EstimatedHours,
		WeightKg:            st.WeightKg,
		ProfitMarginPercent: &margin,
	}
}

func (d *Draft) Close() { d.calc.Stop() }
