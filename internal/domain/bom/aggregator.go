package bom

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Aggregator собирает стоимость изделия: материалы по спецификации плюс работа.
// Каждая мутация пересчитывает итоги синхронно, до возврата из метода.
type Aggregator struct {
	mu        sync.Mutex
	catalog   Catalog
	lines     []Line
	totals    Totals
	listeners []func(Totals)
}

func NewAggregator(c Catalog) *Aggregator {
	a := &Aggregator{catalog: c}
	a.totals = a.compute(decimal.Zero)
	return a
}

// OnChange подписка на пересчёт итогов.
func (a *Aggregator) OnChange(fn func(Totals)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

func (a *Aggregator) AddLine(materialID int64, qty decimal.Decimal) (Totals, error) {
	a.mu.Lock()
	if !qty.IsPositive() {
		t := a.totals
		a.mu.Unlock()
		return t, ErrInvalidQuantity
	}
	if a.catalog == nil {
		t := a.totals
		a.mu.Unlock()
		return t, ErrUnresolvedMaterial
	}
	if _, ok := a.catalog.FindByID(materialID); !ok {
		t := a.totals
		a.mu.Unlock()
		return t, ErrUnresolvedMaterial
	}
	a.lines = append(a.lines, Line{MaterialID: materialID, Quantity: qty})
	return a.publish(), nil
}

func (a *Aggregator) RemoveLine(index int) (Totals, error) {
	a.mu.Lock()
	if index < 0 || index >= len(a.lines) {
		t := a.totals
		a.mu.Unlock()
		return t, ErrLineIndex
	}
	a.lines = append(a.lines[:index], a.lines[index+1:]...)
	return a.publish(), nil
}

func (a *Aggregator) UpdateLineQuantity(index int, qty decimal.Decimal) (Totals, error) {
	a.mu.Lock()
	if index < 0 || index >= len(a.lines) {
		t := a.totals
		a.mu.Unlock()
		return t, ErrLineIndex
	}
	if !qty.IsPositive() {
		t := a.totals
		a.mu.Unlock()
		return t, ErrInvalidQuantity
	}
	a.lines[index].Quantity = qty
	return a.publish(), nil
}

// RecomputeTotals подставляет новую стоимость работы и пересчитывает итог.
func (a *Aggregator) RecomputeTotals(laborCost decimal.Decimal) Totals {
	a.mu.Lock()
	if laborCost.IsNegative() {
		laborCost = decimal.Zero
	}
	a.totals.LaborCost = laborCost
	return a.publish()
}

// SetCatalog новый снимок каталога: цены берутся из него.
func (a *Aggregator) SetCatalog(c Catalog) Totals {
	a.mu.Lock()
	a.catalog = c
	return a.publish()
}

func (a *Aggregator) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

func (a *Aggregator) Lines() []Line {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.lines)
}

// Breakdown построчная раскладка по текущим ценам.
func (a *Aggregator) Breakdown() []LineCost {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]LineCost, 0, len(a.lines))
	for _, l := range a.lines {
		out = append(out, a.lineCost(l))
	}
	return out
}

// publish вызывается под a.mu и отпускает его перед уведомлением подписчиков.
func (a *Aggregator) publish() Totals {
	a.totals = a.compute(a.totals.LaborCost)
	t := a.totals
	listeners := make([]func(Totals), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
	return t
}

func (a *Aggregator) compute(labor decimal.Decimal) Totals {
	mats := decimal.Zero
	for _, l := range a.lines {
		mats = mats.Add(a.lineCost(l).Cost)
	}
	return Totals{
		MaterialsCost: mats,
		LaborCost:     labor,
		TotalCost:     mats.Add(labor),
	}
}

// lineCost материал, пропавший из каталога, стоит 0, но строка остаётся.
func (a *Aggregator) lineCost(l Line) LineCost {
	lc := LineCost{Line: l, Cost: decimal.Zero, UnitCost: decimal.Zero}
	if a.catalog == nil {
		return lc
	}
	m, ok := a.catalog.FindByID(l.MaterialID)
	if !ok {
		return lc
	}
	lc.Name = m.Name
	lc.Unit = m.Unit
	lc.UnitCost = m.CostPerUnit
	lc.Cost = m.CostPerUnit.Mul(l.Quantity)
	lc.Resolved = true
	return lc
}

// MaterialsCost разовый подсчёт без агрегатора (для списков изделий).
func MaterialsCost(lines []Line, c Catalog) decimal.Decimal {
	a := &Aggregator{catalog: c, lines: lines}
	return a.compute(decimal.Zero).MaterialsCost
}
