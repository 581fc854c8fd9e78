package lowstock

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/shopspring/decimal"
)

type State int

const (
	Normal State = iota
	LowPendingNotify
	Notified
)

func (s State) String() string {
	switch s {
	case LowPendingNotify:
		return "low_pending_notify"
	case Notified:
		return "notified"
	default:
		return "normal"
	}
}

// NotifiedSet кому уже писали за время жизни процесса. После рестарта пуст,
// дальше полагаемся на флаг бэкенда.
type NotifiedSet struct {
	mu  sync.Mutex
	ids map[int64]time.Time
}

func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{ids: make(map[int64]time.Time)}
}

func (s *NotifiedSet) WasNotified(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *NotifiedSet) MarkNotified(id int64) {
	s.mu.Lock()
	s.ids[id] = time.Now()
	s.mu.Unlock()
}

func (s *NotifiedSet) Clear(id int64) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
}

func (s *NotifiedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func StateOf(m materials.Material, set *NotifiedSet) State {
	if !m.IsLow() {
		return Normal
	}
	if m.NotifiedLowStock || (set != nil && set.WasNotified(m.ID)) {
		return Notified
	}
	return LowPendingNotify
}

// Notice тело письма для вебхука. Имена полей ждёт скрипт рассылки.
type Notice struct {
	Name             string
	Email            string
	Product          string
	Quantity         decimal.Decimal
	RecommendedOrder decimal.Decimal
}

func (n Notice) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"Name":             n.Name,
		"Email":            n.Email,
		"Product":          n.Product,
		"Quantity":         n.Quantity.InexactFloat64(),
		"RecommendedOrder": n.RecommendedOrder.InexactFloat64(),
	})
}

type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeAlready     Outcome = "already_notified"
	OutcomeNoSKU       Outcome = "no_sku"
	OutcomeNoSupplier  Outcome = "no_supplier"
	OutcomeNoEmail     Outcome = "no_email"
	OutcomeSendFailed  Outcome = "send_failed"
	OutcomePersistFail Outcome = "sent_not_persisted"
)

// Entry итог по одному материалу.
type Entry struct {
	Material         materials.Material `json:"-"`
	MaterialID       int64              `json:"material_id"`
	MaterialName     string             `json:"material_name"`
	Outcome          Outcome            `json:"outcome"`
	Supplier         *catalog.Supplier  `json:"supplier,omitempty"`
	RecommendedOrder decimal.Decimal    `json:"recommended_order"`
	Error            string             `json:"error,omitempty"`
}

// Delivered письмо ушло (даже если флаг на бэкенде не сохранился).
func (e Entry) Delivered() bool {
	return e.Outcome == OutcomeSent || e.Outcome == OutcomePersistFail
}

type Report struct {
	Scanned int     `json:"scanned"`
	Low     int     `json:"low"`
	Entries []Entry `json:"entries"`
}

func (r Report) Delivered() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Delivered() {
			out = append(out, e)
		}
	}
	return out
}
