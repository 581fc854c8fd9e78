package inventory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/metrics"
	"github.com/shopspring/decimal"
)

type Source interface {
	List(ctx context.Context) ([]materials.Material, error)
}

// Snapshot неизменяемый срез каталога материалов с остатками.
type Snapshot struct {
	items []materials.Material
	index map[int64]int
}

func NewSnapshot(items []materials.Material) *Snapshot {
	s := &Snapshot{
		items: make([]materials.Material, len(items)),
		index: make(map[int64]int, len(items)),
	}
	copy(s.items, items)
	for i, m := range s.items {
		s.index[m.ID] = i
	}
	return s
}

// Load никогда не возвращает ошибку: при сбое транспорта снимок пустой.
func Load(ctx context.Context, src Source, log *slog.Logger) *Snapshot {
	items, err := src.List(ctx)
	if err != nil {
		log.Warn("inventory load failed", "err", err)
		return NewSnapshot(nil)
	}
	return NewSnapshot(items)
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// All копия списка, отсортированная по остатку: сначала самые дефицитные.
func (s *Snapshot) All() []materials.Material {
	if s == nil {
		return nil
	}
	out := make([]materials.Material, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuantityOnHand.LessThan(out[j].QuantityOnHand)
	})
	return out
}

func (s *Snapshot) FindByID(id int64) (materials.Material, bool) {
	if s == nil {
		return materials.Material{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return materials.Material{}, false
	}
	return s.items[i], true
}

func (s *Snapshot) Stock(id int64) (decimal.Decimal, bool) {
	m, ok := s.FindByID(id)
	if !ok {
		return decimal.Zero, false
	}
	return m.QuantityOnHand, true
}

// Low материалы на уровне дозаказа или ниже.
func (s *Snapshot) Low() []materials.Material {
	var out []materials.Material
	for _, m := range s.All() {
		if m.IsLow() {
			out = append(out, m)
		}
	}
	return out
}

// Store держит текущий снимок. Меняется только целиком через Reload.
type Store struct {
	src Source
	log *slog.Logger

	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

func NewStore(src Source, log *slog.Logger) *Store {
	s := &Store{src: src, log: log}
	s.cur.Store(NewSnapshot(nil))
	return s
}

func (s *Store) Current() *Snapshot { return s.cur.Load() }

func (s *Store) Reload(ctx context.Context) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Load(ctx, s.src, s.log)
	s.cur.Store(snap)
	metrics.SnapshotMaterials.Set(float64(snap.Len()))
	s.log.Debug("inventory snapshot reloaded", "materials", snap.Len())
	return snap
}
