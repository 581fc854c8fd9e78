package lowstock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/metrics"
	"github.com/shopspring/decimal"
)

// Mailer внешний вебхук рассылки.
type Mailer interface {
	Post(ctx context.Context, payload any) error
}

// FlagStore флаг «письмо отправлено» на бэкенде.
type FlagStore interface {
	MarkNotified(ctx context.Context, materialID int64) error
}

type SupplierSource interface {
	ListSuppliers(ctx context.Context) ([]catalog.Supplier, error)
}

type TransactionSource interface {
	Transactions(ctx context.Context) ([]inventory.Transaction, error)
}

// Alerter сводка для операторов (админ-чат). Необязателен.
type Alerter interface {
	LowStockDigest(ctx context.Context, delivered []Entry)
}

type Notifier struct {
	mailer    Mailer
	flags     FlagStore
	suppliers SupplierSource
	txs       TransactionSource
	set       *NotifiedSet
	buffer    decimal.Decimal
	log       *slog.Logger

	alerter Alerter

	// один скан за раз, иначе два параллельных триггера отправят письмо дважды
	mu sync.Mutex
}

func NewNotifier(
	mailer Mailer,
	flags FlagStore,
	suppliers SupplierSource,
	txs TransactionSource,
	set *NotifiedSet,
	orderBuffer int64,
	log *slog.Logger,
) *Notifier {
	if set == nil {
		set = NewNotifiedSet()
	}
	return &Notifier{
		mailer:    mailer,
		flags:     flags,
		suppliers: suppliers,
		txs:       txs,
		set:       set,
		buffer:    decimal.NewFromInt(orderBuffer),
		log:       log.With("component", "lowstock"),
	}
}

func (n *Notifier) SetAlerter(a Alerter) { n.alerter = a }

func (n *Notifier) Set() *NotifiedSet { return n.set }

// RecommendedOrder сколько советуем дозаказать: уровень дозаказа плюс запас.
func (n *Notifier) RecommendedOrder(m materials.Material) decimal.Decimal {
	return m.ReorderLevel.Add(n.buffer)
}

// Scan проходит по материалам на уровне дозаказа и пишет поставщикам тех,
// кому ещё не писали. Ошибки не всплывают: всё попадает в отчёт и лог.
func (n *Notifier) Scan(ctx context.Context, snap *inventory.Snapshot) Report {
	n.mu.Lock()
	defer n.mu.Unlock()

	rep := Report{Scanned: snap.Len()}
	low := snap.Low()
	rep.Low = len(low)
	if len(low) == 0 {
		return rep
	}

	var (
		suppliers []catalog.Supplier
		txs       []inventory.Transaction
		loaded    bool
	)
	load := func() {
		if loaded {
			return
		}
		loaded = true
		var err error
		if suppliers, err = n.suppliers.ListSuppliers(ctx); err != nil {
			n.log.Warn("suppliers load failed", "err", err)
		}
		if txs, err = n.txs.Transactions(ctx); err != nil {
			n.log.Warn("transactions load failed", "err", err)
		}
	}

	for _, m := range low {
		e := Entry{
			Material:         m,
			MaterialID:       m.ID,
			MaterialName:     m.Name,
			RecommendedOrder: n.RecommendedOrder(m),
		}

		switch {
		case StateOf(m, n.set) == Notified:
			e.Outcome = OutcomeAlready
		case m.SKU == "":
			e.Outcome = OutcomeNoSKU
		default:
			load()
			n.notify(ctx, m, suppliers, txs, &e)
		}

		metrics.LowStockNotifications.WithLabelValues(string(e.Outcome)).Inc()
		rep.Entries = append(rep.Entries, e)
	}

	if delivered := rep.Delivered(); len(delivered) > 0 && n.alerter != nil {
		n.alerter.LowStockDigest(ctx, delivered)
	}
	return rep
}

func (n *Notifier) notify(ctx context.Context, m materials.Material, suppliers []catalog.Supplier, txs []inventory.Transaction, e *Entry) {
	s, ok := ResolveSupplier(m, suppliers, txs)
	if !ok {
		e.Outcome = OutcomeNoSupplier
		n.log.Warn("no supplier for low-stock material", "material_id", m.ID, "name", m.Name)
		return
	}
	e.Supplier = &s
	if !s.Contactable() {
		e.Outcome = OutcomeNoEmail
		n.log.Warn("supplier has no email", "material_id", m.ID, "supplier_id", s.ID)
		return
	}

	notice := Notice{
		Name:             s.Name,
		Email:            s.Email,
		Product:          m.Name,
		Quantity:         m.QuantityOnHand,
		RecommendedOrder: e.RecommendedOrder,
	}
	if err := n.mailer.Post(ctx, notice); err != nil {
		e.Outcome = OutcomeSendFailed
		e.Error = err.Error()
		n.log.Warn("low-stock notice not sent", "material_id", m.ID, "err", err)
		return
	}

	// письмо ушло: повторно в этом процессе не шлём, даже если флаг не сохранится
	n.set.MarkNotified(m.ID)

	if err := n.flags.MarkNotified(ctx, m.ID); err != nil {
		e.Outcome = OutcomePersistFail
		e.Error = err.Error()
		n.log.Warn("notified flag not persisted", "material_id", m.ID, "err", err)
		return
	}
	e.Outcome = OutcomeSent
	n.log.Info("low-stock notice sent", "material_id", m.ID, "supplier_id", s.ID)
}
