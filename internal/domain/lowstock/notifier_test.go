package lowstock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v int64) *int64 { return &v }

type fakeMailer struct {
	mu   sync.Mutex
	sent []Notice
	err  error
}

func (f *fakeMailer) Post(_ context.Context, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload.(Notice))
	return nil
}

type fakeFlags struct {
	marked []int64
	err    error
}

func (f *fakeFlags) MarkNotified(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeDir struct {
	suppliers []catalog.Supplier
	txs       []inventory.Transaction
}

func (f fakeDir) ListSuppliers(context.Context) ([]catalog.Supplier, error) { return f.suppliers, nil }

func (f fakeDir) Transactions(context.Context) ([]inventory.Transaction, error) { return f.txs, nil }

type fakeAlerter struct{ got []Entry }

func (f *fakeAlerter) LowStockDigest(_ context.Context, delivered []Entry) {
	f.got = append(f.got, delivered...)
}

var acme = catalog.Supplier{ID: 3, Name: "Acme", Email: "orders@acme.test"}

func lowBolt() materials.Material {
	return materials.Material{
		ID: 1, Name: "Bolt", SKU: "B-1",
		QuantityOnHand: d("2"), ReorderLevel: d("5"),
		SupplierID: ptr(3),
	}
}

func newNotifier(m *fakeMailer, f *fakeFlags, dir fakeDir) *Notifier {
	return NewNotifier(m, f, dir, dir, NewNotifiedSet(), 5, logger.Discard())
}

func TestScanNotifiesOncePerProcess(t *testing.T) {
	mailer := &fakeMailer{}
	flags := &fakeFlags{}
	n := newNotifier(mailer, flags, fakeDir{suppliers: []catalog.Supplier{acme}})

	// бэкенд ещё не отдал флаг: снимок тот же самый при каждом скане
	snap := inventory.NewSnapshot([]materials.Material{lowBolt()})
	for i := 0; i < 3; i++ {
		n.Scan(context.Background(), snap)
	}

	require.Len(t, mailer.sent, 1)
	got := mailer.sent[0]
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "orders@acme.test", got.Email)
	assert.Equal(t, "Bolt", got.Product)
	assert.True(t, got.Quantity.Equal(d("2")))
	assert.True(t, got.RecommendedOrder.Equal(d("10")))
	assert.Equal(t, []int64{1}, flags.marked)
}

func TestScanConcurrentTriggersSendOnce(t *testing.T) {
	mailer := &fakeMailer{}
	n := newNotifier(mailer, &fakeFlags{}, fakeDir{suppliers: []catalog.Supplier{acme}})
	snap := inventory.NewSnapshot([]materials.Material{lowBolt()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Scan(context.Background(), snap)
		}()
	}
	wg.Wait()
	assert.Len(t, mailer.sent, 1)
}

func TestScanSkips(t *testing.T) {
	flagged := lowBolt()
	flagged.NotifiedLowStock = true

	noSKU := lowBolt()
	noSKU.SKU = ""

	ok := lowBolt()
	ok.ID = 2
	ok.QuantityOnHand = d("6")

	cases := []struct {
		name string
		m    materials.Material
		dir  fakeDir
		want Outcome
	}{
		{"backend flag set", flagged, fakeDir{suppliers: []catalog.Supplier{acme}}, OutcomeAlready},
		{"no sku", noSKU, fakeDir{suppliers: []catalog.Supplier{acme}}, OutcomeNoSKU},
		{"no supplier", lowBolt(), fakeDir{}, OutcomeNoSupplier},
		{"supplier without email", lowBolt(), fakeDir{suppliers: []catalog.Supplier{{ID: 3, Name: "Acme"}}}, OutcomeNoEmail},
		{"banned email", lowBolt(), fakeDir{suppliers: []catalog.Supplier{{ID: 3, Name: "Acme", Email: "x@y", BannedEmail: true}}}, OutcomeNoEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			n := newNotifier(mailer, &fakeFlags{}, tc.dir)
			rep := n.Scan(context.Background(), inventory.NewSnapshot([]materials.Material{tc.m, ok}))

			assert.Equal(t, 2, rep.Scanned)
			assert.Equal(t, 1, rep.Low)
			require.Len(t, rep.Entries, 1)
			assert.Equal(t, tc.want, rep.Entries[0].Outcome)
			assert.Empty(t, mailer.sent)
			assert.False(t, n.Set().WasNotified(tc.m.ID))
		})
	}
}

func TestScanPendingMaterialRetriedNextScan(t *testing.T) {
	mailer := &fakeMailer{}
	dir := fakeDir{}
	n := NewNotifier(mailer, &fakeFlags{}, &dir, &dir, nil, 5, logger.Discard())
	snap := inventory.NewSnapshot([]materials.Material{lowBolt()})

	n.Scan(context.Background(), snap)
	assert.Empty(t, mailer.sent)

	dir.suppliers = []catalog.Supplier{acme}
	n.Scan(context.Background(), snap)
	assert.Len(t, mailer.sent, 1)
}

func TestScanSendFailureLeavesPending(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("connection refused")}
	flags := &fakeFlags{}
	n := newNotifier(mailer, flags, fakeDir{suppliers: []catalog.Supplier{acme}})

	rep := n.Scan(context.Background(), inventory.NewSnapshot([]materials.Material{lowBolt()}))
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, OutcomeSendFailed, rep.Entries[0].Outcome)
	assert.False(t, n.Set().WasNotified(1))
	assert.Empty(t, flags.marked)
}

func TestScanPersistFailureStillMarksSet(t *testing.T) {
	mailer := &fakeMailer{}
	flags := &fakeFlags{err: errors.New("backend down")}
	alerter := &fakeAlerter{}
	n := newNotifier(mailer, flags, fakeDir{suppliers: []catalog.Supplier{acme}})
	n.SetAlerter(alerter)
	snap := inventory.NewSnapshot([]materials.Material{lowBolt()})

	rep := n.Scan(context.Background(), snap)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, OutcomePersistFail, rep.Entries[0].Outcome)
	assert.True(t, n.Set().WasNotified(1))
	assert.Len(t, alerter.got, 1)

	n.Scan(context.Background(), snap)
	assert.Len(t, mailer.sent, 1)
}

func TestClearAllowsRenotify(t *testing.T) {
	mailer := &fakeMailer{}
	n := newNotifier(mailer, &fakeFlags{}, fakeDir{suppliers: []catalog.Supplier{acme}})
	snap := inventory.NewSnapshot([]materials.Material{lowBolt()})

	n.Scan(context.Background(), snap)
	n.Set().Clear(1)
	n.Scan(context.Background(), snap)
	assert.Len(t, mailer.sent, 2)
}

func TestStateOf(t *testing.T) {
	set := NewNotifiedSet()
	m := lowBolt()
	assert.Equal(t, LowPendingNotify, StateOf(m, set))

	set.MarkNotified(m.ID)
	assert.Equal(t, Notified, StateOf(m, set))

	m.QuantityOnHand = d("9")
	assert.Equal(t, Normal, StateOf(m, set))
}

func TestNoticeJSONUsesNumbers(t *testing.T) {
	raw, err := json.Marshal(Notice{Name: "Acme", Email: "a@acme.test", Product: "Bolt", Quantity: d("2.5"), RecommendedOrder: d("10")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"Acme","Email":"a@acme.test","Product":"Bolt","Quantity":2.5,"RecommendedOrder":10}`, string(raw))
}
