package labor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spok95/bom-console/internal/infra/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEstimator цена = часы × 10 за навык; gate (если задан) держит ответ по числу часов.
type fakeEstimator struct {
	calls atomic.Int32
	fail  atomic.Bool

	mu   sync.Mutex
	gate map[int64]chan struct{}
}

func (f *fakeEstimator) Estimate(_ context.Context, skills []string, hours decimal.Decimal) (Estimate, error) {
	f.calls.Add(1)
	f.mu.Lock()
	ch := f.gate[hours.IntPart()]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	if f.fail.Load() {
		return Estimate{}, ErrCalculationFailed
	}
	cost := hours.Mul(decimal.NewFromInt(10)).Mul(decimal.NewFromInt(int64(len(skills))))
	return Estimate{LaborCost: cost, Breakdown: []BreakdownEntry{}}, nil
}

func TestCalculatorFailureKeepsPrior(t *testing.T) {
	f := &fakeEstimator{}
	c := NewCalculator(f, 0, logger.Discard())
	ctx := context.Background()

	est, err := c.RequestNow(ctx, []string{"Welding"}, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, est.LaborCost.Equal(decimal.NewFromInt(20)))

	f.fail.Store(true)
	est, err = c.RequestNow(ctx, []string{"Welding"}, decimal.NewFromInt(5))
	require.ErrorIs(t, err, ErrCalculationFailed)
	assert.True(t, est.LaborCost.Equal(decimal.NewFromInt(20)))
	assert.True(t, c.Current().LaborCost.Equal(decimal.NewFromInt(20)))
}

func TestCalculatorDiscardsStaleResponse(t *testing.T) {
	slow := make(chan struct{})
	f := &fakeEstimator{gate: map[int64]chan struct{}{1: slow}}
	c := NewCalculator(f, 0, logger.Discard())
	ctx := context.Background()

	var updates atomic.Int32
	c.OnUpdate(func(Estimate) { updates.Add(1) })

	errCh := make(chan error, 1)
	go func() {
		_, err := c.RequestNow(ctx, []string{"Welding"}, decimal.NewFromInt(1))
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	est, err := c.RequestNow(ctx, []string{"Welding"}, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, est.LaborCost.Equal(decimal.NewFromInt(30)))

	close(slow)
	require.True(t, errors.Is(<-errCh, ErrStaleResponse))

	assert.True(t, c.Current().LaborCost.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int32(1), updates.Load())
}

func TestCalculatorDebounceCollapsesBurst(t *testing.T) {
	f := &fakeEstimator{}
	c := NewCalculator(f, 20*time.Millisecond, logger.Discard())
	t.Cleanup(c.Stop)

	done := make(chan Estimate, 4)
	c.OnUpdate(func(e Estimate) { done <- e })

	for h := int64(1); h <= 5; h++ {
		c.Request([]string{"Welding"}, decimal.NewFromInt(h))
	}

	select {
	case e := <-done:
		assert.True(t, e.LaborCost.Equal(decimal.NewFromInt(50)))
	case <-time.After(time.Second):
		t.Fatal("debounced request never fired")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestCalculatorRequestNowCancelsPending(t *testing.T) {
	f := &fakeEstimator{}
	c := NewCalculator(f, 50*time.Millisecond, logger.Discard())

	c.Request([]string{"Welding"}, decimal.NewFromInt(1))
	_, err := c.RequestNow(context.Background(), []string{"Welding"}, decimal.NewFromInt(2))
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, c.Current().LaborCost.Equal(decimal.NewFromInt(20)))
}
