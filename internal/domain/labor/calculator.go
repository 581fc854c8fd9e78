package labor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Spok95/bom-console/internal/infra/metrics"
	"github.com/shopspring/decimal"
)

type Estimator interface {
	Estimate(ctx context.Context, skills []string, hours decimal.Decimal) (Estimate, error)
}

// Calculator держит показанную оценку для одного черновика изделия.
// Каждый запрос получает номер; ответ применяется, только если после него
// не было выдано более нового запроса. Старые запросы не отменяются.
type Calculator struct {
	est     Estimator
	deb     *Debouncer
	log     *slog.Logger
	timeout time.Duration

	seq atomic.Uint64

	mu       sync.Mutex
	current  Estimate
	onUpdate []func(Estimate)
}

func NewCalculator(est Estimator, debounce time.Duration, log *slog.Logger) *Calculator {
	return &Calculator{
		est:     est,
		deb:     NewDebouncer(debounce),
		log:     log,
		timeout: 10 * time.Second,
		current: Zero(),
	}
}

// OnUpdate вызывается после применения свежей оценки.
func (c *Calculator) OnUpdate(fn func(Estimate)) {
	c.mu.Lock()
	c.onUpdate = append(c.onUpdate, fn)
	c.mu.Unlock()
}

func (c *Calculator) Current() Estimate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Request пересчёт после паузы в правках.
func (c *Calculator) Request(skills []string, hours decimal.Decimal) {
	skills = append([]string(nil), skills...)
	c.deb.Call(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_, _ = c.issue(ctx, skills, hours)
	})
}

// RequestNow пересчёт без паузы; отложенный Request при этом отменяется.
func (c *Calculator) RequestNow(ctx context.Context, skills []string, hours decimal.Decimal) (Estimate, error) {
	c.deb.Stop()
	return c.issue(ctx, skills, hours)
}

func (c *Calculator) Stop() { c.deb.Stop() }

func (c *Calculator) issue(ctx context.Context, skills []string, hours decimal.Decimal) (Estimate, error) {
	seq := c.seq.Add(1)
	est, err := c.est.Estimate(ctx, skills, hours)

	c.mu.Lock()
	if seq != c.seq.Load() {
		cur := c.current
		c.mu.Unlock()
		metrics.LaborStaleResponses.Inc()
		c.log.Debug("labor estimate discarded", "seq", seq)
		return cur, ErrStaleResponse
	}
	if err != nil {
		cur := c.current
		c.mu.Unlock()
		if !errors.Is(err, ErrInvalidHours) {
			c.log.Warn("labor estimate failed", "err", err)
		}
		return cur, err
	}
	c.current = est
	listeners := make([]func(Estimate), len(c.onUpdate))
	copy(listeners, c.onUpdate)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(est)
	}
	return est, nil
}
