package labor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/bom-console/internal/infra/backend"
	"github.com/Spok95/bom-console/internal/infra/cache"
	"github.com/Spok95/bom-console/internal/infra/metrics"
	"github.com/shopspring/decimal"
)

// Service считает стоимость работы через бэкенд. Одинаковые (навыки, часы) отдаются из кэша.
type Service struct {
	api   *backend.Client
	cache cache.Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewService(api *backend.Client, store cache.Store, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{api: api, cache: store, ttl: ttl, log: log.With("component", "labor")}
}

// NormalizeSkills без пустых и повторов (без учёта регистра), порядок первого появления.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

func estimateKey(skills []string, hours decimal.Decimal) string {
	sorted := make([]string, len(skills))
	for i, s := range skills {
		sorted[i] = strings.ToLower(s)
	}
	sort.Strings(sorted)
	return cache.Key("labor", strings.Join(sorted, ","), hours.String())
}

func (s *Service) Estimate(ctx context.Context, skills []string, hours decimal.Decimal) (Estimate, error) {
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		metrics.LaborRequests.WithLabelValues("empty", "ok").Inc()
		return Zero(), nil
	}
	if !hours.IsPositive() {
		return Estimate{}, ErrInvalidHours
	}

	key := estimateKey(skills, hours)
	if est, ok := s.cached(ctx, key); ok {
		metrics.LaborRequests.WithLabelValues("cache", "ok").Inc()
		return est, nil
	}

	payload := map[string]any{
		"skills":          skills,
		"estimated_hours": hours.InexactFloat64(),
	}
	var w wireResponse
	if err := s.api.PostJSON(ctx, "/calculate-labor-cost", payload, &w); err != nil {
		metrics.LaborRequests.WithLabelValues("backend", "error").Inc()
		return Estimate{}, fmt.Errorf("%w: %v", ErrCalculationFailed, err)
	}
	if w.LaborCost == nil {
		metrics.LaborRequests.WithLabelValues("backend", "error").Inc()
		msg := w.Error
		if msg == "" {
			msg = "response has no labor_cost"
		}
		return Estimate{}, fmt.Errorf("%w: %s", ErrCalculationFailed, msg)
	}
	metrics.LaborRequests.WithLabelValues("backend", "ok").Inc()

	est := w.toEstimate(hours)
	s.store(ctx, key, est)
	return est, nil
}

func (s *Service) cached(ctx context.Context, key string) (Estimate, bool) {
	if s.cache == nil {
		return Estimate{}, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("labor cache read failed", "err", err)
		return Estimate{}, false
	}
	if !ok {
		return Estimate{}, false
	}
	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		s.log.Warn("labor cache entry corrupted", "key", key, "err", err)
		return Estimate{}, false
	}
	return est, true
}

func (s *Service) store(ctx context.Context, key string, est Estimate) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(est)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("labor cache write failed", "err", err)
	}
}
