package advisory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nzql/internal/cache"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/schedule"
)

const (
	// PendingAdvice is shown before the first answer arrives.
	PendingAdvice = "AI 分析中..."
	// UnavailableAdvice replaces any failed or unconfigured request.
	UnavailableAdvice = "暫時無法取得 AI 理財建議，請稍後再試。"
)

// Generator produces advice text.
type Generator interface {
	Advise(ctx context.Context, in Request) (string, error)
}

// Advisor wraps a Generator with caching, a placeholder for failures and
// ordering of overlapping refreshes.
type Advisor struct {
	gen    Generator
	cache  *cache.LRUCache[string]
	logger *log.Logger
	seq    schedule.Sequencer

	mu           sync.RWMutex
	current      string
	currentMonth core.Month
}

// NewAdvisor creates an advisor whose answers are cached for ttl.
func NewAdvisor(gen Generator, ttl time.Duration, logger *log.Logger) *Advisor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Advisor{
		gen:     gen,
		cache:   cache.NewLRUCache[string](32, ttl),
		logger:  logger.WithComponent(log.ComponentAdvisory),
		current: PendingAdvice,
	}
}

// Cache exposes the answer cache so it can be swept by a cache.Manager.
func (a *Advisor) Cache() *cache.LRUCache[string] {
	return a.cache
}

// RequestFor builds the request for month m from a snapshot.
func RequestFor(d core.AppData, m core.Month) Request {
	return Request{
		Month:        m,
		Budget:       d.Budget,
		Spent:        core.SpentIn(d.Transactions, m),
		Transactions: d.Transactions,
	}
}

// Advice answers for month m, from cache when possible. It never fails:
// errors are logged and UnavailableAdvice is returned.
func (a *Advisor) Advice(ctx context.Context, d core.AppData, m core.Month) string {
	in := RequestFor(d, m)
	key := cacheKey(in)
	if text, ok := a.cache.Get(key); ok {
		return text
	}

	text, err := a.gen.Advise(ctx, in)
	if err != nil {
		a.logger.WarnContext(ctx, "Advice unavailable",
			log.FieldMonth, m.String(), log.FieldOperation, log.OpAdvise, log.FieldError, err)
		return UnavailableAdvice
	}
	a.cache.Set(key, text)
	return text
}

// Refresh computes advice and publishes it as Current unless a refresh that
// started later has already published.
func (a *Advisor) Refresh(ctx context.Context, d core.AppData, m core.Month) string {
	tok := a.seq.Next()
	text := a.Advice(ctx, d, m)
	if ctx.Err() != nil {
		return text
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seq.Commit(tok) {
		a.current = text
		a.currentMonth = m
	} else {
		a.logger.DebugContext(ctx, "Discarding stale advice", log.FieldSeq, tok)
	}
	return text
}

// Current returns the last published advice.
func (a *Advisor) Current() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Latest returns the published advice when it was computed for month m.
func (a *Advisor) Latest(m core.Month) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.currentMonth == "" || a.currentMonth != m {
		return "", false
	}
	return a.current, true
}

func cacheKey(in Request) string {
	last := ""
	if n := len(in.Transactions); n > 0 {
		last = in.Transactions[n-1].ID.String()
	}
	return fmt.Sprintf("%s|%.2f|%.2f|%d|%s", in.Month, in.Budget, in.Spent, len(in.Transactions), last)
}
