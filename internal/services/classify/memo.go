package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// lookupResult is the memoized outcome for one symbol
type lookupResult struct {
	record   *models.ClassificationRecord // nil when no source answered
	complete bool
	notes    []string // per-source failures
}

// symbolMemo runs the external lookup chain at most once per symbol per run,
// including when several holdings ask for the same symbol concurrently.
type symbolMemo struct {
	lookups []interfaces.ClassificationLookup
	timeout time.Duration

	group   singleflight.Group
	mu      sync.Mutex
	results map[string]*lookupResult
	calls   atomic.Int64
}

func newSymbolMemo(lookups []interfaces.ClassificationLookup, timeout time.Duration) *symbolMemo {
	return &symbolMemo{
		lookups: lookups,
		timeout: timeout,
		results: make(map[string]*lookupResult),
	}
}

func (m *symbolMemo) get(key string) (*lookupResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[key]
	return r, ok
}

// resolve returns the memoized result for req.Symbol, running the chain on
// first use.
func (m *symbolMemo) resolve(ctx context.Context, req interfaces.LookupRequest) (*lookupResult, error) {
	key := strings.ToUpper(req.Symbol)
	if r, ok := m.get(key); ok {
		return r, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		if r, ok := m.get(key); ok {
			return r, nil
		}
		r, err := m.chain(ctx, req)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.results[key] = r
		m.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*lookupResult), nil
}

// chain tries each source in order until one returns a complete record.
// Source failures are collected as notes; only cancellation of the run
// itself is returned as an error.
func (m *symbolMemo) chain(ctx context.Context, req interfaces.LookupRequest) (*lookupResult, error) {
	res := &lookupResult{}
	for _, l := range m.lookups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m.calls.Add(1)
		lctx, cancel := context.WithTimeout(ctx, m.timeout)
		rec, err := l.Lookup(lctx, req)
		cancel()

		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, interfaces.ErrNotFound):
			res.notes = append(res.notes, l.Name()+": not found")
			continue
		case errors.Is(err, context.DeadlineExceeded):
			res.notes = append(res.notes, fmt.Sprintf("%s: timed out after %s", l.Name(), m.timeout))
			continue
		case err != nil:
			res.notes = append(res.notes, fmt.Sprintf("%s: %v", l.Name(), err))
			continue
		case rec == nil:
			res.notes = append(res.notes, l.Name()+": empty answer")
			continue
		}

		rec.Symbol = req.Symbol
		if rec.Complete() {
			res.record = rec
			res.complete = true
			return res, nil
		}
		if res.record == nil {
			res.record = rec
		}
		res.notes = append(res.notes, l.Name()+": partial answer")
	}
	return res, nil
}
