package layout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// CachingSolver memoizes whole results of an inner solver, keyed by the
// content hash of the request. Solving is a pure function of the request,
// so an entry never needs invalidation beyond its TTL.
//
// Cache failures never fail a solve: a read error is treated as a miss and a
// write error is dropped.
type CachingSolver struct {
	inner  Solver
	engine string
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
}

// NewCachingSolver wraps inner. engine names the inner solver in cache keys so
// that results of different engines never mix. A nil keyer uses the default.
func NewCachingSolver(inner Solver, engine string, c cache.Cache, keyer cache.Keyer) *CachingSolver {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &CachingSolver{inner: inner, engine: engine, cache: c, keyer: keyer, ttl: cache.TTLSolve}
}

// WithTTL sets how long entries are kept; zero keeps them forever.
func (s *CachingSolver) WithTTL(ttl time.Duration) *CachingSolver {
	s.ttl = ttl
	return s
}

// Solve implements [Solver].
func (s *CachingSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	res, _, err := s.SolveWithCacheInfo(ctx, req)
	return res, err
}

// SolveWithCacheInfo is like Solve but also reports whether the result came
// from the cache.
func (s *CachingSolver) SolveWithCacheInfo(ctx context.Context, req *Request) (*Result, bool, error) {
	hash, err := req.Hash()
	if err != nil {
		return nil, false, err
	}
	key := s.keyer.SolveKey(s.engine, hash)

	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		var res Result
		if json.Unmarshal(data, &res) == nil && res.Root != nil {
			observability.Cache().OnCacheHit(ctx, "solve")
			return &res, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "solve")

	res, err := s.inner.Solve(ctx, req)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeLayoutSolver, err, "solve layout")
		}
		return nil, false, err
	}
	if data, err := json.Marshal(res); err == nil {
		if s.cache.Set(ctx, key, data, s.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, "solve", len(data))
		}
	}
	return res, false, nil
}

var _ Solver = (*CachingSolver)(nil)
