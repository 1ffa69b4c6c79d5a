package guidance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
)

// DefaultCacheSize is the number of compiled rule sets a Checker keeps.
const DefaultCacheSize = 64

// Checker checks files against rule documents and caches the compiled rule
// sets by document hash.
type Checker struct {
	cache   *lru.Cache[string, *RuleSet]
	workers int
	logger  logging.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithLogger sets the checker logger.
func WithLogger(logger logging.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger.WithComponent("guidance")
		}
	}
}

// WithWorkers bounds the number of files checked in parallel.
func WithWorkers(n int) CheckerOption {
	return func(c *Checker) { c.workers = n }
}

// NewChecker creates a checker caching up to size rule sets.
func NewChecker(size int, opts ...CheckerOption) (*Checker, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *RuleSet](size)
	if err != nil {
		return nil, caeerrors.NewInternalError(caeerrors.ErrCodeInternalError, "cannot create rule cache", err)
	}
	c := &Checker{cache: cache, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RuleSet returns the compiled rule set for a rule document.
func (c *Checker) RuleSet(rules []byte) (*RuleSet, error) {
	sum := sha256.Sum256(rules)
	key := hex.EncodeToString(sum[:])
	if rs, ok := c.cache.Get(key); ok {
		return rs, nil
	}
	rs, err := LoadRules(rules)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, rs)
	return rs, nil
}

// Check compiles rules and checks files. An invalid rule document fails the
// whole check.
func (c *Checker) Check(ctx context.Context, rules []byte, files []FileInput) ([]FileResult, error) {
	rs, err := c.RuleSet(rules)
	if err != nil {
		c.logger.Error(ctx, err, "invalid rule set")
		return nil, err
	}
	results, err := CheckFiles(ctx, rs, files, c.workers)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Err != nil {
			c.logger.Warn(ctx, r.Err, "file skipped", "file", r.File)
			continue
		}
		c.logger.Debug(ctx, "file checked", "file", r.File, "violations", len(r.Feedback))
	}
	return results, nil
}

// Cached returns the number of cached rule sets.
func (c *Checker) Cached() int { return c.cache.Len() }
