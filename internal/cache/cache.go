// Package cache memoizes per-schedule derived data for the sequencing core.
//
// Every read checks that the key is present, younger than the TTL and was
// computed against the current document fingerprint. Misses are computed
// under a per-key in-flight flag; a nested request for a key that is still
// being computed is answered with ok=false instead of recursing.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/schedule"
	"github.com/jengzang/bim4d-backend-go/internal/stats"
)

// ErrUnavailable means the cache could not serve a request
var ErrUnavailable = errors.New("cache unavailable")

// Fingerprinter identifies the current revision of the open document
type Fingerprinter interface {
	Fingerprint() (string, error)
}

// Options configures a SequenceCache
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	EvictFraction float64
	Logger        *slog.Logger
	Now           func() time.Time
}

// Defaults
const (
	DefaultTTL           = 300 * time.Second
	DefaultMaxEntries    = 100
	DefaultEvictFraction = 0.25
	sampleWindow         = 256
)

type entry struct {
	value    any
	storedAt time.Time
	seq      uint64 // insertion order, breaks storedAt ties
}

// OperationStats accumulates timings for one cache operation
type OperationStats struct {
	Calls          int           `json:"calls"`
	TotalTime      time.Duration `json:"total_time"`
	ItemsProcessed int           `json:"items_processed"`
	sampler        *stats.Sampler
}

// SequenceCache is safe for concurrent use
type SequenceCache struct {
	src  schedule.Source
	doc  Fingerprinter
	opts Options
	log  *slog.Logger

	mu          sync.Mutex
	entries     map[string]*entry
	inflight    map[string]bool
	fingerprint string
	fpKnown     bool
	ops         map[string]*OperationStats
	hits        int
	misses      int
	evictions   int
	seq         uint64
}

// New creates a cache over src. doc may be nil when the document has no
// revision identity; entries then only expire by age.
func New(src schedule.Source, doc Fingerprinter, opts Options) *SequenceCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.EvictFraction <= 0 || opts.EvictFraction > 1 {
		opts.EvictFraction = DefaultEvictFraction
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SequenceCache{
		src:      src,
		doc:      doc,
		opts:     opts,
		log:      logger.With("component", "sequence_cache"),
		entries:  make(map[string]*entry),
		inflight: make(map[string]bool),
		ops:      make(map[string]*OperationStats),
	}
}

// load returns the cached value for key or computes it. compute returns the
// value and the number of items it processed.
func load[T any](ctx context.Context, c *SequenceCache, op, key string, compute func(ctx context.Context) (T, int, error)) (T, bool) {
	var zero T

	c.mu.Lock()
	c.checkFingerprintLocked()
	if e, ok := c.entries[key]; ok {
		if c.opts.Now().Sub(e.storedAt) <= c.opts.TTL {
			c.hits++
			c.mu.Unlock()
			return e.value.(T), true
		}
		delete(c.entries, key)
	}
	if c.inflight[key] {
		c.mu.Unlock()
		c.log.Warn("re-entrant request for key being computed", "key", key)
		return zero, false
	}
	c.inflight[key] = true
	c.misses++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	began := time.Now()
	value, items, err := compute(ctx)
	if err != nil {
		c.log.Warn("cache computation failed", "op", op, "key", key, "error", err)
		return zero, false
	}
	c.record(op, time.Since(began), items)

	c.mu.Lock()
	c.seq++
	c.entries[key] = &entry{value: value, storedAt: c.opts.Now(), seq: c.seq}
	c.evictLocked(key)
	c.mu.Unlock()
	c.log.Debug("cache populated", "op", op, "key", key, "items", items)
	return value, true
}

func (c *SequenceCache) checkFingerprintLocked() {
	fp := ""
	if c.doc != nil {
		var err error
		if fp, err = c.doc.Fingerprint(); err != nil {
			c.log.Warn("failed to fingerprint document", "error", err)
			fp = ""
		}
	}
	if c.fpKnown && fp != c.fingerprint {
		c.log.Info("document changed, clearing cache", "old", c.fingerprint, "new", fp)
		c.resetLocked()
	}
	c.fingerprint = fp
	c.fpKnown = true
}

// evictLocked drops the oldest entries once over the limit. keep is the
// key just stored and is never a candidate.
func (c *SequenceCache) evictLocked(keep string) {
	if len(c.entries) <= c.opts.MaxEntries {
		return
	}
	type aged struct {
		key string
		at  time.Time
		seq uint64
	}
	n := int(float64(len(c.entries)) * c.opts.EvictFraction)
	if n < 1 {
		n = 1
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		if k != keep {
			all = append(all, aged{k, e.storedAt, e.seq})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].at.Equal(all[j].at) {
			return all[i].at.Before(all[j].at)
		}
		return all[i].seq < all[j].seq
	})
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	c.evictions += n
	c.log.Debug("evicted oldest entries", "count", n, "remaining", len(c.entries))
}

func (c *SequenceCache) record(op string, d time.Duration, items int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.ops[op]
	if !ok {
		s = &OperationStats{sampler: stats.NewSampler(sampleWindow)}
		c.ops[op] = s
	}
	s.Calls++
	s.TotalTime += d
	s.ItemsProcessed += items
	s.sampler.Observe(d)
}

func (c *SequenceCache) resetLocked() {
	c.entries = make(map[string]*entry)
	c.ops = make(map[string]*OperationStats)
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Clear drops all entries, in-flight flags and statistics
func (c *SequenceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.inflight = make(map[string]bool)
	c.fpKnown = false
	c.log.Info("cache cleared")
}

// Len returns the number of live entries
func (c *SequenceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// OperationReport summarizes one operation
type OperationReport struct {
	Calls          int           `json:"calls"`
	TotalSeconds   float64       `json:"total_seconds"`
	AvgSeconds     float64       `json:"avg_seconds"`
	ItemsProcessed int           `json:"items_processed"`
	ItemsPerSecond float64       `json:"items_per_second"`
	Recent         stats.Summary `json:"recent"`
}

// Report is the cache performance report
type Report struct {
	Entries     int                        `json:"entries"`
	Hits        int                        `json:"hits"`
	Misses      int                        `json:"misses"`
	Evictions   int                        `json:"evictions"`
	Fingerprint string                     `json:"fingerprint"`
	Operations  map[string]OperationReport `json:"operations"`
}

// Stats returns a snapshot of the performance counters
func (c *SequenceCache) Stats() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := Report{
		Entries:     len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Fingerprint: c.fingerprint,
		Operations:  make(map[string]OperationReport, len(c.ops)),
	}
	for name, s := range c.ops {
		total := s.TotalTime.Seconds()
		or := OperationReport{
			Calls:          s.Calls,
			TotalSeconds:   total,
			ItemsProcessed: s.ItemsProcessed,
			Recent:         s.sampler.Summary(),
		}
		if s.Calls > 0 {
			or.AvgSeconds = total / float64(s.Calls)
		}
		if total > 0 {
			or.ItemsPerSecond = float64(s.ItemsProcessed) / total
		}
		r.Operations[name] = or
	}
	return r
}

func key(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, ":")
}
