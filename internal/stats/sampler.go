package stats

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sampler keeps the most recent duration samples in a fixed ring
type Sampler struct {
	mu      sync.Mutex
	samples []float64 // seconds
	next    int
	full    bool
}

// NewSampler creates a sampler holding up to size samples
func NewSampler(size int) *Sampler {
	if size < 1 {
		size = 1
	}
	return &Sampler{samples: make([]float64, size)}
}

// Observe records one duration
func (s *Sampler) Observe(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[s.next] = d.Seconds()
	s.next++
	if s.next == len(s.samples) {
		s.next = 0
		s.full = true
	}
}

// Summary describes the recent samples in seconds
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

// Summary computes mean and percentiles over the retained samples
func (s *Sampler) Summary() Summary {
	s.mu.Lock()
	n := s.next
	if s.full {
		n = len(s.samples)
	}
	sorted := make([]float64, n)
	copy(sorted, s.samples[:n])
	s.mu.Unlock()

	if n == 0 {
		return Summary{}
	}
	sort.Float64s(sorted)
	return Summary{
		Count: n,
		Mean:  stat.Mean(sorted, nil),
		P50:   Percentile(sorted, 50),
		P95:   Percentile(sorted, 95),
		Max:   sorted[n-1],
	}
}

// Percentile returns the p-th percentile (0-100) of sorted values using
// linear interpolation between closest ranks
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return stat.Quantile(p/100, stat.LinInterp, sorted, nil)
}
