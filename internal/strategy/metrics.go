package strategy

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrUnknownStrategy is returned when an outcome names Auto or an ID
// outside the closed set.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Outcome is the observed result of one compression call.
type Outcome struct {
	Strategy       ID            // Strategy that ran
	Ratio          float64       // Achieved compression ratio
	TokensSaved    int           // Original minus compressed token estimate
	ProcessingTime time.Duration // Wall time of the transform
	Success        bool          // Whether the transform completed
	Reversible     *bool         // Round-trip outcome, nil when not validated
}

// Metrics is a snapshot of the running statistics for one strategy.
type Metrics struct {
	Strategy          ID      `json:"strategy"`
	AvgRatio          float64 `json:"avg_compression_ratio"`
	AvgTokensSaved    int     `json:"avg_tokens_saved"`
	AvgProcessingMs   float64 `json:"avg_processing_ms"`
	SuccessRate       float64 `json:"success_rate"`
	ReversibilityRate float64 `json:"reversibility_rate"`
	UseCount          int     `json:"use_count"`
}

type counters struct {
	metrics    Metrics
	successes  int
	reversible int
	observed   int // outcomes that carried a reversibility result
}

// MetricsStore holds per-strategy running averages. It is safe for
// concurrent use; each update holds the lock for one read-modify-write.
type MetricsStore struct {
	mu   sync.Mutex
	data map[ID]*counters
}

// NewMetricsStore seeds every strategy with its expected ratio and perfect
// success and reversibility rates.
func NewMetricsStore() *MetricsStore {
	s := &MetricsStore{}
	s.Reset()
	return s
}

// Reset restores the initial values.
func (s *MetricsStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[ID]*counters, len(configs))
	for _, id := range Concrete() {
		s.data[id] = &counters{metrics: Metrics{
			Strategy:          id,
			AvgRatio:          configs[id].ExpectedRatio,
			SuccessRate:       1.0,
			ReversibilityRate: 1.0,
		}}
	}
}

// Record folds one outcome into the strategy's cumulative averages.
func (s *MetricsStore) Record(o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[o.Strategy]
	if !ok {
		return ErrUnknownStrategy
	}

	m := &c.metrics
	n := float64(m.UseCount)
	m.AvgRatio = (m.AvgRatio*n + o.Ratio) / (n + 1)
	m.AvgTokensSaved = (m.AvgTokensSaved*m.UseCount + o.TokensSaved) / (m.UseCount + 1)
	ms := float64(o.ProcessingTime) / float64(time.Millisecond)
	m.AvgProcessingMs = (m.AvgProcessingMs*n + ms) / (n + 1)

	m.UseCount++
	if o.Success {
		c.successes++
	}
	m.SuccessRate = float64(c.successes) / float64(m.UseCount)

	if o.Reversible != nil {
		c.observed++
		if *o.Reversible {
			c.reversible++
		}
		m.ReversibilityRate = float64(c.reversible) / float64(c.observed)
	}
	return nil
}

// Snapshot returns the current metrics for id.
func (s *MetricsStore) Snapshot(id ID) (Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[id]
	if !ok {
		return Metrics{}, false
	}
	return c.metrics, true
}

// All returns a snapshot of every strategy in tie-break order.
func (s *MetricsStore) All() []Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Metrics, 0, len(s.data))
	for _, id := range Concrete() {
		out = append(out, s.data[id].metrics)
	}
	return out
}

// Compare returns all strategies ordered by average ratio weighted by
// success rate, best first.
func (s *MetricsStore) Compare() []Metrics {
	all := s.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].AvgRatio*all[i].SuccessRate > all[j].AvgRatio*all[j].SuccessRate
	})
	return all
}
