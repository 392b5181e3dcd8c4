package strategy

// Score weights.
const (
	sizeFitBonus        = 1.0
	registryBonus       = 0.3
	registryPenalty     = -0.5
	speedBonus          = 0.2
	successWeight       = 0.3
	reversibilityWeight = 0.2
)

// Score is one strategy's selection score.
type Score struct {
	Strategy ID
	Value    float64
	Eligible bool
}

// Selector scores strategies against live metrics.
type Selector struct {
	store *MetricsStore
}

// NewSelector returns a selector reading from store. A nil store uses fresh
// default metrics.
func NewSelector(store *MetricsStore) *Selector {
	if store == nil {
		store = NewMetricsStore()
	}
	return &Selector{store: store}
}

// Store returns the metrics store the selector reads.
func (s *Selector) Store() *MetricsStore {
	return s.store
}

// Scores computes the score of every concrete strategy in tie-break order.
// A strategy is eligible only when size is at least its minimum size.
func (s *Selector) Scores(size int, hasRegistry, preferSpeed bool) []Score {
	out := make([]Score, 0, len(configs))
	for _, cfg := range Configs() {
		var v float64
		if cfg.InBounds(size) {
			v += sizeFitBonus
		}
		if cfg.UseRegistry {
			if hasRegistry {
				v += registryBonus
			} else {
				v += registryPenalty
			}
		}
		if preferSpeed && !cfg.UseAST {
			v += speedBonus
		}
		v += cfg.ExpectedRatio
		if m, ok := s.store.Snapshot(cfg.ID); ok {
			v += m.SuccessRate * successWeight
			v += m.ReversibilityRate * reversibilityWeight
		}
		out = append(out, Score{Strategy: cfg.ID, Value: v, Eligible: size >= cfg.MinSize})
	}
	return out
}

// Select returns the highest scoring eligible strategy. Ties resolve to the
// strategy declared first. Basic has no minimum size, so a result always
// exists. The text argument is not inspected; scoring depends on size and
// history alone.
func (s *Selector) Select(_ string, size int, hasRegistry, preferSpeed bool) ID {
	best, bestScore := Basic, 0.0
	found := false
	for _, sc := range s.Scores(size, hasRegistry, preferSpeed) {
		if !sc.Eligible {
			continue
		}
		if !found || sc.Value > bestScore {
			best, bestScore, found = sc.Strategy, sc.Value, true
		}
	}
	return best
}
