package domain

// DragStep records one locked-in removal during drag optimization.
// Steps are append-only; a recorded step is never mutated.
type DragStep struct {
	RemovedItem      string
	ConfidenceBefore float64
	ConfidenceAfter  float64
	Delta            float64

	// Official marks a removal that came from the caller's strategic
	// keyword list rather than from incidental entities in the text.
	Official bool
}

// OptimizationResult is the full trace of one drag-optimization run.
// Immutable after the run completes.
type OptimizationResult struct {
	RunID              string
	BaselineConfidence float64
	BaselineCategory   string
	Steps              []DragStep
	FinalConfidence    float64

	Removed         []string
	RemovedOfficial []string
	RemovedOther    []string
}

// TotalImprovement is the confidence gained over the baseline.
func (r *OptimizationResult) TotalImprovement() float64 {
	return r.FinalConfidence - r.BaselineConfidence
}

// RemovedSet returns the removed items as a set.
func (r *OptimizationResult) RemovedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Removed))
	for _, item := range r.Removed {
		set[item] = struct{}{}
	}
	return set
}
