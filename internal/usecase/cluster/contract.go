package cluster

import (
	"context"

	"github.com/clustra-io/clustra/internal/domain"
)

// Embedder vectorizes keyword batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Options holds the policy knobs for one clustering run. Zero values fall
// back to the documented defaults via normalize.
type Options struct {
	// Tightness is the cosine-distance cutoff for merging clusters, in
	// (0,1). Lower values demand higher similarity (tighter clusters).
	Tightness float64

	// MinVolume drops records whose known volume falls below it. Records
	// with unknown volume always pass.
	MinVolume int64

	// BatchSize caps texts per embedding request.
	BatchSize int

	// Tier cut points: members ranked 1..PrimaryCount are primary,
	// PrimaryCount+1..SecondaryCount secondary, the rest tertiary.
	PrimaryCount   int
	SecondaryCount int

	// Cannibalization: pairs whose top-OverlapTopN keyword overlap ratio
	// exceeds OverlapThreshold are flagged.
	OverlapTopN      int
	OverlapThreshold float64
}

func (o Options) normalize() Options {
	if o.Tightness <= 0 {
		o.Tightness = 0.5
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.PrimaryCount <= 0 {
		o.PrimaryCount = 3
	}
	if o.SecondaryCount <= 0 {
		o.SecondaryCount = 10
	}
	// The secondary tier ends at a cumulative rank, so it can never cut
	// before the primary tier does.
	if o.SecondaryCount < o.PrimaryCount {
		o.SecondaryCount = o.PrimaryCount
	}
	if o.OverlapTopN <= 0 {
		o.OverlapTopN = 10
	}
	if o.OverlapThreshold <= 0 {
		o.OverlapThreshold = 0.8
	}
	return o
}
