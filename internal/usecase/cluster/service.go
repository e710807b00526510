// Package cluster implements the keyword clustering engine: volume
// filtering, batched embedding, agglomerative grouping, per-cluster
// scoring, and cannibalization detection.
package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/domain/vector"
)

// Service runs clustering analyses.
type Service struct {
	embed  Embedder
	logger *zap.Logger
}

// New creates a clustering service.
func New(embed Embedder, logger *zap.Logger) *Service {
	return &Service{embed: embed, logger: logger}
}

// Run filters, embeds, and clusters the records, then scores every cluster
// and flags cannibalizing pairs. Empty input (or everything filtered away)
// yields an empty analysis, not an error. progress is invoked once per
// embedded batch; nil is fine.
func (s *Service) Run(
	ctx context.Context, records []domain.KeywordRecord, opts Options, progress domain.Progress,
) (*domain.Analysis, error) {
	opts = opts.normalize()
	analysis := &domain.Analysis{RunID: uuid.NewString()}

	filtered := filterByVolume(records, opts.MinVolume)
	if len(filtered) == 0 {
		s.logger.Info("No keywords survive the volume filter",
			zap.String("run_id", analysis.RunID),
			zap.Int("input", len(records)),
			zap.Int64("min_volume", opts.MinVolume),
		)
		return analysis, nil
	}

	vecs, err := s.embedAll(ctx, filtered, opts.BatchSize, progress)
	if err != nil {
		return nil, err
	}

	groups := agglomerate(vecs, opts.Tightness)

	analysis.Clusters = make([]domain.Cluster, 0, len(groups))
	for id, group := range groups {
		analysis.Clusters = append(analysis.Clusters, buildCluster(id, group, filtered, vecs, opts))
	}
	analysis.Cannibalization = detectCannibalization(analysis.Clusters, opts)

	s.logger.Info("Clustering run completed",
		zap.String("run_id", analysis.RunID),
		zap.Int("keywords", len(filtered)),
		zap.Int("clusters", len(analysis.Clusters)),
		zap.Int("cannibalization_pairs", len(analysis.Cannibalization)),
	)
	return analysis, nil
}

// filterByVolume drops records whose known volume is below the floor.
// Unknown volumes pass unconditionally.
func filterByVolume(records []domain.KeywordRecord, minVolume int64) []domain.KeywordRecord {
	if minVolume <= 0 {
		return records
	}
	out := make([]domain.KeywordRecord, 0, len(records))
	for _, r := range records {
		if r.VolumeKnown && r.Volume < minVolume {
			continue
		}
		out = append(out, r)
	}
	return out
}

// embedAll vectorizes records in batches, honoring cancellation between
// batches and reporting progress after each.
func (s *Service) embedAll(
	ctx context.Context, records []domain.KeywordRecord, batchSize int, progress domain.Progress,
) ([][]float32, error) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	total := (len(texts) + batchSize - 1) / batchSize
	vecs := make([][]float32, 0, len(texts))

	for b := 0; b < total; b++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embed batch %d/%d: %w", b+1, total, err)
		}

		start := b * batchSize
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		res, err := s.embed.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d/%d: %w", b+1, total, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("embed batch %d/%d: got %d vectors for %d texts: %w",
				b+1, total, len(res.Embeddings), end-start, domain.ErrProvider)
		}

		vecs = append(vecs, res.Embeddings...)
		progress.Report(b+1, total)
	}

	return vecs, nil
}

// buildCluster scores one member group: centroid, coherence, hub selection,
// and tier ranking.
func buildCluster(
	id int, group []int, records []domain.KeywordRecord, vecs [][]float32, opts Options,
) domain.Cluster {
	members := make([]domain.KeywordRecord, len(group))
	memberVecs := make([][]float32, len(group))
	for i, idx := range group {
		members[i] = records[idx]
		memberVecs[i] = vecs[idx]
	}

	centroid := vector.Centroid(memberVecs)

	// Combined representativeness: centrality weighted by volume. Unknown
	// volumes score as zero volume, leaving ranking to centrality ties.
	type ranked struct {
		text       string
		centrality float64
		score      float64
		volume     int64
	}
	rankedMembers := make([]ranked, len(members))
	var totalVolume int64
	for i, m := range members {
		centrality := vector.Cosine(memberVecs[i], centroid)
		var vol int64
		if m.VolumeKnown {
			vol = m.Volume
			totalVolume += m.Volume
		}
		rankedMembers[i] = ranked{
			text:       m.Text,
			centrality: centrality,
			score:      centrality * math.Log(float64(vol)+1),
			volume:     vol,
		}
	}
	sort.SliceStable(rankedMembers, func(i, j int) bool {
		a, b := rankedMembers[i], rankedMembers[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.centrality != b.centrality {
			return a.centrality > b.centrality
		}
		return a.text < b.text
	})

	texts := make([]string, len(rankedMembers))
	for i, r := range rankedMembers {
		texts[i] = r.text
	}

	primaryEnd := min(opts.PrimaryCount, len(texts))
	secondaryEnd := min(opts.SecondaryCount, len(texts))

	return domain.Cluster{
		ID:          id,
		Members:     members,
		Centroid:    centroid,
		Coherence:   vector.MeanPairwiseCosine(memberVecs),
		HubKeyword:  texts[0],
		Primary:     texts[:primaryEnd],
		Secondary:   texts[primaryEnd:secondaryEnd],
		Tertiary:    texts[secondaryEnd:],
		TotalVolume: totalVolume,
	}
}

// detectCannibalization compares the top keywords of every cluster pair.
// The overlap ratio is shared count over the smaller top list, so a small
// cluster fully contained in a big one scores 1.0.
func detectCannibalization(clusters []domain.Cluster, opts Options) []domain.CannibalizationPair {
	tops := make([]map[string]struct{}, len(clusters))
	for i := range clusters {
		top := clusters[i].TopKeywords(opts.OverlapTopN)
		set := make(map[string]struct{}, len(top))
		for _, kw := range top {
			set[kw] = struct{}{}
		}
		tops[i] = set
	}

	var pairs []domain.CannibalizationPair
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			denom := min(len(tops[i]), len(tops[j]))
			if denom == 0 {
				continue
			}
			shared := 0
			for kw := range tops[i] {
				if _, ok := tops[j][kw]; ok {
					shared++
				}
			}
			ratio := float64(shared) / float64(denom)
			if ratio > opts.OverlapThreshold {
				pairs = append(pairs, domain.CannibalizationPair{
					ClusterA:     clusters[i].ID,
					ClusterB:     clusters[j].ID,
					OverlapRatio: ratio,
				})
			}
		}
	}
	return pairs
}
