// Package annotate attaches category verdicts to clusters: detected
// category and entities in discover mode, target-match verdicts in
// populate mode.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/domain/category"
)

// Mode selects how clusters are annotated.
type Mode string

const (
	// ModeDiscover finds each cluster's natural category.
	ModeDiscover Mode = "discover"
	// ModePopulate tests each cluster against a caller-supplied target.
	ModePopulate Mode = "populate"
)

// Options holds annotation policy for one run.
type Options struct {
	Mode Mode

	// TargetCategory is required in populate mode.
	TargetCategory string

	// MaxTopEntities caps entities copied onto each cluster.
	MaxTopEntities int
}

// Service annotates clusters through a category classifier. Calls are paced
// by the shared rate limiter so a large brief stays inside provider quota.
type Service struct {
	classifier domain.Classifier
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates an annotation service. limiter may be shared with other
// classifier consumers.
func New(classifier domain.Classifier, limiter *rate.Limiter, logger *zap.Logger) *Service {
	return &Service{classifier: classifier, limiter: limiter, logger: logger}
}

// Run annotates every cluster in place, one classifier call per cluster on
// its tier-ordered keyword text. Clusters whose combined text carries no
// category signal are left unannotated rather than failing the run; any
// other classifier error aborts with the cluster id attached. progress is
// invoked after each cluster.
func (s *Service) Run(
	ctx context.Context, analysis *domain.Analysis, opts Options, progress domain.Progress,
) error {
	if opts.Mode == ModePopulate && strings.TrimSpace(opts.TargetCategory) == "" {
		return fmt.Errorf("populate mode requires a target category: %w", domain.ErrInvalidInput)
	}
	if opts.MaxTopEntities <= 0 {
		opts.MaxTopEntities = 5
	}

	total := len(analysis.Clusters)
	for i := range analysis.Clusters {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("annotate cluster %d: %w", analysis.Clusters[i].ID, err)
		}

		if err := s.annotateOne(ctx, &analysis.Clusters[i], opts); err != nil {
			return err
		}
		progress.Report(i+1, total)
	}
	return nil
}

func (s *Service) annotateOne(ctx context.Context, c *domain.Cluster, opts Options) error {
	text := strings.Join(c.Keywords(), " ")

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientSignal) {
			s.logger.Warn("Cluster text carries no category signal",
				zap.Int("cluster_id", c.ID),
				zap.String("hub", c.HubKeyword),
			)
			if opts.Mode == ModePopulate {
				noMatch := false
				c.MatchesTarget = &noMatch
			}
			return nil
		}
		return fmt.Errorf("annotate cluster %d (%q): %w", c.ID, c.HubKeyword, err)
	}

	c.TopEntities = result.TopEntityNames(opts.MaxTopEntities)
	c.DetectedCategory = result.Category
	c.CategoryConfidence = result.Confidence

	if opts.Mode != ModePopulate {
		return nil
	}

	// Any detected candidate matching the target counts; the matched
	// candidate's own confidence wins over the top detection's.
	matched := false
	for _, cand := range result.AllCategories {
		if category.Matches(cand.Name, opts.TargetCategory) {
			matched = true
			c.DetectedCategory = cand.Name
			c.CategoryConfidence = cand.Confidence
			break
		}
	}
	c.MatchesTarget = &matched
	return nil
}
