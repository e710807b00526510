// Package drag implements greedy drag optimization: repeatedly remove the
// single item whose deletion most improves the text's confidence against a
// target category, until no removal helps or the iteration cap is hit.
package drag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/domain/category"
)

// Item is one removable term. Official marks terms that came from the
// strategic keyword list rather than from incidental entities in the draft.
type Item struct {
	Text     string
	Official bool
}

// Options holds drag policy for one run.
type Options struct {
	// MaxIterations caps locked-in removals. Zero means one per item.
	MaxIterations int

	// MinGain is the smallest confidence increase worth locking in.
	MinGain float64

	// MinWords is the floor below which a candidate text is skipped.
	MinWords int
}

func (o Options) normalize(itemCount int) Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = itemCount
	}
	if o.MinWords <= 0 {
		o.MinWords = 5
	}
	return o
}

// Service runs drag optimizations.
type Service struct {
	classifier domain.Classifier
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a drag service. limiter may be shared with other classifier
// consumers.
func New(classifier domain.Classifier, limiter *rate.Limiter, logger *zap.Logger) *Service {
	return &Service{classifier: classifier, limiter: limiter, logger: logger}
}

// Optimize scores the full text, then greedily removes one item per
// iteration, always the one whose removal yields the largest confidence
// gain against the target. Candidates that fall below the word floor or
// lose all category signal are skipped. The run is deterministic for a
// deterministic classifier: among equal gains the later item in input
// order goes, since callers pass items salience-descending and the less
// important term should be the one removed.
func (s *Service) Optimize(
	ctx context.Context, text, target string, items []Item, opts Options,
) (*domain.OptimizationResult, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("text and target category are required: %w", domain.ErrInvalidInput)
	}
	opts = opts.normalize(len(items))

	baseline, err := s.score(ctx, text, target)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientSignal) {
			return nil, fmt.Errorf("baseline text carries no category signal: %w", err)
		}
		return nil, fmt.Errorf("baseline: %w", err)
	}

	result := &domain.OptimizationResult{
		RunID:              uuid.NewString(),
		BaselineConfidence: baseline.confidence,
		BaselineCategory:   baseline.category,
		FinalConfidence:    baseline.confidence,
	}

	current := text
	confidence := baseline.confidence
	remaining := make([]Item, len(items))
	copy(remaining, items)

	for iter := 1; iter <= opts.MaxIterations && len(remaining) > 0; iter++ {
		bestIdx := -1
		bestConfidence := confidence

		for i, item := range remaining {
			candidate := stripItem(current, item.Text)
			if len(strings.Fields(candidate)) < opts.MinWords {
				continue
			}

			scored, err := s.score(ctx, candidate, target)
			if err != nil {
				if errors.Is(err, domain.ErrInsufficientSignal) {
					continue
				}
				return nil, fmt.Errorf("drag iteration %d (%q): %w", iter, item.Text, err)
			}

			// Equal gains replace, so the later (lower-salience) item wins.
			if scored.confidence-confidence > opts.MinGain && scored.confidence >= bestConfidence {
				bestIdx = i
				bestConfidence = scored.confidence
			}
		}
		if bestIdx < 0 {
			break
		}

		removed := remaining[bestIdx]
		current = stripItem(current, removed.Text)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		result.Steps = append(result.Steps, domain.DragStep{
			RemovedItem:      removed.Text,
			ConfidenceBefore: confidence,
			ConfidenceAfter:  bestConfidence,
			Delta:            bestConfidence - confidence,
			Official:         removed.Official,
		})
		result.Removed = append(result.Removed, removed.Text)
		if removed.Official {
			result.RemovedOfficial = append(result.RemovedOfficial, removed.Text)
		} else {
			result.RemovedOther = append(result.RemovedOther, removed.Text)
		}
		confidence = bestConfidence

		s.logger.Debug("Drag removal locked in",
			zap.String("run_id", result.RunID),
			zap.Int("iteration", iter),
			zap.String("removed", removed.Text),
			zap.Bool("official", removed.Official),
			zap.Float64("confidence", confidence),
		)
	}

	result.FinalConfidence = confidence
	s.logger.Info("Drag optimization completed",
		zap.String("run_id", result.RunID),
		zap.Int("steps", len(result.Steps)),
		zap.Float64("baseline", result.BaselineConfidence),
		zap.Float64("final", result.FinalConfidence),
	)
	return result, nil
}

type targetScore struct {
	confidence float64
	category   string
}

// score classifies text and reads its confidence against the target: the
// first detected candidate matching the target wins its own confidence,
// otherwise the top detection's confidence stands in.
func (s *Service) score(ctx context.Context, text, target string) (targetScore, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return targetScore{}, err
	}
	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return targetScore{}, err
	}

	out := targetScore{confidence: result.Confidence, category: result.Category}
	for _, cand := range result.AllCategories {
		if category.Matches(cand.Name, target) {
			out.confidence = cand.Confidence
			break
		}
	}
	return out, nil
}

// stripItem removes every occurrence of item from text, case-insensitively,
// and renormalizes whitespace so word counts stay meaningful.
func stripItem(text, item string) string {
	lowerText := strings.ToLower(text)
	lowerItem := strings.ToLower(item)
	if lowerItem == "" {
		return text
	}

	var b strings.Builder
	for {
		idx := strings.Index(lowerText, lowerItem)
		if idx < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:idx])
		text = text[idx+len(lowerItem):]
		lowerText = lowerText[idx+len(lowerItem):]
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
