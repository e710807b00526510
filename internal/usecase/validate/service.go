// Package validate checks a content draft against a target category and
// measures how much of a keyword plan the draft actually covers.
package validate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/domain/category"
)

// TierCoverage reports how many keywords of one tier appear in the draft.
type TierCoverage struct {
	Found      int
	Total      int
	Percentage float64
	Missing    []string
}

// Coverage holds per-tier keyword coverage for a draft.
type Coverage struct {
	Primary   TierCoverage
	Secondary TierCoverage
	Tertiary  TierCoverage
}

// Report is the outcome of one draft validation.
type Report struct {
	TargetCategory   string
	WordCount        int
	MatchesTarget    bool
	MatchedCategory  string
	DetectedCategory string
	Confidence       float64
	AllCategories    []domain.CategoryScore
	Entities         []domain.Entity
	Coverage         *Coverage
}

// Options holds the inputs beyond the draft itself.
type Options struct {
	TargetCategory string

	// Tier keyword lists for coverage scoring. All empty means no
	// coverage section in the report.
	Primary   []string
	Secondary []string
	Tertiary  []string
}

// Service validates drafts through a category classifier.
type Service struct {
	classifier domain.Classifier
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a validation service. limiter may be shared with other
// classifier consumers.
func New(classifier domain.Classifier, limiter *rate.Limiter, logger *zap.Logger) *Service {
	return &Service{classifier: classifier, limiter: limiter, logger: logger}
}

// Run classifies the draft, compares the detections against the target,
// and scores keyword coverage when tier lists are supplied. A draft that
// carries no category signal wraps ErrInsufficientSignal so callers can
// distinguish it from provider failures with errors.Is.
func (s *Service) Run(ctx context.Context, draft string, opts Options) (*Report, error) {
	if strings.TrimSpace(draft) == "" || strings.TrimSpace(opts.TargetCategory) == "" {
		return nil, fmt.Errorf("draft and target category are required: %w", domain.ErrInvalidInput)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := s.classifier.Classify(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("validate draft: %w", err)
	}

	report := &Report{
		TargetCategory:   opts.TargetCategory,
		WordCount:        len(strings.Fields(draft)),
		DetectedCategory: result.Category,
		Confidence:       result.Confidence,
		AllCategories:    result.AllCategories,
		Entities:         result.Entities,
	}

	// Any detected candidate matching the target counts; the matched
	// candidate's confidence replaces the top detection's.
	for _, cand := range result.AllCategories {
		if category.Matches(cand.Name, opts.TargetCategory) {
			report.MatchesTarget = true
			report.MatchedCategory = cand.Name
			report.Confidence = cand.Confidence
			break
		}
	}

	if len(opts.Primary)+len(opts.Secondary)+len(opts.Tertiary) > 0 {
		report.Coverage = &Coverage{
			Primary:   tierCoverage(draft, opts.Primary),
			Secondary: tierCoverage(draft, opts.Secondary),
			Tertiary:  tierCoverage(draft, opts.Tertiary),
		}
	}

	s.logger.Info("Draft validated",
		zap.String("target", opts.TargetCategory),
		zap.String("detected", report.DetectedCategory),
		zap.Bool("matches", report.MatchesTarget),
		zap.Int("words", report.WordCount),
	)
	return report, nil
}

// tierCoverage counts keywords present in the draft by case-insensitive
// substring match.
func tierCoverage(draft string, keywords []string) TierCoverage {
	cov := TierCoverage{Total: len(keywords)}
	if len(keywords) == 0 {
		return cov
	}

	draftLower := strings.ToLower(draft)
	for _, kw := range keywords {
		if strings.Contains(draftLower, strings.ToLower(kw)) {
			cov.Found++
		} else {
			cov.Missing = append(cov.Missing, kw)
		}
	}
	cov.Percentage = float64(cov.Found) / float64(cov.Total)
	return cov
}
