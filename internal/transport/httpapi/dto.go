package httpapi

import (
	"fmt"
	"strings"

	"github.com/clustra-io/clustra/internal/domain"
	clusteruc "github.com/clustra-io/clustra/internal/usecase/cluster"
	draguc "github.com/clustra-io/clustra/internal/usecase/drag"
	usageuc "github.com/clustra-io/clustra/internal/usecase/usage"
	validateuc "github.com/clustra-io/clustra/internal/usecase/validate"
)

// errorResponse is the JSON error body shared by every endpoint.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeInsufficientSignal = "insufficient_signal"
	codeQuotaExceeded      = "quota_exceeded"
	codeProviderError      = "provider_error"
	codeInternalError      = "internal_error"
)

type keywordInput struct {
	Text   string `json:"text"`
	Volume *int64 `json:"volume,omitempty"`
}

type clusterRequest struct {
	Keywords       []keywordInput `json:"keywords"`
	Mode           string         `json:"mode,omitempty"` // "", "discover", "populate"
	TargetCategory string         `json:"target_category,omitempty"`

	Tightness        float64 `json:"tightness,omitempty"`
	MinVolume        int64   `json:"min_volume,omitempty"`
	PrimaryCount     int     `json:"primary_count,omitempty"`
	SecondaryCount   int     `json:"secondary_count,omitempty"`
	OverlapTopN      int     `json:"overlap_top_n,omitempty"`
	OverlapThreshold float64 `json:"overlap_threshold,omitempty"`
}

func (r clusterRequest) records() ([]domain.KeywordRecord, error) {
	records := make([]domain.KeywordRecord, 0, len(r.Keywords))
	for i, kw := range r.Keywords {
		var rec domain.KeywordRecord
		var err error
		if kw.Volume == nil {
			rec, err = domain.NewKeywordRecordUnknownVolume(kw.Text)
		} else {
			rec, err = domain.NewKeywordRecord(kw.Text, *kw.Volume)
		}
		if err != nil {
			return nil, fmt.Errorf("keyword %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// options maps request overrides onto the configured defaults, rejecting
// values the config layer would refuse.
func (r clusterRequest) options(defaults clusteruc.Options) (clusteruc.Options, error) {
	opts := defaults
	if r.Tightness > 0 {
		if r.Tightness >= 1 {
			return clusteruc.Options{}, fmt.Errorf("tightness must be in (0,1), got %v: %w",
				r.Tightness, domain.ErrInvalidInput)
		}
		opts.Tightness = r.Tightness
	}
	if r.MinVolume > 0 {
		opts.MinVolume = r.MinVolume
	}
	if r.PrimaryCount > 0 {
		opts.PrimaryCount = r.PrimaryCount
	}
	if r.SecondaryCount > 0 {
		opts.SecondaryCount = r.SecondaryCount
	}
	if r.OverlapTopN > 0 {
		opts.OverlapTopN = r.OverlapTopN
	}
	if r.OverlapThreshold > 0 {
		if r.OverlapThreshold > 1 {
			return clusteruc.Options{}, fmt.Errorf("overlap_threshold must be <= 1, got %v: %w",
				r.OverlapThreshold, domain.ErrInvalidInput)
		}
		opts.OverlapThreshold = r.OverlapThreshold
	}
	// Cross-field check over the merged result: an override can invalidate
	// a default it never touched. Zero means unset and falls back to the
	// engine defaults.
	if opts.SecondaryCount > 0 && opts.SecondaryCount < opts.PrimaryCount {
		return clusteruc.Options{}, fmt.Errorf("secondary_count (%d) must be >= primary_count (%d): %w",
			opts.SecondaryCount, opts.PrimaryCount, domain.ErrInvalidInput)
	}
	return opts, nil
}

type clusterResponse struct {
	ID                 int      `json:"cluster_id"`
	HubKeyword         string   `json:"hub_keyword"`
	TotalKeywords      int      `json:"total_keywords"`
	TotalVolume        int64    `json:"total_volume"`
	Coherence          float64  `json:"coherence"`
	Primary            []string `json:"primary_keywords"`
	Secondary          []string `json:"secondary_keywords,omitempty"`
	Tertiary           []string `json:"tertiary_keywords,omitempty"`
	DetectedCategory   string   `json:"detected_category,omitempty"`
	CategoryConfidence float64  `json:"category_confidence,omitempty"`
	MatchesTarget      *bool    `json:"matches_target,omitempty"`
	TopEntities        []string `json:"top_entities,omitempty"`
	Cannibalization    bool     `json:"cannibalization_flag"`
}

type cannibalizationResponse struct {
	ClusterA     int     `json:"cluster_a"`
	ClusterB     int     `json:"cluster_b"`
	OverlapRatio float64 `json:"overlap_ratio"`
}

type analysisResponse struct {
	RunID           string                    `json:"run_id"`
	Clusters        []clusterResponse         `json:"clusters"`
	Cannibalization []cannibalizationResponse `json:"cannibalization,omitempty"`
}

func analysisToResponse(a *domain.Analysis) analysisResponse {
	resp := analysisResponse{
		RunID:    a.RunID,
		Clusters: make([]clusterResponse, len(a.Clusters)),
	}
	for i := range a.Clusters {
		c := &a.Clusters[i]
		resp.Clusters[i] = clusterResponse{
			ID:                 c.ID,
			HubKeyword:         c.HubKeyword,
			TotalKeywords:      c.Size(),
			TotalVolume:        c.TotalVolume,
			Coherence:          c.Coherence,
			Primary:            c.Primary,
			Secondary:          c.Secondary,
			Tertiary:           c.Tertiary,
			DetectedCategory:   c.DetectedCategory,
			CategoryConfidence: c.CategoryConfidence,
			MatchesTarget:      c.MatchesTarget,
			TopEntities:        c.TopEntities,
			Cannibalization:    a.CannibalizationFlag(c.ID),
		}
	}
	for _, p := range a.Cannibalization {
		resp.Cannibalization = append(resp.Cannibalization, cannibalizationResponse{
			ClusterA:     p.ClusterA,
			ClusterB:     p.ClusterB,
			OverlapRatio: p.OverlapRatio,
		})
	}
	return resp
}

type validateRequest struct {
	Draft          string   `json:"draft"`
	TargetCategory string   `json:"target_category"`
	Primary        []string `json:"primary_keywords,omitempty"`
	Secondary      []string `json:"secondary_keywords,omitempty"`
	Tertiary       []string `json:"tertiary_keywords,omitempty"`
}

type categoryScoreResponse struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type entityResponse struct {
	Name         string  `json:"name"`
	Type         string  `json:"type,omitempty"`
	Salience     float64 `json:"salience"`
	WikipediaURL string  `json:"wikipedia_url,omitempty"`
}

type tierCoverageResponse struct {
	Found      int      `json:"found"`
	Total      int      `json:"total"`
	Percentage float64  `json:"percentage"`
	Missing    []string `json:"missing,omitempty"`
}

type coverageResponse struct {
	Primary   tierCoverageResponse `json:"primary"`
	Secondary tierCoverageResponse `json:"secondary"`
	Tertiary  tierCoverageResponse `json:"tertiary"`
}

type validateResponse struct {
	TargetCategory   string                  `json:"target_category"`
	WordCount        int                     `json:"word_count"`
	MatchesTarget    bool                    `json:"matches_target"`
	MatchedCategory  string                  `json:"matched_category,omitempty"`
	DetectedCategory string                  `json:"detected_category"`
	Confidence       float64                 `json:"confidence"`
	AllCategories    []categoryScoreResponse `json:"all_categories"`
	Entities         []entityResponse        `json:"entities,omitempty"`
	Coverage         *coverageResponse       `json:"keyword_coverage,omitempty"`
}

func reportToResponse(r *validateuc.Report) validateResponse {
	resp := validateResponse{
		TargetCategory:   r.TargetCategory,
		WordCount:        r.WordCount,
		MatchesTarget:    r.MatchesTarget,
		MatchedCategory:  r.MatchedCategory,
		DetectedCategory: r.DetectedCategory,
		Confidence:       r.Confidence,
		AllCategories:    make([]categoryScoreResponse, len(r.AllCategories)),
	}
	for i, c := range r.AllCategories {
		resp.AllCategories[i] = categoryScoreResponse{Name: c.Name, Confidence: c.Confidence}
	}
	for _, e := range r.Entities {
		resp.Entities = append(resp.Entities, entityResponse{
			Name:         e.Name,
			Type:         e.Type,
			Salience:     e.Salience,
			WikipediaURL: e.WikipediaURL,
		})
	}
	if r.Coverage != nil {
		resp.Coverage = &coverageResponse{
			Primary:   tierToResponse(r.Coverage.Primary),
			Secondary: tierToResponse(r.Coverage.Secondary),
			Tertiary:  tierToResponse(r.Coverage.Tertiary),
		}
	}
	return resp
}

func tierToResponse(t validateuc.TierCoverage) tierCoverageResponse {
	return tierCoverageResponse{
		Found:      t.Found,
		Total:      t.Total,
		Percentage: t.Percentage,
		Missing:    t.Missing,
	}
}

type optimizeRequest struct {
	Draft            string   `json:"draft"`
	TargetCategory   string   `json:"target_category"`
	Items            []string `json:"items"`
	OfficialKeywords []string `json:"official_keywords,omitempty"`
	MaxIterations    int      `json:"max_iterations,omitempty"`
	MinGain          float64  `json:"min_gain,omitempty"`
}

// items flags each removable term as official when it appears in the
// official keyword list, case-insensitively.
func (r optimizeRequest) items() []draguc.Item {
	official := make(map[string]struct{}, len(r.OfficialKeywords))
	for _, kw := range r.OfficialKeywords {
		official[strings.ToLower(kw)] = struct{}{}
	}
	items := make([]draguc.Item, len(r.Items))
	for i, text := range r.Items {
		_, isOfficial := official[strings.ToLower(text)]
		items[i] = draguc.Item{Text: text, Official: isOfficial}
	}
	return items
}

type dragStepResponse struct {
	RemovedItem      string  `json:"removed_item"`
	ConfidenceBefore float64 `json:"confidence_before"`
	ConfidenceAfter  float64 `json:"confidence_after"`
	Delta            float64 `json:"delta"`
	Official         bool    `json:"is_official_keyword"`
}

type optimizeResponse struct {
	RunID              string             `json:"run_id"`
	BaselineConfidence float64            `json:"baseline_confidence"`
	BaselineCategory   string             `json:"baseline_category,omitempty"`
	Steps              []dragStepResponse `json:"steps"`
	FinalConfidence    float64            `json:"final_confidence"`
	TotalImprovement   float64            `json:"total_improvement"`
	Removed            []string           `json:"removed,omitempty"`
	RemovedOfficial    []string           `json:"removed_official_keywords,omitempty"`
	RemovedOther       []string           `json:"removed_other_entities,omitempty"`
}

func optimizationToResponse(r *domain.OptimizationResult) optimizeResponse {
	resp := optimizeResponse{
		RunID:              r.RunID,
		BaselineConfidence: r.BaselineConfidence,
		BaselineCategory:   r.BaselineCategory,
		Steps:              make([]dragStepResponse, len(r.Steps)),
		FinalConfidence:    r.FinalConfidence,
		TotalImprovement:   r.TotalImprovement(),
		Removed:            r.Removed,
		RemovedOfficial:    r.RemovedOfficial,
		RemovedOther:       r.RemovedOther,
	}
	for i, s := range r.Steps {
		resp.Steps[i] = dragStepResponse{
			RemovedItem:      s.RemovedItem,
			ConfidenceBefore: s.ConfidenceBefore,
			ConfidenceAfter:  s.ConfidenceAfter,
			Delta:            s.Delta,
			Official:         s.Official,
		}
	}
	return resp
}

type periodUsageResponse struct {
	StartAt   int64 `json:"period_start_ms"`
	EndAt     int64 `json:"period_end_ms"`
	Limit     int64 `json:"tokens_limit"`
	Used      int64 `json:"tokens_used"`
	Remaining int64 `json:"tokens_remaining"`
	Exhausted bool  `json:"is_exhausted"`
}

type usageResponse struct {
	Daily   periodUsageResponse `json:"daily"`
	Monthly periodUsageResponse `json:"monthly"`
}

func usageToResponse(r usageuc.Report) usageResponse {
	conv := func(p usageuc.PeriodUsage) periodUsageResponse {
		return periodUsageResponse{
			StartAt:   p.Start,
			EndAt:     p.End,
			Limit:     p.Limit,
			Used:      p.Used,
			Remaining: p.Remaining,
			Exhausted: p.Exhausted,
		}
	}
	return usageResponse{Daily: conv(r.Daily), Monthly: conv(r.Monthly)}
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
