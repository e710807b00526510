package drag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/domain"
)

type mockClassifier struct {
	fn    func(text string) (domain.Classification, error)
	calls []string
}

func (m *mockClassifier) Classify(_ context.Context, text string) (domain.Classification, error) {
	m.calls = append(m.calls, text)
	return m.fn(text)
}

func travelScore(conf float64) (domain.Classification, error) {
	return domain.Classification{
		Category:      "/Travel/Family",
		Confidence:    conf,
		AllCategories: []domain.CategoryScore{{Name: "/Travel/Family", Confidence: conf}},
	}, nil
}

func newService(c domain.Classifier) *Service {
	return New(c, rate.NewLimiter(rate.Inf, 1), zap.NewNop())
}

const draft = "planning family beach vacations with kids includes cooking class options " +
	"and culinary tours plus resort pools for everyone"

// scenarioClassifier scores the draft by which dragging terms are still
// present, so the greedy order is fully determined.
func scenarioClassifier() *mockClassifier {
	return &mockClassifier{fn: func(text string) (domain.Classification, error) {
		hasCooking := strings.Contains(text, "cooking class")
		hasCulinary := strings.Contains(text, "culinary tours")
		switch {
		case !hasCooking && !hasCulinary:
			return travelScore(0.361)
		case !hasCooking:
			return travelScore(0.324)
		case !hasCulinary:
			return travelScore(0.300)
		default:
			return travelScore(0.271)
		}
	}}
}

func scenarioItems(official ...string) []Item {
	set := make(map[string]struct{}, len(official))
	for _, o := range official {
		set[o] = struct{}{}
	}
	items := make([]Item, 0, 3)
	for _, text := range []string{"cooking class", "culinary tours", "resort pools"} {
		_, isOfficial := set[text]
		items = append(items, Item{Text: text, Official: isOfficial})
	}
	return items
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestOptimize_GreedyScenario(t *testing.T) {
	svc := newService(scenarioClassifier())

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.BaselineConfidence != 0.271 {
		t.Errorf("baseline = %f", result.BaselineConfidence)
	}
	if result.BaselineCategory != "/Travel/Family" {
		t.Errorf("baseline category = %q", result.BaselineCategory)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(result.Steps))
	}
	if result.Steps[0].RemovedItem != "cooking class" || result.Steps[1].RemovedItem != "culinary tours" {
		t.Errorf("removal order = %q, %q", result.Steps[0].RemovedItem, result.Steps[1].RemovedItem)
	}
	if result.Steps[0].ConfidenceBefore != 0.271 || result.Steps[0].ConfidenceAfter != 0.324 {
		t.Errorf("step 1 trajectory = %f -> %f", result.Steps[0].ConfidenceBefore, result.Steps[0].ConfidenceAfter)
	}
	if result.Steps[1].ConfidenceBefore != 0.324 || result.Steps[1].ConfidenceAfter != 0.361 {
		t.Errorf("step 2 trajectory = %f -> %f", result.Steps[1].ConfidenceBefore, result.Steps[1].ConfidenceAfter)
	}
	if result.FinalConfidence != 0.361 {
		t.Errorf("final = %f", result.FinalConfidence)
	}
	if !approx(result.TotalImprovement(), 0.09) {
		t.Errorf("improvement = %f", result.TotalImprovement())
	}

	removed := result.RemovedSet()
	if len(removed) != 2 {
		t.Fatalf("removed set = %v", removed)
	}
	for _, want := range []string{"cooking class", "culinary tours"} {
		if _, ok := removed[want]; !ok {
			t.Errorf("removed set missing %q", want)
		}
	}

	// Confidence sequence never decreases.
	prev := result.BaselineConfidence
	for i, step := range result.Steps {
		if step.ConfidenceAfter < prev {
			t.Errorf("step %d decreases confidence: %f -> %f", i, prev, step.ConfidenceAfter)
		}
		if !approx(step.Delta, step.ConfidenceAfter-step.ConfidenceBefore) {
			t.Errorf("step %d delta = %f", i, step.Delta)
		}
		prev = step.ConfidenceAfter
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestOptimize_DualListAccounting(t *testing.T) {
	svc := newService(scenarioClassifier())

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family",
		scenarioItems("cooking class"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.RemovedOfficial) != 1 || result.RemovedOfficial[0] != "cooking class" {
		t.Errorf("removed official = %v", result.RemovedOfficial)
	}
	if len(result.RemovedOther) != 1 || result.RemovedOther[0] != "culinary tours" {
		t.Errorf("removed other = %v", result.RemovedOther)
	}
	if !result.Steps[0].Official || result.Steps[1].Official {
		t.Errorf("official flags = %v/%v", result.Steps[0].Official, result.Steps[1].Official)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	run := func() *domain.OptimizationResult {
		svc := newService(scenarioClassifier())
		result, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if len(a.Steps) != len(b.Steps) {
		t.Fatalf("step counts differ: %d vs %d", len(a.Steps), len(b.Steps))
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			t.Errorf("step %d differs: %+v vs %+v", i, a.Steps[i], b.Steps[i])
		}
	}
	if a.FinalConfidence != b.FinalConfidence {
		t.Errorf("finals differ: %f vs %f", a.FinalConfidence, b.FinalConfidence)
	}
}

func TestOptimize_NoImprovement(t *testing.T) {
	classifier := &mockClassifier{fn: func(string) (domain.Classification, error) {
		return travelScore(0.5)
	}}
	svc := newService(classifier)

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 0 || len(result.Removed) != 0 {
		t.Errorf("expected no removals, got %v", result.Removed)
	}
	if result.FinalConfidence != result.BaselineConfidence {
		t.Errorf("final %f != baseline %f", result.FinalConfidence, result.BaselineConfidence)
	}
	// Baseline plus one scoring pass over all three items, then stop.
	if len(classifier.calls) != 4 {
		t.Errorf("expected 4 classifier calls, got %d", len(classifier.calls))
	}
}

func TestOptimize_MaxIterationsCap(t *testing.T) {
	// Every removal keeps improving, so only the cap stops the loop.
	classifier := &mockClassifier{fn: func(text string) (domain.Classification, error) {
		conf := 0.2
		for _, term := range []string{"cooking class", "culinary tours", "resort pools"} {
			if !strings.Contains(text, term) {
				conf += 0.1
			}
		}
		return travelScore(conf)
	}}
	svc := newService(classifier)

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family",
		scenarioItems(), Options{MaxIterations: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 1 {
		t.Fatalf("expected the cap to stop at 1 step, got %d", len(result.Steps))
	}
}

func TestOptimize_TieBreakRemovesLaterItem(t *testing.T) {
	// Removing either term alone scores the same, so the later item in
	// input order (the lower-salience one) must go first.
	classifier := &mockClassifier{fn: func(text string) (domain.Classification, error) {
		if !strings.Contains(text, "cooking class") || !strings.Contains(text, "culinary tours") {
			return travelScore(0.5)
		}
		return travelScore(0.3)
	}}
	svc := newService(classifier)

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family",
		scenarioItems(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(result.Steps))
	}
	if result.Steps[0].RemovedItem != "culinary tours" {
		t.Errorf("tie-break removed %q, want the later item", result.Steps[0].RemovedItem)
	}
}

func TestOptimize_MinGainFloor(t *testing.T) {
	classifier := scenarioClassifier()
	svc := newService(classifier)

	// Best available first-step gain is 0.053, below the configured floor.
	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family",
		scenarioItems(), Options{MinGain: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected no steps under the gain floor, got %d", len(result.Steps))
	}
}

func TestOptimize_WordFloorSkipsCandidate(t *testing.T) {
	classifier := &mockClassifier{fn: func(text string) (domain.Classification, error) {
		if !strings.Contains(text, "cooking class") {
			return travelScore(0.9)
		}
		return travelScore(0.3)
	}}
	svc := newService(classifier)

	// Stripping the item leaves 3 words, below the floor of 5, so the
	// improving candidate is never even scored.
	result, err := svc.Optimize(context.Background(), "cooking class is great fun",
		"/Travel/Family", []Item{{Text: "cooking class"}}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected no steps, got %d", len(result.Steps))
	}
	if len(classifier.calls) != 1 {
		t.Errorf("expected only the baseline call, got %d", len(classifier.calls))
	}
}

func TestOptimize_CandidateWithoutSignalIsSkipped(t *testing.T) {
	classifier := &mockClassifier{fn: func(text string) (domain.Classification, error) {
		if !strings.Contains(text, "cooking class") {
			return domain.Classification{}, domain.ErrInsufficientSignal
		}
		if !strings.Contains(text, "culinary tours") {
			return travelScore(0.4)
		}
		return travelScore(0.3)
	}}
	svc := newService(classifier)

	result, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
	if err != nil {
		t.Fatalf("a no-signal candidate must not fail the run: %v", err)
	}
	if len(result.Steps) != 1 || result.Steps[0].RemovedItem != "culinary tours" {
		t.Errorf("steps = %+v", result.Steps)
	}
}

func TestOptimize_BaselineWithoutSignalFails(t *testing.T) {
	classifier := &mockClassifier{fn: func(string) (domain.Classification, error) {
		return domain.Classification{}, domain.ErrInsufficientSignal
	}}
	svc := newService(classifier)

	_, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
	if !errors.Is(err, domain.ErrInsufficientSignal) {
		t.Fatalf("expected ErrInsufficientSignal, got %v", err)
	}
}

func TestOptimize_ProviderErrorCarriesIteration(t *testing.T) {
	calls := 0
	classifier := &mockClassifier{fn: func(string) (domain.Classification, error) {
		calls++
		if calls == 1 {
			return travelScore(0.3)
		}
		return domain.Classification{}, domain.ErrProvider
	}}
	svc := newService(classifier)

	_, err := svc.Optimize(context.Background(), draft, "/Travel/Family", scenarioItems(), Options{})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "drag iteration 1") {
		t.Errorf("error lacks iteration context: %q", err.Error())
	}
}

func TestOptimize_MissingInputs(t *testing.T) {
	svc := newService(scenarioClassifier())

	if _, err := svc.Optimize(context.Background(), "  ", "/Travel", nil, Options{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty text: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Optimize(context.Background(), draft, "", nil, Options{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty target: expected ErrInvalidInput, got %v", err)
	}
}

func TestOptimize_CancelledContext(t *testing.T) {
	svc := newService(scenarioClassifier())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Optimize(ctx, draft, "/Travel/Family", scenarioItems(), Options{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestStripItem(t *testing.T) {
	cases := []struct {
		text, item, want string
	}{
		{"remove Cooking Class here", "cooking class", "remove here"},
		{"one two three", "two", "one three"},
		{"echo echo echo", "echo", ""},
		{"untouched text", "absent", "untouched text"},
		{"padding   cooking class   padding", "cooking class", "padding padding"},
	}
	for _, tc := range cases {
		if got := stripItem(tc.text, tc.item); got != tc.want {
			t.Errorf("stripItem(%q, %q) = %q, want %q", tc.text, tc.item, got, tc.want)
		}
	}
}
