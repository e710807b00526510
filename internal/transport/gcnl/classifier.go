// Package gcnl implements domain.Classifier on the Google Cloud Natural
// Language API.
package gcnl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/metrics"
)

// Compile-time check: Classifier implements domain.Classifier.
var _ domain.Classifier = (*Classifier)(nil)

// Config holds classifier transport settings.
type Config struct {
	CredentialsFile string

	// MinWords is the local floor below which texts are rejected without an
	// API call; the classifier cannot produce categories for very short
	// texts anyway.
	MinWords int

	BreakerFailures uint32
	BreakerReset    time.Duration

	Logger *zap.Logger
}

// Classifier classifies text and extracts entities in a single annotate
// call. A circuit breaker protects against a misbehaving upstream.
type Classifier struct {
	client   *language.Client
	breaker  *gobreaker.CircuitBreaker
	minWords int
	logger   *zap.Logger
}

// NewClassifier creates a Natural Language classifier client.
func NewClassifier(ctx context.Context, cfg *Config) (*Classifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create language client: %w", err)
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "gcnl",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		Timeout: cfg.BreakerReset,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("classifier breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Insufficient signal is a property of the text, not upstream
		// health; it must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || isInsufficientSignal(err)
		},
	})

	return &Classifier{
		client:   client,
		breaker:  breaker,
		minWords: cfg.MinWords,
		logger:   logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *Classifier) Close() error {
	return c.client.Close()
}

// Classify implements domain.Classifier. Categories and entities come back
// from one AnnotateText round-trip; entities keep the API's salience order.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if words := len(strings.Fields(text)); words < c.minWords {
		return domain.Classification{}, fmt.Errorf(
			"text has %d words, need at least %d: %w", words, c.minWords, domain.ErrInsufficientSignal)
	}

	req := &languagepb.AnnotateTextRequest{
		Document: &languagepb.Document{
			Type:   languagepb.Document_PLAIN_TEXT,
			Source: &languagepb.Document_Content{Content: text},
		},
		Features: &languagepb.AnnotateTextRequest_Features{
			ClassifyText:    true,
			ExtractEntities: true,
		},
		EncodingType: languagepb.EncodingType_UTF8,
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.AnnotateText(ctx, req)
		if err != nil {
			return nil, mapStatusError(err)
		}
		if len(resp.GetCategories()) == 0 {
			return nil, fmt.Errorf("no category detected: %w", domain.ErrInsufficientSignal)
		}
		return resp, nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		metrics.ClassifierRequestDuration.WithLabelValues("error").Observe(duration.Seconds())
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.Classification{}, fmt.Errorf("classifier unavailable: %v: %w", err, domain.ErrProvider)
		}
		return domain.Classification{}, err
	}

	metrics.ClassifierRequestsTotal.WithLabelValues("success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues("success").Observe(duration.Seconds())

	return toClassification(res.(*languagepb.AnnotateTextResponse)), nil
}

// toClassification converts the API response. The API returns categories
// sorted by descending confidence.
func toClassification(resp *languagepb.AnnotateTextResponse) domain.Classification {
	out := domain.Classification{
		AllCategories: make([]domain.CategoryScore, 0, len(resp.GetCategories())),
		Entities:      make([]domain.Entity, 0, len(resp.GetEntities())),
	}

	for _, cat := range resp.GetCategories() {
		out.AllCategories = append(out.AllCategories, domain.CategoryScore{
			Name:       cat.GetName(),
			Confidence: float64(cat.GetConfidence()),
		})
	}
	out.Category = out.AllCategories[0].Name
	out.Confidence = out.AllCategories[0].Confidence

	for _, ent := range resp.GetEntities() {
		out.Entities = append(out.Entities, domain.Entity{
			Name:         ent.GetName(),
			Type:         ent.GetType().String(),
			Salience:     float64(ent.GetSalience()),
			WikipediaURL: ent.GetMetadata()["wikipedia_url"],
		})
	}

	return out
}

// mapStatusError wraps a gRPC error with the matching domain sentinel.
func mapStatusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("annotate text: %v: %w", err, domain.ErrProvider)
	}

	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("annotate text: %s: %w", st.Message(), domain.ErrQuotaExceeded)
	case codes.InvalidArgument:
		// The API rejects texts too short or too noisy to classify.
		return fmt.Errorf("annotate text: %s: %w", st.Message(), domain.ErrInsufficientSignal)
	default:
		return fmt.Errorf("annotate text: %s: %w", st.Message(), domain.ErrProvider)
	}
}

func isInsufficientSignal(err error) bool {
	return errors.Is(err, domain.ErrInsufficientSignal)
}
