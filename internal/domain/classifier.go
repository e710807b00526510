package domain

import "context"

// Classifier detects the topical category of a text and extracts its salient
// entities. Implementations return ErrInsufficientSignal when the text is too
// short or carries no detectable topic.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// CategoryScore is one candidate category with the classifier's confidence.
type CategoryScore struct {
	Name       string
	Confidence float64
}

// Entity is a named entity extracted from the classified text, ordered by
// descending salience within a Classification.
type Entity struct {
	Name         string
	Type         string
	Salience     float64
	WikipediaURL string
}

// Classification is the classifier's full verdict on one text. Category and
// Confidence repeat the top entry of AllCategories for convenience.
type Classification struct {
	Category      string
	Confidence    float64
	AllCategories []CategoryScore
	Entities      []Entity
}

// TopEntityNames returns up to n entity names in salience order.
func (c *Classification) TopEntityNames(n int) []string {
	if n > len(c.Entities) {
		n = len(c.Entities)
	}
	names := make([]string, 0, n)
	for _, e := range c.Entities[:n] {
		names = append(names, e.Name)
	}
	return names
}
