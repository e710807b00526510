package domain

// Cluster is one semantically coherent keyword group.
//
// Members holds every record assigned to the cluster; the tier slices
// partition member texts by descending representativeness (centrality
// combined with volume). HubKeyword is always a member text.
type Cluster struct {
	ID       int
	Members  []KeywordRecord
	Centroid []float32

	// Coherence is the mean pairwise cosine similarity among member
	// embeddings, clamped to [0,1]. Singletons have coherence 1.0.
	Coherence float64

	HubKeyword  string
	Primary     []string
	Secondary   []string
	Tertiary    []string
	TotalVolume int64

	// Annotation fields, filled by the category annotator.
	DetectedCategory   string
	CategoryConfidence float64
	MatchesTarget      *bool
	TopEntities        []string
}

// Size returns the member count.
func (c *Cluster) Size() int { return len(c.Members) }

// Keywords returns all member texts in tier order (primary, secondary, tertiary).
func (c *Cluster) Keywords() []string {
	out := make([]string, 0, len(c.Primary)+len(c.Secondary)+len(c.Tertiary))
	out = append(out, c.Primary...)
	out = append(out, c.Secondary...)
	out = append(out, c.Tertiary...)
	return out
}

// TopKeywords returns up to n member texts in tier order.
func (c *Cluster) TopKeywords(n int) []string {
	kws := c.Keywords()
	if len(kws) > n {
		kws = kws[:n]
	}
	return kws
}

// CannibalizationPair flags two clusters whose top keywords overlap enough
// to compete for the same topical intent.
type CannibalizationPair struct {
	ClusterA     int
	ClusterB     int
	OverlapRatio float64
}

// Analysis is the outcome of one clustering run.
type Analysis struct {
	RunID           string
	Clusters        []Cluster
	Cannibalization []CannibalizationPair
}

// CannibalizationFlag reports whether the cluster with the given id appears
// in any flagged pair.
func (a *Analysis) CannibalizationFlag(clusterID int) bool {
	for _, p := range a.Cannibalization {
		if p.ClusterA == clusterID || p.ClusterB == clusterID {
			return true
		}
	}
	return false
}
