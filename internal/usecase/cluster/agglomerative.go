package cluster

import (
	"sort"

	"github.com/clustra-io/clustra/internal/domain/vector"
)

// agglomerate groups vectors by hierarchical agglomerative clustering with
// average linkage over cosine distance. Merging stops once the closest pair
// of clusters is at distance >= threshold, so a lower threshold yields
// tighter, more numerous clusters.
//
// Deterministic: among equally close pairs the one with the smallest
// indices merges first, and returned groups are ordered by their smallest
// member index, members ascending.
func agglomerate(vecs [][]float32, threshold float64) [][]int {
	n := len(vecs)
	if n == 0 {
		return nil
	}

	// Pairwise cosine distances, updated in place via Lance-Williams as
	// clusters merge (average linkage).
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := vector.CosineDistance(vecs[i], vecs[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	groups := make([][]int, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		groups[i] = []int{i}
		sizes[i] = 1
		active[i] = true
	}

	for {
		bi, bj := -1, -1
		best := threshold
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}
		if bi < 0 {
			break
		}

		// Merge bj into bi; update average-linkage distances.
		ni, nj := float64(sizes[bi]), float64(sizes[bj])
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			d := (ni*dist[bi][k] + nj*dist[bj][k]) / (ni + nj)
			dist[bi][k] = d
			dist[k][bi] = d
		}
		groups[bi] = append(groups[bi], groups[bj]...)
		sizes[bi] += sizes[bj]
		active[bj] = false
	}

	var out [][]int
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		sort.Ints(groups[i])
		out = append(out, groups[i])
	}
	return out
}
