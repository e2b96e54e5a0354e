package vocab

import "sort"

// Clustering is the result of a k-means pass over a set of term vectors.
type Clustering struct {
	// Assignments maps each input vector to its cluster index.
	Assignments []int
	// Centroids are the final cluster centers.
	Centroids []Vector
	// Sizes counts the members of each cluster.
	Sizes []int
}

const kmeansMaxIterations = 50

// KMeans runs Lloyd's algorithm over vectors. Initial centroids are the
// vectors at evenly spaced positions, which keeps the result deterministic
// for a given input order. k is clamped to len(vectors).
func KMeans(vectors []Vector, k int) Clustering {
	if len(vectors) == 0 || k <= 0 {
		return Clustering{}
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	dim := 0
	for _, v := range vectors {
		if len(v) > dim {
			dim = len(v)
		}
	}

	centroids := make([]Vector, k)
	for i := range centroids {
		src := vectors[i*len(vectors)/k]
		c := make(Vector, dim)
		copy(c, src)
		centroids[i] = c
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestSim := 0, -1.0
			for ci, c := range centroids {
				if sim := Cosine(v, c); sim > bestSim {
					best, bestSim = ci, sim
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids as member means.
		sums := make([]Vector, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make(Vector, dim)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for j, w := range v {
				sums[c][j] += w
			}
		}
		for ci := range centroids {
			if counts[ci] == 0 {
				continue
			}
			for j := range sums[ci] {
				sums[ci][j] /= float64(counts[ci])
			}
			centroids[ci] = sums[ci]
		}
	}

	sizes := make([]int, k)
	for _, a := range assignments {
		sizes[a]++
	}
	return Clustering{Assignments: assignments, Centroids: centroids, Sizes: sizes}
}

// Dominant returns the index and size of the largest cluster.
func (c Clustering) Dominant() (index, size int) {
	for i, s := range c.Sizes {
		if s > size {
			index, size = i, s
		}
	}
	return index, size
}

// TopTerms returns the n highest-weighted vocabulary terms of the centroid
// at index ci.
func (c Clustering) TopTerms(t *Table, ci, n int) []string {
	if ci < 0 || ci >= len(c.Centroids) {
		return nil
	}
	centroid := c.Centroids[ci]
	type termWeight struct {
		idx    int
		weight float64
	}
	weights := make([]termWeight, 0, len(centroid))
	for i, w := range centroid {
		if w > 0 && i < t.Len() {
			weights = append(weights, termWeight{i, w})
		}
	}
	sort.Slice(weights, func(a, b int) bool { return weights[a].weight > weights[b].weight })
	if n > len(weights) {
		n = len(weights)
	}
	terms := make([]string, n)
	for i := 0; i < n; i++ {
		terms[i] = t.Token(weights[i].idx)
	}
	return terms
}
