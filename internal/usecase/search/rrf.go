package search

import (
	"sort"

	"github.com/kura-media/clipdex/internal/domain/search/result"
)

// RankedList is one ranked signal with its fusion weight. A weight of zero
// removes the list from fusion entirely.
type RankedList struct {
	Weight float64
	Hits   []result.Hit
}

// fuseRRF merges ranked lists via weighted Reciprocal Rank Fusion:
// score(d) = sum over lists of weight/(k + rank(d)), rank 1-based.
// Ranks, not raw scores, enter the sum, so BM25 magnitudes and cosine
// similarities never need a common scale. Ties break on id ascending so
// repeated queries return a stable order.
func fuseRRF(lists []RankedList, k, topK int) []result.Hit {
	scores := make(map[string]float64)

	for _, list := range lists {
		if list.Weight <= 0 {
			continue
		}
		for rank, h := range list.Hits {
			scores[h.ID] += list.Weight / float64(k+rank+1)
		}
	}

	fused := make([]result.Hit, 0, len(scores))
	for id, s := range scores {
		fused = append(fused, result.Hit{ID: id, Score: s})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}

	return fused
}
