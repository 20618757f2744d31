package analysis

import (
	"math"
	"sort"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// roundTo removes floating point noise such as 0.7000000000000001 so scores
// compare cleanly and fit the two-decimal column in the store.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sortTopicFrequencies(freqs []apitype.TopicFrequency) {
	sort.SliceStable(freqs, func(i, j int) bool {
		return freqs[i].Count > freqs[j].Count
	})
}
