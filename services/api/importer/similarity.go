package importer

import (
	"sort"
	"strings"
)

// SimilarityThreshold is the minimum bigram Jaccard score for two street
// names to be considered spellings of the same street.
const SimilarityThreshold = 0.85

// Variant is one observed spelling inside a cluster.
type Variant struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Similarity float64 `json:"similarity"`
}

// Cluster groups near-duplicate street-name spellings under a canonical name.
type Cluster struct {
	Canonical string    `json:"canonical"`
	Variants  []Variant `json:"variants"`
}

// bigramSet returns the set of consecutive 2-rune substrings of the name
// after case folding and accent stripping. Names shorter than 2 runes yield
// an empty set.
func bigramSet(name string) map[string]struct{} {
	folded := []rune(strings.ToLower(Deaccent(name)))
	set := make(map[string]struct{}, len(folded))
	for i := 0; i+1 < len(folded); i++ {
		set[string(folded[i:i+2])] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index of the two names' bigram sets. An empty
// union (both names under 2 characters) scores 0.
func Similarity(a, b string) float64 {
	return jaccard(bigramSet(a), bigramSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ClusterStreetNames proposes unification clusters over the street names in
// the record set. Distinct names are visited in lexicographic order; each
// unassigned name anchors a new cluster and absorbs every later unassigned
// name scoring at or above the threshold against it. The anchor is always
// the lexicographically first member, not the most frequent; frequency
// weighting is a possible refinement, not current behavior. Only clusters
// with more than one member are returned.
func ClusterStreetNames(records []Record) []Cluster {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.StreetName]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	grams := make([]map[string]struct{}, len(names))
	for i, name := range names {
		grams[i] = bigramSet(name)
	}

	assigned := make([]bool, len(names))
	clusters := make([]Cluster, 0)
	for i, anchor := range names {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := Cluster{
			Canonical: anchor,
			Variants:  []Variant{{Name: anchor, Count: counts[anchor], Similarity: 1}},
		}
		for j := i + 1; j < len(names); j++ {
			if assigned[j] {
				continue
			}
			score := jaccard(grams[i], grams[j])
			if score >= SimilarityThreshold {
				assigned[j] = true
				cluster.Variants = append(cluster.Variants, Variant{
					Name:       names[j],
					Count:      counts[names[j]],
					Similarity: score,
				})
			}
		}
		if len(cluster.Variants) > 1 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// ApplyUnification rewrites each record's street name through the
// variant-to-canonical mapping. Names without a mapping are untouched;
// applying the same mapping twice is a no-op.
func ApplyUnification(records []Record, mapping map[string]string) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		if canonical, ok := mapping[rec.StreetName]; ok {
			rec.StreetName = canonical
		}
		out[i] = rec
	}
	return out
}
