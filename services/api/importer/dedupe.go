package importer

import (
	"sort"
	"strings"
)

// DuplicateGroup reports one natural key shared by more than one record.
type DuplicateGroup struct {
	StreetName   string `json:"streetName"`
	StreetNumber string `json:"streetNumber"`
	Species      string `json:"species"`
	Sidewalk     string `json:"sidewalk"`
	Count        int    `json:"count"`
}

// NaturalKey builds the composite duplicate-detection key: street name and
// species case-folded, street number and sidewalk as-is post-normalization.
func NaturalKey(streetName, streetNumber, species, sidewalk string) string {
	return strings.ToLower(streetName) + "|" + streetNumber + "|" +
		strings.ToLower(species) + "|" + sidewalk
}

func recordKey(rec Record) string {
	side := ""
	if rec.Sidewalk != nil {
		side = *rec.Sidewalk
	}
	return NaturalKey(rec.StreetName, rec.StreetNumber, rec.Species, side)
}

// DuplicateGroups groups the record set by natural key and returns every
// group with more than one member, sorted by count descending. Pure function
// of the current record list; re-run it after unification to see updated
// counts.
func DuplicateGroups(records []Record) []DuplicateGroup {
	type group struct {
		first Record
		count int
	}
	byKey := make(map[string]*group)
	order := make([]string, 0)
	for _, rec := range records {
		key := recordKey(rec)
		if g, ok := byKey[key]; ok {
			g.count++
			continue
		}
		byKey[key] = &group{first: rec, count: 1}
		order = append(order, key)
	}

	groups := make([]DuplicateGroup, 0)
	for _, key := range order {
		g := byKey[key]
		if g.count < 2 {
			continue
		}
		side := ""
		if g.first.Sidewalk != nil {
			side = *g.first.Sidewalk
		}
		// the reported components are the key itself: text fields folded
		groups = append(groups, DuplicateGroup{
			StreetName:   strings.ToLower(g.first.StreetName),
			StreetNumber: g.first.StreetNumber,
			Species:      strings.ToLower(g.first.Species),
			Sidewalk:     side,
			Count:        g.count,
		})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

// DedupeFirstSeen drops records whose natural key already appeared earlier in
// the list, returning the kept records and the number dropped. This is the
// import-time filter; the preview detector above reports duplicates without
// removing them.
func DedupeFirstSeen(records []Record) ([]Record, int) {
	seen := make(map[string]struct{}, len(records))
	kept := make([]Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		key := recordKey(rec)
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, dropped
}
