package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRow is one spreadsheet row keyed by header cell, values as the parser
// produced them (string, number or nil for blanks).
type RawRow map[string]any

// Record is the canonical unit of import: a normalized tree entry.
type Record struct {
	Species      string  `json:"species"`
	StreetName   string  `json:"streetName"`
	StreetNumber string  `json:"streetNumber"`
	Status       string  `json:"status"`
	Sidewalk     *string `json:"sidewalk"`
	Observations string  `json:"observations"`
}

// InvalidRow reports a spreadsheet row excluded from the importable set.
type InvalidRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Column aliases per field, localized header first so it wins over the
// internal English spelling.
var (
	speciesAliases      = []string{"Especie", "species", "Species"}
	streetNameAliases   = []string{"Calle", "streetName", "Street", "StreetName"}
	streetNumberAliases = []string{"Altura", "streetNumber", "StreetNumber", "Alt"}
	statusAliases       = []string{"Estado", "status", "Status"}
	sidewalkAliases     = []string{"Vereda", "sidewalk", "Sidewalk", "Side"}
	observationsAliases = []string{"Observacion", "Observaciones", "observations", "Notes"}
)

// ExtractField resolves the first alias present in the row, trying an exact
// key lookup and then a case-insensitive scan over the row's keys. Alias
// order encodes priority; no match yields "".
func ExtractField(row RawRow, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := row[alias]; ok {
			return cellString(v)
		}
		for k, v := range row {
			if strings.EqualFold(k, alias) {
				return cellString(v)
			}
		}
	}
	return ""
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// NormalizeRow builds a record candidate from one raw row. Valid iff species,
// street name and street number survive normalization non-empty.
func NormalizeRow(row RawRow) (Record, bool) {
	rec := Record{
		Species:      CleanText(ExtractField(row, speciesAliases...)),
		StreetName:   CleanText(ExtractField(row, streetNameAliases...)),
		StreetNumber: DigitsOnly(ExtractField(row, streetNumberAliases...)),
		Status:       NormalizeStatusDisplay(ExtractField(row, statusAliases...)),
		Observations: CleanText(ExtractField(row, observationsAliases...)),
	}
	if side := NormalizeSidewalk(ExtractField(row, sidewalkAliases...)); side != "" {
		rec.Sidewalk = &side
	}
	valid := rec.Species != "" && rec.StreetName != "" && rec.StreetNumber != ""
	return rec, valid
}

// CleanRecord re-applies field normalization to an externally supplied
// record (the edited preview set arriving as JSON) and reports whether the
// key fields survive.
func CleanRecord(rec Record) (Record, bool) {
	rec.Species = CleanText(rec.Species)
	rec.StreetName = CleanText(rec.StreetName)
	rec.StreetNumber = DigitsOnly(rec.StreetNumber)
	rec.Status = NormalizeStatusDisplay(rec.Status)
	rec.Observations = CleanText(rec.Observations)
	if rec.Sidewalk != nil {
		if side := NormalizeSidewalk(*rec.Sidewalk); side != "" {
			rec.Sidewalk = &side
		} else {
			rec.Sidewalk = nil
		}
	}
	valid := rec.Species != "" && rec.StreetName != "" && rec.StreetNumber != ""
	return rec, valid
}

// NormalizeRows processes every raw row independently; malformed rows never
// abort the batch. Invalid rows are reported with their spreadsheet row
// number (header at row 1, first data row at row 2).
func NormalizeRows(rows []RawRow) ([]Record, []InvalidRow) {
	records := make([]Record, 0, len(rows))
	invalids := make([]InvalidRow, 0)
	for i, row := range rows {
		rec, ok := NormalizeRow(row)
		if !ok {
			invalids = append(invalids, InvalidRow{Row: i + 2, Reason: "missing key fields"})
			continue
		}
		records = append(records, rec)
	}
	return records, invalids
}
