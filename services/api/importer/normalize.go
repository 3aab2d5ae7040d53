package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Display vocabulary for tree health status (accents and spaces).
const (
	StatusSano           = "Sano"
	StatusEnfermo        = "Enfermo"
	StatusNecesitaPoda   = "Necesita Poda"
	StatusSeco           = "Seco"
	StatusRecienPlantado = "Recién Plantado"
	StatusMalo           = "Malo"
)

// Sidewalk vocabulary.
const (
	SidewalkNorte   = "Norte"
	SidewalkSur     = "Sur"
	SidewalkEste    = "Este"
	SidewalkOeste   = "Oeste"
	SidewalkAmbas   = "Ambas"
	SidewalkNinguna = "Ninguna"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Deaccent removes diacritic marks keeping the base letters (Recién -> Recien).
func Deaccent(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// CleanText collapses whitespace runs to a single space and trims the ends.
// Idempotent.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DigitsOnly concatenates every digit run in the input, so "123-A-45" yields
// "12345". Returns "" when the input holds no digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// statusKey folds raw input into the spelling-table key form: lower case,
// underscores as spaces, collapsed whitespace, no accents. This lets both
// encodings ("Necesita Poda", "Necesita_Poda") and sloppy uploads hit the
// same table entry.
func statusKey(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "_", " ")
	return CleanText(Deaccent(s))
}

// Accepted spellings per canonical status, including variants seen in real
// municipal spreadsheets.
var statusSpellings = map[string]string{
	"sano":            StatusSano,
	"sana":            StatusSano,
	"bueno":           StatusSano,
	"buena":           StatusSano,
	"saludable":       StatusSano,
	"enfermo":         StatusEnfermo,
	"enferma":         StatusEnfermo,
	"con plaga":       StatusEnfermo,
	"plaga":           StatusEnfermo,
	"necesita poda":   StatusNecesitaPoda,
	"nesesita poda":   StatusNecesitaPoda,
	"poda":            StatusNecesitaPoda,
	"podar":           StatusNecesitaPoda,
	"a podar":         StatusNecesitaPoda,
	"seco":            StatusSeco,
	"seca":            StatusSeco,
	"muerto":          StatusSeco,
	"muerta":          StatusSeco,
	"recien plantado": StatusRecienPlantado,
	"reciem plantado": StatusRecienPlantado,
	"recien plantada": StatusRecienPlantado,
	"plantado":        StatusRecienPlantado,
	"nuevo":           StatusRecienPlantado,
	"malo":            StatusMalo,
	"mala":            StatusMalo,
	"mal estado":      StatusMalo,
}

// NormalizeStatusDisplay maps raw free text to the display vocabulary.
// Unmatched or empty input yields "" so the preview can flag the row for
// manual review.
func NormalizeStatusDisplay(s string) string {
	if v, ok := statusSpellings[statusKey(s)]; ok {
		return v
	}
	return ""
}

// NormalizeStatusStorage maps raw free text to the storage vocabulary,
// defaulting unmatched input to "Sano". This is the direct-creation path
// (manual form entry); the spreadsheet import path keeps unmatched status
// unset instead of defaulting.
func NormalizeStatusStorage(s string) string {
	if v, ok := statusSpellings[statusKey(s)]; ok {
		return StatusToStorage(v)
	}
	return statusStorage(StatusSano)
}

// StatusToStorage converts a display status to its storage encoding
// (underscored, accent-stripped). "" passes through.
func StatusToStorage(display string) string {
	if display == "" {
		return ""
	}
	return statusStorage(display)
}

// StatusToDisplay converts a storage status back to its display encoding.
// Unknown values pass through unchanged.
func StatusToDisplay(storage string) string {
	if v, ok := statusSpellings[statusKey(storage)]; ok {
		return v
	}
	return storage
}

func statusStorage(display string) string {
	return strings.ReplaceAll(Deaccent(display), " ", "_")
}

var sidewalkSpellings = map[string]string{
	"n":             SidewalkNorte,
	"norte":         SidewalkNorte,
	"s":             SidewalkSur,
	"sur":           SidewalkSur,
	"e":             SidewalkEste,
	"este":          SidewalkEste,
	"o":             SidewalkOeste,
	"oeste":         SidewalkOeste,
	"ambas":         SidewalkAmbas,
	"ambos":         SidewalkAmbas,
	"ambas veredas": SidewalkAmbas,
	"ambos lados":   SidewalkAmbas,
	"ninguna":       SidewalkNinguna,
	"ninguno":       SidewalkNinguna,
	"na":            SidewalkNinguna,
	"n/a":           SidewalkNinguna,
}

// NormalizeSidewalk maps raw free text to the sidewalk vocabulary, returning
// "" when unrecognized (stored as null).
func NormalizeSidewalk(s string) string {
	if v, ok := sidewalkSpellings[statusKey(s)]; ok {
		return v
	}
	return ""
}
