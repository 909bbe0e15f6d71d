package ai

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

// foldToken normalizes a model token for lookup: no diacritics, case folded,
// and "-", "_" and runs of whitespace collapsed to a single space.
func foldToken(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)
	s = cases.Fold().String(s)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// aliases maps common model wordings onto vocabulary tokens.
var aliases = map[string]string{
	"tortoiseshell":  string(catalog.ColorTortoise),
	"tortoise shell": string(catalog.ColorTortoise),
	"havana":         string(catalog.ColorTortoise),
	"transparent":    string(catalog.ColorClear),
	"crystal":        string(catalog.ColorClear),
	"rectangular":    string(catalog.StyleRectangle),
	"cateye":         string(catalog.StyleCatEye),
	"pilot":          string(catalog.StyleAviator),
	"oblong face":    string(catalog.FaceShapeOblong),
	"long":           string(catalog.FaceShapeOblong),
	"heart shaped":   string(catalog.FaceShapeHeart),
}

func lookupTable[T ~string](vocab []T) map[string]T {
	table := make(map[string]T, len(vocab))
	for _, v := range vocab {
		table[foldToken(string(v))] = v
	}
	return table
}

var (
	faceShapeTable = lookupTable(catalog.FaceShapes)
	sizeTable      = lookupTable(catalog.Sizes)
	colorTable     = lookupTable(catalog.Colors)
	styleTable     = lookupTable(catalog.Styles)
)

// canonical resolves a model token against one vocabulary. Aliases only
// apply when they land inside the same vocabulary.
func canonical[T ~string](raw string, table map[string]T, unknown T) T {
	key := foldToken(raw)
	if v, ok := table[key]; ok {
		return v
	}
	if alias, ok := aliases[key]; ok {
		if v, ok := table[foldToken(alias)]; ok {
			return v
		}
	}
	return unknown
}

func canonicalList[T ~string](raw []string, table map[string]T, unknown T) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		out = append(out, canonical(r, table, unknown))
	}
	return out
}

// Canonicalize converts a raw model answer into catalog attributes. Tokens
// outside the vocabularies become Unknown and never match a frame. Confidence
// is clamped to [0, 1].
func Canonicalize(a *FaceAnalysis) catalog.FacialAttributes {
	return catalog.FacialAttributes{
		FaceShape:         canonical(a.FaceShape, faceShapeTable, catalog.FaceShapeUnknown),
		RecommendedSizes:  canonicalList(a.RecommendedSizes, sizeTable, catalog.SizeUnknown),
		RecommendedColors: canonicalList(a.RecommendedColors, colorTable, catalog.ColorUnknown),
		RecommendedStyles: canonicalList(a.RecommendedStyles, styleTable, catalog.StyleUnknown),
		Confidence:        min(max(a.Confidence, 0), 1),
	}
}
