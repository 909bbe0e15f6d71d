// Package catalog defines the eyewear vocabulary and the records exchanged between
// the attribute extractor, the catalog store and the matcher.
//
// Every vocabulary is a closed, string-backed enum. Tokens are compared exactly and
// case-sensitively; anything outside the vocabulary parses to the type's Unknown value,
// which never matches anything.
package catalog

// FaceShape classifies the outline of a face.
type FaceShape string

// FaceShape values.
const (
	FaceShapeUnknown FaceShape = "unknown"
	FaceShapeOval    FaceShape = "oval"
	FaceShapeRound   FaceShape = "round"
	FaceShapeSquare  FaceShape = "square"
	FaceShapeHeart   FaceShape = "heart"
	FaceShapeDiamond FaceShape = "diamond"
	FaceShapeOblong  FaceShape = "oblong"
)

// FaceShapes lists the face shape vocabulary in canonical order.
var FaceShapes = []FaceShape{
	FaceShapeOval, FaceShapeRound, FaceShapeSquare, FaceShapeHeart, FaceShapeDiamond, FaceShapeOblong,
}

// Size is a frame size token.
type Size string

// Size values.
const (
	SizeUnknown Size = "unknown"
	SizeSmall   Size = "Small"
	SizeMedium  Size = "Medium"
	SizeLarge   Size = "Large"
)

// Sizes lists the size vocabulary in canonical order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Color is a frame color token.
type Color string

// Color values.
const (
	ColorUnknown  Color = "unknown"
	ColorBlack    Color = "Black"
	ColorBlue     Color = "Blue"
	ColorBrown    Color = "Brown"
	ColorClear    Color = "Clear"
	ColorGold     Color = "Gold"
	ColorSilver   Color = "Silver"
	ColorTortoise Color = "Tortoise"
)

// Colors lists the color vocabulary in canonical order.
var Colors = []Color{ColorBlack, ColorBlue, ColorBrown, ColorClear, ColorGold, ColorSilver, ColorTortoise}

// Style is a frame style token.
type Style string

// Style values.
const (
	StyleUnknown   Style = "unknown"
	StyleAviator   Style = "Aviator"
	StyleBrowline  Style = "Browline"
	StyleCatEye    Style = "Cat-eye"
	StyleOval      Style = "Oval"
	StyleRectangle Style = "Rectangle"
	StyleRound     Style = "Round"
	StyleSquare    Style = "Square"
)

// Styles lists the style vocabulary in canonical order.
var Styles = []Style{StyleAviator, StyleBrowline, StyleCatEye, StyleOval, StyleRectangle, StyleRound, StyleSquare}

// StockStatus is the availability state of a catalog entry.
type StockStatus string

// StockStatus values.
const (
	StockUnknown    StockStatus = "unknown"
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockOrderOnly  StockStatus = "order_only"
)

// StockStatuses lists the stock status vocabulary.
var StockStatuses = []StockStatus{StockInStock, StockLowStock, StockOutOfStock, StockOrderOnly}

// parseToken returns the vocabulary entry equal to s, or unknown.
func parseToken[T ~string](s string, vocab []T, unknown T) T {
	for _, v := range vocab {
		if string(v) == s {
			return v
		}
	}
	return unknown
}

func inVocabulary[T ~string](v T, vocab []T) bool {
	for _, t := range vocab {
		if t == v {
			return true
		}
	}
	return false
}

// ParseFaceShape maps s to a FaceShape, or FaceShapeUnknown.
func ParseFaceShape(s string) FaceShape { return parseToken(s, FaceShapes, FaceShapeUnknown) }

// ParseSize maps s to a Size, or SizeUnknown.
func ParseSize(s string) Size { return parseToken(s, Sizes, SizeUnknown) }

// ParseColor maps s to a Color, or ColorUnknown.
func ParseColor(s string) Color { return parseToken(s, Colors, ColorUnknown) }

// ParseStyle maps s to a Style, or StyleUnknown.
func ParseStyle(s string) Style { return parseToken(s, Styles, StyleUnknown) }

// ParseStockStatus maps s to a StockStatus, or StockUnknown.
func ParseStockStatus(s string) StockStatus {
	return parseToken(s, StockStatuses, StockUnknown)
}

// Known reports whether f is part of the vocabulary.
func (f FaceShape) Known() bool { return inVocabulary(f, FaceShapes) }

// Known reports whether s is part of the vocabulary.
func (s Size) Known() bool { return inVocabulary(s, Sizes) }

// Known reports whether c is part of the vocabulary.
func (c Color) Known() bool { return inVocabulary(c, Colors) }

// Known reports whether s is part of the vocabulary.
func (s Style) Known() bool { return inVocabulary(s, Styles) }

// Known reports whether s is part of the vocabulary.
func (s StockStatus) Known() bool { return inVocabulary(s, StockStatuses) }

// UnmarshalText never fails: out-of-vocabulary tokens become FaceShapeUnknown.
func (f *FaceShape) UnmarshalText(b []byte) error {
	*f = ParseFaceShape(string(b))
	return nil
}

// UnmarshalText never fails: out-of-vocabulary tokens become SizeUnknown.
func (s *Size) UnmarshalText(b []byte) error {
	*s = ParseSize(string(b))
	return nil
}

// UnmarshalText never fails: out-of-vocabulary tokens become ColorUnknown.
func (c *Color) UnmarshalText(b []byte) error {
	*c = ParseColor(string(b))
	return nil
}

// UnmarshalText never fails: out-of-vocabulary tokens become StyleUnknown.
func (s *Style) UnmarshalText(b []byte) error {
	*s = ParseStyle(string(b))
	return nil
}

// UnmarshalText never fails: out-of-vocabulary tokens become StockUnknown.
func (s *StockStatus) UnmarshalText(b []byte) error {
	*s = ParseStockStatus(string(b))
	return nil
}

// ParseFaceShapes parses every token, keeping unknown entries as FaceShapeUnknown.
func ParseFaceShapes(tokens []string) []FaceShape {
	out := make([]FaceShape, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ParseFaceShape(t))
	}
	return out
}

// ParseSizes parses every token, keeping unknown entries as SizeUnknown.
func ParseSizes(tokens []string) []Size {
	out := make([]Size, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ParseSize(t))
	}
	return out
}

// ParseColors parses every token, keeping unknown entries as ColorUnknown.
func ParseColors(tokens []string) []Color {
	out := make([]Color, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ParseColor(t))
	}
	return out
}

// ParseStyles parses every token, keeping unknown entries as StyleUnknown.
func ParseStyles(tokens []string) []Style {
	out := make([]Style, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ParseStyle(t))
	}
	return out
}

// Strings converts any vocabulary slice back to plain strings (for storage).
func Strings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// MarshalText writes out-of-vocabulary values as "unknown".
func (f FaceShape) MarshalText() ([]byte, error) {
	if !f.Known() {
		return []byte(FaceShapeUnknown), nil
	}
	return []byte(f), nil
}

// MarshalText writes out-of-vocabulary values as "unknown".
func (s Size) MarshalText() ([]byte, error) {
	if !s.Known() {
		return []byte(SizeUnknown), nil
	}
	return []byte(s), nil
}

// MarshalText writes out-of-vocabulary values as "unknown".
func (c Color) MarshalText() ([]byte, error) {
	if !c.Known() {
		return []byte(ColorUnknown), nil
	}
	return []byte(c), nil
}

// MarshalText writes out-of-vocabulary values as "unknown".
func (s Style) MarshalText() ([]byte, error) {
	if !s.Known() {
		return []byte(StyleUnknown), nil
	}
	return []byte(s), nil
}

// MarshalText writes out-of-vocabulary values as "unknown".
func (s StockStatus) MarshalText() ([]byte, error) {
	if !s.Known() {
		return []byte(StockUnknown), nil
	}
	return []byte(s), nil
}
