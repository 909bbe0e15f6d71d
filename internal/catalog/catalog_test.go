package catalog

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParseFaceShape(t *testing.T) {
	tests := []struct {
		in   string
		want FaceShape
	}{
		{"oval", FaceShapeOval},
		{"round", FaceShapeRound},
		{"oblong", FaceShapeOblong},
		{"Oval", FaceShapeUnknown},
		{"OVAL", FaceShapeUnknown},
		{" oval", FaceShapeUnknown},
		{"triangle", FaceShapeUnknown},
		{"", FaceShapeUnknown},
		{"unknown", FaceShapeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseFaceShape(tc.in); got != tc.want {
				t.Errorf("ParseFaceShape(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseIsCaseSensitive(t *testing.T) {
	if got := ParseSize("medium"); got != SizeUnknown {
		t.Errorf("ParseSize(medium) = %q, want unknown", got)
	}
	if got := ParseColor("black"); got != ColorUnknown {
		t.Errorf("ParseColor(black) = %q, want unknown", got)
	}
	if got := ParseStyle("cat-eye"); got != StyleUnknown {
		t.Errorf("ParseStyle(cat-eye) = %q, want unknown", got)
	}
	if got := ParseStyle("Cat-eye"); got != StyleCatEye {
		t.Errorf("ParseStyle(Cat-eye) = %q, want Cat-eye", got)
	}
	if got := ParseStockStatus("IN_STOCK"); got != StockUnknown {
		t.Errorf("ParseStockStatus(IN_STOCK) = %q, want unknown", got)
	}
}

func TestKnown(t *testing.T) {
	for _, s := range FaceShapes {
		if !s.Known() {
			t.Errorf("%q should be known", s)
		}
	}
	if FaceShapeUnknown.Known() {
		t.Error("FaceShapeUnknown should not be known")
	}
	if FaceShape("Oval").Known() {
		t.Error("directly constructed out-of-vocabulary shape should not be known")
	}
	if Size("").Known() {
		t.Error("zero Size should not be known")
	}
	if !StockOrderOnly.Known() {
		t.Error("order_only should be known")
	}
}

func TestFacialAttributes_JSONUnknownTokens(t *testing.T) {
	body := `{"face_shape":"triangle","recommended_sizes":["Medium","XL"],` +
		`"recommended_colors":["Gold"],"recommended_styles":["Round","round"],"confidence":0.7}`

	var attrs FacialAttributes
	if err := json.Unmarshal([]byte(body), &attrs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if attrs.FaceShape != FaceShapeUnknown {
		t.Errorf("expected unknown face shape, got %q", attrs.FaceShape)
	}
	if !slices.Equal(attrs.RecommendedSizes, []Size{SizeMedium, SizeUnknown}) {
		t.Errorf("unexpected sizes %v", attrs.RecommendedSizes)
	}
	if !slices.Equal(attrs.RecommendedStyles, []Style{StyleRound, StyleUnknown}) {
		t.Errorf("unexpected styles %v", attrs.RecommendedStyles)
	}
	if attrs.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7, got %v", attrs.Confidence)
	}
}

func TestFrameProduct_JSONRoundTrip(t *testing.T) {
	frame := FrameProduct{
		ID:                 "f1",
		Name:               "Aviator Classic",
		Style:              StyleAviator,
		Color:              ColorGold,
		Size:               SizeMedium,
		SuitableFaceShapes: []FaceShape{FaceShapeOval, FaceShapeSquare},
		StockStatus:        StockInStock,
		StockCount:         IntPtr(25),
		IsActive:           true,
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got FrameProduct
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Style != StyleAviator || got.Color != ColorGold || got.Size != SizeMedium {
		t.Errorf("scalar attributes lost: %+v", got)
	}
	if got.Stock() != 25 {
		t.Errorf("expected stock 25, got %d", got.Stock())
	}
	if !slices.Equal(got.SuitableFaceShapes, frame.SuitableFaceShapes) {
		t.Errorf("face shapes lost: %v", got.SuitableFaceShapes)
	}
}

func TestMarshalOutOfVocabulary(t *testing.T) {
	data, err := json.Marshal(struct {
		C Color `json:"c"`
	}{C: Color("Magenta")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"c":"unknown"}` {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestFrameProduct_SuitsFace(t *testing.T) {
	frame := FrameProduct{SuitableFaceShapes: []FaceShape{FaceShapeOval, FaceShapeUnknown}}

	if !frame.SuitsFace(FaceShapeOval) {
		t.Error("expected oval to suit")
	}
	if frame.SuitsFace(FaceShapeRound) {
		t.Error("expected round not to suit")
	}
	if frame.SuitsFace(FaceShapeUnknown) {
		t.Error("unknown must never match, even against an unknown entry")
	}
}

func TestFrameProduct_Stock(t *testing.T) {
	if got := (FrameProduct{}).Stock(); got != 0 {
		t.Errorf("nil stock count should read as 0, got %d", got)
	}
}

func TestFrameProduct_UnknownFields(t *testing.T) {
	frame := FrameProduct{
		Style:              StyleRound,
		Color:              Color("Magenta"),
		Size:               SizeSmall,
		SuitableFaceShapes: []FaceShape{FaceShapeOval, FaceShape("pear")},
		StockStatus:        StockInStock,
	}

	got := frame.UnknownFields()
	want := []string{"color", "suitable_face_shapes"}
	if !slices.Equal(got, want) {
		t.Errorf("UnknownFields() = %v, want %v", got, want)
	}
}

func TestFallbackAttributes(t *testing.T) {
	fb := FallbackAttributes()
	if fb.FaceShape != FaceShapeOval {
		t.Errorf("expected oval, got %q", fb.FaceShape)
	}
	if len(fb.RecommendedSizes) != 2 || len(fb.RecommendedColors) != 2 || len(fb.RecommendedStyles) != 2 {
		t.Errorf("expected two values per field, got %+v", fb)
	}
	if fb.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", fb.Confidence)
	}

	// Each call returns independent slices.
	fb.RecommendedSizes[0] = SizeSmall
	if FallbackAttributes().RecommendedSizes[0] != SizeMedium {
		t.Error("fallback attributes share state between calls")
	}
}

func TestFacialAttributes_Clone(t *testing.T) {
	a := FacialAttributes{FaceShape: FaceShapeHeart, RecommendedColors: []Color{ColorBlue}}
	b := a.Clone()
	b.RecommendedColors[0] = ColorGold
	if a.RecommendedColors[0] != ColorBlue {
		t.Error("clone shares the colors slice")
	}
}
