package catalog

import "slices"

// FacialAttributes is the classification produced for one analyzed image.
// Values are treated as immutable once constructed.
type FacialAttributes struct {
	FaceShape         FaceShape `json:"face_shape"`
	RecommendedSizes  []Size    `json:"recommended_sizes"`
	RecommendedColors []Color   `json:"recommended_colors"`
	RecommendedStyles []Style   `json:"recommended_styles"`
	Confidence        float64   `json:"confidence"`
}

// FallbackAttributes is the neutral attribute set used when extraction is unavailable:
// a neutral face shape and the two most broadly suitable values per field.
func FallbackAttributes() FacialAttributes {
	return FacialAttributes{
		FaceShape:         FaceShapeOval,
		RecommendedSizes:  []Size{SizeMedium, SizeLarge},
		RecommendedColors: []Color{ColorBlack, ColorTortoise},
		RecommendedStyles: []Style{StyleRectangle, StyleRound},
		Confidence:        0,
	}
}

// Clone returns a deep copy so callers can hand out attributes without sharing slices.
func (a FacialAttributes) Clone() FacialAttributes {
	return FacialAttributes{
		FaceShape:         a.FaceShape,
		RecommendedSizes:  slices.Clone(a.RecommendedSizes),
		RecommendedColors: slices.Clone(a.RecommendedColors),
		RecommendedStyles: slices.Clone(a.RecommendedStyles),
		Confidence:        a.Confidence,
	}
}

// FrameProduct is one catalog entry.
type FrameProduct struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Brand              string      `json:"brand"`
	PriceCents         int64       `json:"price_cents"`
	ImageURL           string      `json:"image_url,omitempty"`
	Style              Style       `json:"style"`
	Color              Color       `json:"color"`
	Size               Size        `json:"size"`
	SuitableFaceShapes []FaceShape `json:"suitable_face_shapes"`
	StockStatus        StockStatus `json:"stock_status"`
	StockCount         *int        `json:"stock_count"`
	IsActive           bool        `json:"is_active"`
}

// Stock returns the stock count, treating nil as zero.
func (f FrameProduct) Stock() int {
	if f.StockCount == nil {
		return 0
	}
	return *f.StockCount
}

// SuitsFace reports whether shape is one of the frame's suitable face shapes.
// Unknown shapes never match.
func (f FrameProduct) SuitsFace(shape FaceShape) bool {
	return shape.Known() && slices.Contains(f.SuitableFaceShapes, shape)
}

// UnknownFields lists the fields holding out-of-vocabulary values.
// Ingestion uses it to warn about catalog drift; such rows still load.
func (f FrameProduct) UnknownFields() []string {
	var fields []string
	if !f.Style.Known() {
		fields = append(fields, "style")
	}
	if !f.Color.Known() {
		fields = append(fields, "color")
	}
	if !f.Size.Known() {
		fields = append(fields, "size")
	}
	if !f.StockStatus.Known() {
		fields = append(fields, "stock_status")
	}
	for _, s := range f.SuitableFaceShapes {
		if !s.Known() {
			fields = append(fields, "suitable_face_shapes")
			break
		}
	}
	return fields
}

// IntPtr is a small helper for optional stock counts.
func IntPtr(v int) *int {
	return &v
}
