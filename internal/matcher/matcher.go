// Package matcher ranks catalog frames against the attributes extracted from a face photo.
//
// Scoring is a fold over a fixed factor table. Every factor is awarded fully or not at
// all, except the stock depth bonus which grows with the stock count up to its cap.
// The package performs no I/O and is safe for concurrent use.
package matcher

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

// DefaultLimit is the number of frames callers request when none is given.
const DefaultLimit = 5

// ErrInvalidLimit is returned when the requested limit is not a positive integer.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// Factor is one row of the scoring table.
type Factor struct {
	Name string
	// Weight is the flat contribution of a fixed factor. It is zero when
	// Amount is set.
	Weight  float64
	Applies func(attrs catalog.FacialAttributes, frame catalog.FrameProduct) bool
	// Amount computes the contribution of a factor that depends on the frame.
	// It never exceeds Cap.
	Amount func(frame catalog.FrameProduct) float64
	Cap    float64
}

// MaxPoints is the most the factor can add to a score.
func (f Factor) MaxPoints() float64 {
	if f.Amount != nil {
		return f.Cap
	}
	return f.Weight
}

// FactorHit records the points one factor contributed to a frame's score.
type FactorHit struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

const (
	stockDepthDivisor = 10.0
	stockDepthCap     = 5.0
)

var factors = []Factor{
	{
		Name:   "face_shape",
		Weight: 30,
		Applies: func(a catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.SuitsFace(a.FaceShape)
		},
	},
	{
		Name:   "size",
		Weight: 25,
		Applies: func(a catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.Size.Known() && slices.Contains(a.RecommendedSizes, f.Size)
		},
	},
	{
		Name:   "color",
		Weight: 20,
		Applies: func(a catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.Color.Known() && slices.Contains(a.RecommendedColors, f.Color)
		},
	},
	{
		Name:   "style",
		Weight: 20,
		Applies: func(a catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.Style.Known() && slices.Contains(a.RecommendedStyles, f.Style)
		},
	},
	{
		Name:   "in_stock",
		Weight: 10,
		Applies: func(_ catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.StockStatus == catalog.StockInStock
		},
	},
	{
		Name:   "low_stock",
		Weight: 5,
		Applies: func(_ catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.StockStatus == catalog.StockLowStock
		},
	},
	{
		Name: "stock_depth",
		Cap:  stockDepthCap,
		Applies: func(_ catalog.FacialAttributes, f catalog.FrameProduct) bool {
			return f.Stock() > 0
		},
		Amount: func(f catalog.FrameProduct) float64 {
			return min(float64(f.Stock())/stockDepthDivisor, stockDepthCap)
		},
	},
}

// Factors returns a copy of the scoring table.
func Factors() []Factor {
	return slices.Clone(factors)
}

func (f Factor) points(frame catalog.FrameProduct) float64 {
	if f.Amount != nil {
		return f.Amount(frame)
	}
	return f.Weight
}

// Score returns the relevance of frame for attrs. It ignores IsActive.
func Score(attrs catalog.FacialAttributes, frame catalog.FrameProduct) float64 {
	var total float64
	for _, f := range factors {
		if f.Applies(attrs, frame) {
			total += f.points(frame)
		}
	}
	return total
}

// Explain lists the factors that contributed to frame's score, in table order.
func Explain(attrs catalog.FacialAttributes, frame catalog.FrameProduct) []FactorHit {
	hits := make([]FactorHit, 0, len(factors))
	for _, f := range factors {
		if f.Applies(attrs, frame) {
			hits = append(hits, FactorHit{Name: f.Name, Points: f.points(frame)})
		}
	}
	return hits
}

type scoredCandidate struct {
	frame catalog.FrameProduct
	score float64
}

// Match returns at most limit active frames ordered by descending score.
// Equal scores keep their order from frames. An empty or fully inactive catalog
// yields an empty, non-nil slice.
func Match(attrs catalog.FacialAttributes, frames []catalog.FrameProduct, limit int) ([]catalog.FrameProduct, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	candidates := make([]scoredCandidate, 0, len(frames))
	for _, frame := range frames {
		if !frame.IsActive {
			continue
		}
		candidates = append(candidates, scoredCandidate{frame: frame, score: Score(attrs, frame)})
	}

	slices.SortStableFunc(candidates, func(a, b scoredCandidate) int {
		return cmp.Compare(b.score, a.score)
	})

	n := min(limit, len(candidates))
	out := make([]catalog.FrameProduct, n)
	for i := range n {
		out[i] = candidates[i].frame
	}
	return out, nil
}
