// Package fingerprint computes perceptual hashes of uploaded photos.
// The hashes identify re-uploads of the same picture so extraction results can be reused.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"slices"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxPixels bounds the decoded size of an upload (about 50 megapixels).
const maxPixels = 50_000_000

// Fingerprint holds the perceptual hashes of one image.
type Fingerprint struct {
	PHash     string `json:"phash"` // 64-bit perceptual hash as hex string
	DHash     string `json:"dhash"` // 64-bit difference hash as hex string
	PHashBits uint64 `json:"-"`
	DHashBits uint64 `json:"-"`
}

// Compute decodes imageData and returns its pHash and dHash.
func Compute(imageData []byte) (*Fingerprint, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("unsupported image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	pHash := computePHash(img)
	dHash := computeDHash(img)

	return &Fingerprint{
		PHash:     fmt.Sprintf("%016x", pHash),
		DHash:     fmt.Sprintf("%016x", dHash),
		PHashBits: pHash,
		DHashBits: dHash,
	}, nil
}

// Key is the cache key for the image, built from both hashes.
func (f *Fingerprint) Key() string {
	return f.PHash + f.DHash
}

// computePHash hashes the 8x8 lowest DCT frequencies of a 32x32 grayscale thumbnail,
// setting a bit for every coefficient above the median of the AC terms.
func computePHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 32, 32))
	dct := computeDCT(gray)

	coeffs := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			coeffs = append(coeffs, dct[u][v])
		}
	}
	// The DC term only carries average brightness.
	median := computeMedian(coeffs[1:])

	var hash uint64
	for i, c := range coeffs {
		if c > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// computeDHash compares horizontally adjacent pixels of a 9x8 thumbnail.
func computeDHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale returns BT.601 luma values indexed [x][y].
func toGrayscale(img *image.RGBA) [][]float64 {
	b := img.Bounds()
	gray := make([][]float64, b.Dx())
	for x := range b.Dx() {
		gray[x] = make([]float64, b.Dy())
		for y := range b.Dy() {
			px := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			gray[x][y] = 0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B)
		}
	}
	return gray
}

// computeDCT is a direct 2-D DCT-II of a square matrix.
func computeDCT(gray [][]float64) [][]float64 {
	n := len(gray)
	cos := make([][]float64, n)
	for i := range n {
		cos[i] = make([]float64, n)
		for j := range n {
			cos[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(n)))
		}
	}

	dct := make([][]float64, n)
	for u := range n {
		dct[u] = make([]float64, n)
		for v := range n {
			var sum float64
			for x := range n {
				for y := range n {
					sum += gray[x][y] * cos[u][x] * cos[v][y]
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}

func computeMedian(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
