// Package contour finds candidate marker quadrilaterals in a raster using
// OpenCV edge and contour extraction.
package contour

import (
	"fmt"
	"image"

	"marker-locator/internal/raster"
	"marker-locator/pkg/colorutil"
	"marker-locator/pkg/geometry"

	"gocv.io/x/gocv"
)

// Extractor returns the candidate quadrilaterals found in a raster, each as
// its four vertices in contour order.
type Extractor interface {
	Extract(buf raster.Buffer) ([][]geometry.PointInt, error)
}

// Params controls the edge and polygon filters.
type Params struct {
	MinArea       float64 // smallest accepted quad area in pixels
	MaxArea       float64
	EpsilonFactor float64 // ApproxPolyDP tolerance as a fraction of arc length
	BlurSize      int     // odd Gaussian kernel size
	CannyLow      float32
	CannyHigh     float32
	DilateSize    int
}

// DefaultParams returns the filter settings tuned for the 3x3 cm marker
// grid at the fixed camera height.
func DefaultParams() Params {
	return Params{
		MinArea:       400,
		MaxArea:       1700,
		EpsilonFactor: 0.03,
		BlurSize:      3,
		CannyLow:      30,
		CannyHigh:     60,
		DilateSize:    3,
	}
}

// Detector is the OpenCV backed Extractor.
type Detector struct {
	params Params
}

// NewDetector creates a detector with the given parameters.
func NewDetector(p Params) *Detector {
	return &Detector{params: p}
}

// Params returns the detector's parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Extract runs blur, Canny and dilation over the raster, then keeps the
// contours whose polygon approximation is a convex quadrilateral inside the
// configured area range. Both edges of a thick outline may be reported, so
// callers should deduplicate the resulting markers.
func (d *Detector) Extract(buf raster.Buffer) ([][]geometry.PointInt, error) {
	img, err := toMat(buf)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 3 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{d.params.BlurSize, d.params.BlurSize}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, d.params.CannyLow, d.params.CannyHigh)

	// Dilate to close gaps in the square outlines
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{d.params.DilateSize, d.params.DilateSize})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var quads [][]geometry.PointInt
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		epsilon := d.params.EpsilonFactor * gocv.ArcLength(c, true)
		approx := gocv.ApproxPolyDP(c, epsilon, true)
		if approx.Size() == 4 {
			quad := make([]geometry.PointInt, 4)
			for j, p := range approx.ToPoints() {
				quad[j] = geometry.FromImagePoint(p)
			}
			area := geometry.Area(quad)
			if area >= d.params.MinArea && area <= d.params.MaxArea && geometry.IsConvex(quad) {
				quads = append(quads, quad)
			}
		}
		approx.Close()
	}
	return quads, nil
}

// Annotate returns a copy of buf as a 3-byte raster with every quad
// outlined in green and a red box drawn around each synthesized center.
func Annotate(buf raster.Buffer, quads [][]geometry.PointInt, synthetic []geometry.PointInt) (raster.Buffer, error) {
	img, err := toMat(buf)
	if err != nil {
		return raster.Buffer{}, err
	}
	defer img.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &dst, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&dst)
	}

	for _, q := range quads {
		pv := gocv.NewPointsVector()
		poly := make([]image.Point, len(q))
		for i, p := range q {
			poly[i] = p.ImagePoint()
		}
		outline := gocv.NewPointVectorFromPoints(poly)
		pv.Append(outline)
		gocv.Polylines(&dst, pv, true, colorutil.Green, 1)
		outline.Close()
		pv.Close()
	}
	for _, p := range synthetic {
		gocv.Rectangle(&dst, geometry.Square(p, 5).ImageRect(), colorutil.Red, 1)
	}

	return raster.Buffer{
		Width:  dst.Cols(),
		Height: dst.Rows(),
		Format: raster.FormatRGB888,
		Pix:    dst.ToBytes(),
	}, nil
}

// toMat copies a raster into a new Mat. 565 rasters are unpacked first.
func toMat(buf raster.Buffer) (gocv.Mat, error) {
	buf, err := buf.To888()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to prepare raster: %w", err)
	}
	mt := gocv.MatTypeCV8UC3
	if buf.BPP() == 1 {
		mt = gocv.MatTypeCV8UC1
	}
	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, mt, buf.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create Mat: %w", err)
	}
	return mat, nil
}
