package layout

import (
	"fmt"

	"clipmorph/internal/services"
)

// Rect is an axis-aligned rectangle in source pixel coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Area returns the rectangle's area in pixels.
func (r Rect) Area() int {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Intersect returns the overlapping region of two rectangles and whether it
// is non-empty.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.W, other.X+other.W)
	y2 := min(r.Y+r.H, other.Y+other.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

// Dimensions is a frame size in pixels.
type Dimensions struct {
	W int
	H int
}

// AspectRatio is a width:height ratio, e.g. 9:16 for vertical shorts.
type AspectRatio struct {
	W int
	H int
}

// FillMode selects how letterboxed area outside the cropped content is
// painted.
type FillMode string

const (
	// FillBlur paints residual area with a scaled and blurred copy of the
	// source frame.
	FillBlur FillMode = "blur"
	// FillSolid paints residual area with a flat color.
	FillSolid FillMode = "solid"
	// FillNone means the crop covers the output frame completely.
	FillNone FillMode = "none"
)

// CameraPlacement is where the camera feed lands in the output frame.
type CameraPlacement string

const (
	PlacementTop    CameraPlacement = "top"
	PlacementBottom CameraPlacement = "bottom"
	PlacementNone   CameraPlacement = "none"
)

// Plan is the spatial transform for one source video. It is computed once per
// job and consumed read-only by the render composer.
type Plan struct {
	CropRect        Rect
	CameraRect      *Rect
	CameraPlacement CameraPlacement
	FillMode        FillMode
}

// Defaults for the tunable layout knobs.
const (
	// DefaultAspectTolerance is the relative aspect mismatch below which the
	// full frame is used without cropping.
	DefaultAspectTolerance = 0.01
	// DefaultCameraHeightFrac scales a hosted camera feed to this fraction of
	// output frame height. Must fit within the hosting third.
	DefaultCameraHeightFrac = 0.30
)

// Options configure planning. TiePreference decides the hosting side when the
// top and bottom thirds overlap the crop equally.
type Options struct {
	FillPreference   FillMode
	AspectTolerance  float64
	CameraHeightFrac float64
	TiePreference    CameraPlacement
}

func (o Options) withDefaults() (Options, error) {
	if o.FillPreference == "" {
		o.FillPreference = FillBlur
	}
	if o.FillPreference != FillBlur && o.FillPreference != FillSolid {
		return o, services.Wrap(services.ErrConfiguration, "layout", "validate options",
			fmt.Sprintf("fill preference must be blur or solid, got %q", o.FillPreference), nil)
	}
	if o.AspectTolerance <= 0 {
		o.AspectTolerance = DefaultAspectTolerance
	}
	if o.CameraHeightFrac <= 0 {
		o.CameraHeightFrac = DefaultCameraHeightFrac
	}
	if o.TiePreference == "" {
		o.TiePreference = PlacementTop
	}
	if o.TiePreference != PlacementTop && o.TiePreference != PlacementBottom {
		return o, services.Wrap(services.ErrConfiguration, "layout", "validate options",
			fmt.Sprintf("tie preference must be top or bottom, got %q", o.TiePreference), nil)
	}
	return o, nil
}

// ComputePlan derives the crop, camera hosting, and fill decisions for one
// source video. The camera region, when given, is in source pixel
// coordinates; it is hosted only when it lies fully outside the chosen crop,
// which keeps the crop and camera rectangles disjoint.
func ComputePlan(source Dimensions, target AspectRatio, camera *Rect, opts Options) (Plan, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Plan{}, err
	}
	if target.W <= 0 || target.H <= 0 {
		return Plan{}, services.Wrap(services.ErrInvalidLayout, "layout", "plan",
			fmt.Sprintf("degenerate target aspect %d:%d", target.W, target.H), nil)
	}
	if source.W <= 0 || source.H <= 0 {
		return Plan{}, services.Wrap(services.ErrInvalidLayout, "layout", "plan",
			fmt.Sprintf("degenerate source dimensions %dx%d", source.W, source.H), nil)
	}
	if camera != nil {
		if camera.W <= 0 || camera.H <= 0 {
			return Plan{}, services.Wrap(services.ErrInvalidLayout, "layout", "plan",
				"degenerate camera region", nil)
		}
		frame := Rect{W: source.W, H: source.H}
		if clipped, ok := camera.Intersect(frame); !ok || clipped != *camera {
			return Plan{}, services.Wrap(services.ErrInvalidLayout, "layout", "plan",
				"camera region extends outside the source frame", nil)
		}
	}

	if aspectMatches(source, target, opts.AspectTolerance) {
		return Plan{
			CropRect:        Rect{W: source.W, H: source.H},
			CameraPlacement: PlacementNone,
			FillMode:        FillNone,
		}, nil
	}

	crop := centeredCrop(source, target)

	plan := Plan{
		CropRect:        crop,
		CameraPlacement: PlacementNone,
		FillMode:        FillNone,
	}

	if camera != nil {
		if _, overlaps := camera.Intersect(crop); !overlaps {
			if opts.CameraHeightFrac <= 1.0/3.0 {
				plan.CameraRect = camera
				plan.CameraPlacement = hostingSide(source, crop, opts.TiePreference)
				// Hosting the camera band leaves residual area to fill.
				plan.FillMode = opts.FillPreference
			}
		}
	}

	return plan, nil
}

// aspectMatches reports whether the source aspect is within the relative
// tolerance of the target aspect. The cross-multiplied terms are compared
// directly so neither ratio is ever formed as a quotient.
func aspectMatches(source Dimensions, target AspectRatio, tolerance float64) bool {
	lhs := float64(source.W) * float64(target.H)
	rhs := float64(source.H) * float64(target.W)
	diff := lhs - rhs
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance*rhs
}

// centeredCrop returns the largest centered rectangle of the target aspect
// that fits within the source frame.
func centeredCrop(source Dimensions, target AspectRatio) Rect {
	// Wider than target: keep full height, trim the sides.
	if source.W*target.H > source.H*target.W {
		w := source.H * target.W / target.H
		return Rect{X: (source.W - w) / 2, Y: 0, W: w, H: source.H}
	}
	// Taller than target: keep full width, trim top and bottom.
	h := source.W * target.H / target.W
	return Rect{X: 0, Y: (source.H - h) / 2, W: source.W, H: h}
}

// hostingSide picks the top or bottom third for the camera band, preferring
// the side where the crop occupies less area so the overlay hides less
// content. Equal overlap falls back to the configured preference.
func hostingSide(source Dimensions, crop Rect, tie CameraPlacement) CameraPlacement {
	third := source.H / 3
	topBand := Rect{X: 0, Y: 0, W: source.W, H: third}
	bottomBand := Rect{X: 0, Y: source.H - third, W: source.W, H: third}

	topOverlap := 0
	if r, ok := crop.Intersect(topBand); ok {
		topOverlap = r.Area()
	}
	bottomOverlap := 0
	if r, ok := crop.Intersect(bottomBand); ok {
		bottomOverlap = r.Area()
	}

	switch {
	case topOverlap < bottomOverlap:
		return PlacementTop
	case bottomOverlap < topOverlap:
		return PlacementBottom
	default:
		return tie
	}
}
