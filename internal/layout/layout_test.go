package layout_test

import (
	"errors"
	"testing"

	"clipmorph/internal/layout"
	"clipmorph/internal/services"
)

func TestComputePlanWidescreenToVertical(t *testing.T) {
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		nil,
		layout.Options{},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}

	want := layout.Rect{X: 656, Y: 0, W: 607, H: 1080}
	if plan.CropRect != want {
		t.Fatalf("crop = %+v, want %+v", plan.CropRect, want)
	}
	if plan.FillMode != layout.FillNone {
		t.Fatalf("fill = %q, want none when crop covers the output", plan.FillMode)
	}
	if plan.CameraPlacement != layout.PlacementNone || plan.CameraRect != nil {
		t.Fatalf("no camera region given, got placement %q", plan.CameraPlacement)
	}
}

func TestComputePlanAspectAlreadyMatches(t *testing.T) {
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1080, H: 1920},
		layout.AspectRatio{W: 9, H: 16},
		nil,
		layout.Options{},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.CropRect != (layout.Rect{X: 0, Y: 0, W: 1080, H: 1920}) {
		t.Fatalf("expected full-frame crop, got %+v", plan.CropRect)
	}
	if plan.FillMode != layout.FillNone {
		t.Fatalf("fill = %q", plan.FillMode)
	}
}

func TestComputePlanTallSourceTrimsVertically(t *testing.T) {
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1080, H: 2400},
		layout.AspectRatio{W: 9, H: 16},
		nil,
		layout.Options{},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	want := layout.Rect{X: 0, Y: 240, W: 1080, H: 1920}
	if plan.CropRect != want {
		t.Fatalf("crop = %+v, want %+v", plan.CropRect, want)
	}
}

func TestComputePlanHostsDisjointCamera(t *testing.T) {
	camera := layout.Rect{X: 0, Y: 0, W: 300, H: 200}
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		&camera,
		layout.Options{FillPreference: layout.FillBlur},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.CameraRect == nil || *plan.CameraRect != camera {
		t.Fatalf("camera rect = %+v", plan.CameraRect)
	}
	// Full-height crop overlaps top and bottom thirds equally; the tie
	// defaults to top.
	if plan.CameraPlacement != layout.PlacementTop {
		t.Fatalf("placement = %q, want top", plan.CameraPlacement)
	}
	if plan.FillMode != layout.FillBlur {
		t.Fatalf("fill = %q, want blur behind the hosted camera band", plan.FillMode)
	}
	if _, overlaps := plan.CropRect.Intersect(*plan.CameraRect); overlaps {
		t.Fatalf("crop and camera must stay disjoint: %+v vs %+v", plan.CropRect, plan.CameraRect)
	}
}

func TestComputePlanTiePreferenceBottom(t *testing.T) {
	camera := layout.Rect{X: 0, Y: 880, W: 300, H: 200}
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		&camera,
		layout.Options{TiePreference: layout.PlacementBottom},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.CameraPlacement != layout.PlacementBottom {
		t.Fatalf("placement = %q, want configured bottom preference", plan.CameraPlacement)
	}
}

func TestComputePlanRejectsCameraInsideCrop(t *testing.T) {
	camera := layout.Rect{X: 900, Y: 400, W: 200, H: 200}
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		&camera,
		layout.Options{},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.CameraPlacement != layout.PlacementNone || plan.CameraRect != nil {
		t.Fatalf("camera inside crop must not be hosted: %+v", plan)
	}
	if plan.FillMode != layout.FillNone {
		t.Fatalf("fill = %q, want none without a hosted camera", plan.FillMode)
	}
}

func TestComputePlanOversizedCameraFracNotHosted(t *testing.T) {
	camera := layout.Rect{X: 0, Y: 0, W: 300, H: 200}
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		&camera,
		layout.Options{CameraHeightFrac: 0.5},
	)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.CameraPlacement != layout.PlacementNone {
		t.Fatalf("camera taller than the hosting third must not be placed: %+v", plan)
	}
}

func TestComputePlanDegenerateInputs(t *testing.T) {
	cases := []struct {
		name   string
		source layout.Dimensions
		target layout.AspectRatio
		camera *layout.Rect
	}{
		{"zero target width", layout.Dimensions{W: 1920, H: 1080}, layout.AspectRatio{W: 0, H: 16}, nil},
		{"negative target height", layout.Dimensions{W: 1920, H: 1080}, layout.AspectRatio{W: 9, H: -16}, nil},
		{"zero source", layout.Dimensions{}, layout.AspectRatio{W: 9, H: 16}, nil},
		{"zero camera", layout.Dimensions{W: 1920, H: 1080}, layout.AspectRatio{W: 9, H: 16}, &layout.Rect{X: 0, Y: 0, W: 0, H: 10}},
		{"camera outside frame", layout.Dimensions{W: 1920, H: 1080}, layout.AspectRatio{W: 9, H: 16}, &layout.Rect{X: 1800, Y: 0, W: 300, H: 200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := layout.ComputePlan(tc.source, tc.target, tc.camera, layout.Options{})
			if !errors.Is(err, services.ErrInvalidLayout) {
				t.Fatalf("expected ErrInvalidLayout, got %v", err)
			}
		})
	}
}

func TestComputePlanRejectsUnknownFillPreference(t *testing.T) {
	_, err := layout.ComputePlan(
		layout.Dimensions{W: 1920, H: 1080},
		layout.AspectRatio{W: 9, H: 16},
		nil,
		layout.Options{FillPreference: "plaid"},
	)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestComputePlanCropStaysWithinSource(t *testing.T) {
	sources := []layout.Dimensions{
		{W: 1920, H: 1080}, {W: 1280, H: 720}, {W: 2560, H: 1080},
		{W: 1080, H: 1920}, {W: 640, H: 480}, {W: 3840, H: 2160},
	}
	for _, src := range sources {
		plan, err := layout.ComputePlan(src, layout.AspectRatio{W: 9, H: 16}, nil, layout.Options{})
		if err != nil {
			t.Fatalf("ComputePlan(%+v): %v", src, err)
		}
		crop := plan.CropRect
		if crop.X < 0 || crop.Y < 0 || crop.X+crop.W > src.W || crop.Y+crop.H > src.H {
			t.Fatalf("crop %+v escapes source %+v", crop, src)
		}
		if crop.W <= 0 || crop.H <= 0 {
			t.Fatalf("empty crop for %+v", src)
		}
	}
}
