package render

import (
	"fmt"
	"sort"

	"clipmorph/internal/layout"
	"clipmorph/internal/policy"
	"clipmorph/internal/services"
)

// OpKind identifies a render operation understood by the media engine.
type OpKind string

const (
	OpCrop           OpKind = "crop"
	OpFillBackground OpKind = "fill_background"
	OpOverlayCamera  OpKind = "overlay_camera"
	OpMuteAudio      OpKind = "mute_audio"
	OpDrawSubtitle   OpKind = "draw_subtitle"
)

// kindPriority orders operations that share a start time. Audio muting must
// land before subtitle drawing so audio processing never depends on subtitle
// render state.
func kindPriority(kind OpKind) int {
	switch kind {
	case OpMuteAudio:
		return 0
	case OpDrawSubtitle:
		return 1
	default:
		return 2
	}
}

// Window is a half-open time span in milliseconds.
type Window struct {
	Start int64
	End   int64
}

// CropParams carry the source region kept as primary content.
type CropParams struct {
	Rect layout.Rect
}

// FillParams carry the letterbox fill strategy.
type FillParams struct {
	Mode layout.FillMode
	// Color applies in solid mode, as a hex string.
	Color string
}

// CameraParams carry the camera feed region and its hosting side.
type CameraParams struct {
	Source    layout.Rect
	Placement layout.CameraPlacement
}

// SubtitleParams carry one cue's text and styling.
type SubtitleParams struct {
	Text      string
	SpeakerID string
	Color     string
}

// Operation is one element of the ordered sequence handed to the media
// engine. A nil Window means the operation spans the full duration. Exactly
// one params field matching Kind is set.
type Operation struct {
	Kind     OpKind
	Window   *Window
	Crop     *CropParams
	Fill     *FillParams
	Camera   *CameraParams
	Subtitle *SubtitleParams
}

// DefaultSolidFillColor is used when solid fill is requested without an
// explicit color.
const DefaultSolidFillColor = "#000000"

// Options configure composition.
type Options struct {
	SolidFillColor string
}

// Compose merges the spatial plan with the temporal censoring and subtitle
// instructions into one ordered operation sequence. Spatial operations come
// first since they apply across the full duration; temporal operations follow
// in start order, stable, with muting ahead of subtitle drawing on ties. The
// sequence is deterministic for identical inputs.
func Compose(plan layout.Plan, censors []policy.CensorInterval, cues []policy.SubtitleCue, durationMS int64, opts Options) ([]Operation, error) {
	if durationMS <= 0 {
		return nil, services.Wrap(services.ErrOutOfBounds, "render", "compose",
			fmt.Sprintf("non-positive media duration %dms", durationMS), nil)
	}
	if opts.SolidFillColor == "" {
		opts.SolidFillColor = DefaultSolidFillColor
	}

	ops := make([]Operation, 0, 3+len(censors)+len(cues))

	ops = append(ops, Operation{
		Kind: OpCrop,
		Crop: &CropParams{Rect: plan.CropRect},
	})
	if plan.FillMode != layout.FillNone {
		fill := &FillParams{Mode: plan.FillMode}
		if plan.FillMode == layout.FillSolid {
			fill.Color = opts.SolidFillColor
		}
		ops = append(ops, Operation{Kind: OpFillBackground, Fill: fill})
	}
	if plan.CameraRect != nil && plan.CameraPlacement != layout.PlacementNone {
		ops = append(ops, Operation{
			Kind:   OpOverlayCamera,
			Camera: &CameraParams{Source: *plan.CameraRect, Placement: plan.CameraPlacement},
		})
	}

	temporal := make([]Operation, 0, len(censors)+len(cues))
	for _, censor := range censors {
		if err := checkWindow(censor.Start, censor.End, durationMS, "mute"); err != nil {
			return nil, err
		}
		temporal = append(temporal, Operation{
			Kind:   OpMuteAudio,
			Window: &Window{Start: censor.Start, End: censor.End},
		})
	}
	for _, cue := range cues {
		if err := checkWindow(cue.Start, cue.End, durationMS, "subtitle"); err != nil {
			return nil, err
		}
		temporal = append(temporal, Operation{
			Kind:   OpDrawSubtitle,
			Window: &Window{Start: cue.Start, End: cue.End},
			Subtitle: &SubtitleParams{
				Text:      cue.Text,
				SpeakerID: cue.SpeakerID,
				Color:     cue.Color,
			},
		})
	}

	sort.SliceStable(temporal, func(i, j int) bool {
		if temporal[i].Window.Start != temporal[j].Window.Start {
			return temporal[i].Window.Start < temporal[j].Window.Start
		}
		return kindPriority(temporal[i].Kind) < kindPriority(temporal[j].Kind)
	})

	return append(ops, temporal...), nil
}

func checkWindow(start, end, durationMS int64, what string) error {
	if start < 0 || end < start || end > durationMS {
		return services.Wrap(services.ErrOutOfBounds, "render", "compose",
			fmt.Sprintf("%s window %d-%dms exceeds media duration %dms", what, start, end, durationMS), nil)
	}
	return nil
}
