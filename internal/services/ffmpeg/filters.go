package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"clipmorph/internal/layout"
	"clipmorph/internal/render"
)

// cameraBandFrac is the camera feed's share of output height when hosted.
const cameraBandFrac = 0.30

// FilterGraph is a ready-to-run -filter_complex expression plus the output
// stream labels to map.
type FilterGraph struct {
	Graph      string
	VideoLabel string
	AudioLabel string
}

// chain builds one comma-joined filter chain.
type chain struct {
	filters []string
}

func (c *chain) add(format string, args ...any) *chain {
	c.filters = append(c.filters, fmt.Sprintf(format, args...))
	return c
}

func (c *chain) String() string {
	return strings.Join(c.filters, ",")
}

// BuildFilterGraph translates a composed operation sequence into an ffmpeg
// filtergraph. The sequence contract holds: spatial operations lead, so the
// first operation is always the crop.
func BuildFilterGraph(ops []render.Operation, outW, outH int) (FilterGraph, error) {
	if len(ops) == 0 || ops[0].Kind != render.OpCrop || ops[0].Crop == nil {
		return FilterGraph{}, fmt.Errorf("filtergraph: operation sequence must lead with a crop")
	}

	var (
		crop   = ops[0].Crop.Rect
		fill   *render.FillParams
		camera *render.CameraParams
		mutes  []render.Window
		cues   []render.Operation
	)
	for _, op := range ops[1:] {
		switch op.Kind {
		case render.OpFillBackground:
			fill = op.Fill
		case render.OpOverlayCamera:
			camera = op.Camera
		case render.OpMuteAudio:
			mutes = append(mutes, *op.Window)
		case render.OpDrawSubtitle:
			cues = append(cues, op)
		case render.OpCrop:
			return FilterGraph{}, fmt.Errorf("filtergraph: duplicate crop operation")
		default:
			return FilterGraph{}, fmt.Errorf("filtergraph: unknown operation kind %q", op.Kind)
		}
	}

	var sections []string
	videoTail := "[vmain]"

	if fill == nil && camera == nil {
		// The crop already matches the output aspect; one linear chain.
		main := &chain{}
		main.add("crop=%d:%d:%d:%d", crop.W, crop.H, crop.X, crop.Y).
			add("scale=%d:%d", outW, outH).
			add("setsar=1")
		sections = append(sections, "[0:v]"+main.String()+videoTail)
	} else {
		// One split consumer for the content, plus the camera feed and the
		// blurred background when present.
		splits := 1
		if camera != nil {
			splits++
		}
		if fill != nil && fill.Mode == layout.FillBlur {
			splits++
		}

		next := 0
		takeSrc := func() string { label := fmt.Sprintf("[vsrc%d]", next); next++; return label }
		if splits == 1 {
			takeSrc = func() string { return "[0:v]" }
		} else {
			labels := make([]string, splits)
			for i := range labels {
				labels[i] = fmt.Sprintf("[vsrc%d]", i)
			}
			sections = append(sections, fmt.Sprintf("[0:v]split=%d%s", splits, strings.Join(labels, "")))
		}

		switch {
		case fill != nil && fill.Mode == layout.FillSolid:
			sections = append(sections, fmt.Sprintf("color=c=%s:s=%dx%d[bg]", fill.Color, outW, outH))
		case fill != nil:
			bg := &chain{}
			bg.add("scale=%d:%d", outW, outH).add("setsar=1").add("boxblur=luma_radius=25:luma_power=2")
			sections = append(sections, takeSrc()+bg.String()+"[bg]")
		default:
			sections = append(sections, fmt.Sprintf("color=c=black:s=%dx%d[bg]", outW, outH))
		}

		content := &chain{}
		content.add("crop=%d:%d:%d:%d", crop.W, crop.H, crop.X, crop.Y).
			add("scale=%d:-2", outW).
			add("setsar=1")
		sections = append(sections, takeSrc()+content.String()+"[content]")
		sections = append(sections, "[bg][content]overlay=(W-w)/2:(H-h)/2[vbase]")
		videoTail = "[vbase]"

		if camera != nil {
			camH := int(float64(outH) * cameraBandFrac)
			cam := &chain{}
			cam.add("crop=%d:%d:%d:%d", camera.Source.W, camera.Source.H, camera.Source.X, camera.Source.Y).
				add("scale=-2:%d", camH).
				add("setsar=1")
			sections = append(sections, takeSrc()+cam.String()+"[cam]")

			y := "0"
			if camera.Placement == layout.PlacementBottom {
				y = "H-h"
			}
			sections = append(sections, fmt.Sprintf("%s[cam]overlay=(W-w)/2:%s[vcam]", videoTail, y))
			videoTail = "[vcam]"
		}
		// Rename the tail so the mapping label is uniform.
		sections = append(sections, videoTail+"null[vmain]")
		videoTail = "[vmain]"
	}

	if len(cues) > 0 {
		text := &chain{}
		for _, cue := range cues {
			text.add("drawtext=text='%s':expansion=none:fontcolor=%s:fontsize=64:borderw=4:bordercolor=black:x=(w-text_w)/2:y=h-360:enable='between(t,%s,%s)'",
				escapeDrawText(cue.Subtitle.Text),
				cue.Subtitle.Color,
				formatSeconds(cue.Window.Start),
				formatSeconds(cue.Window.End))
		}
		sections = append(sections, videoTail+text.String()+"[vout]")
	} else {
		sections = append(sections, videoTail+"null[vout]")
	}

	graph := FilterGraph{VideoLabel: "[vout]"}

	if len(mutes) > 0 {
		audio := &chain{}
		for _, window := range mutes {
			audio.add("volume=enable='between(t,%s,%s)':volume=0",
				formatSeconds(window.Start), formatSeconds(window.End))
		}
		sections = append(sections, "[0:a]"+audio.String()+"[aout]")
		graph.AudioLabel = "[aout]"
	}

	graph.Graph = strings.Join(sections, ";")
	return graph, nil
}

// escapeDrawText escapes cue text for a single-quoted drawtext argument.
func escapeDrawText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `'`, `'\''`)
	return text
}

// formatSeconds renders milliseconds as fractional seconds for filter
// expressions.
func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}
