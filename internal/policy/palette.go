package policy

// DefaultPalette is the speaker color cycle used when none is configured.
// Index 0 goes to the first speaker seen in the fused timeline.
var DefaultPalette = []string{
	"#FFFFFF", // first speaker stays white, matching single-speaker clips
	"#FFD166",
	"#06D6A0",
	"#EF476F",
	"#118AB2",
	"#C77DFF",
}

// colorAssigner hands out palette colors in first-seen speaker order, cycling
// when the palette is exhausted. Assignment is job-local and reproducible:
// the same input order always yields the same speaker-to-color mapping.
type colorAssigner struct {
	palette []string
	bySpkr  map[string]string
}

func newColorAssigner(palette []string) *colorAssigner {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &colorAssigner{palette: palette, bySpkr: make(map[string]string)}
}

func (c *colorAssigner) colorFor(speakerID string) string {
	if color, ok := c.bySpkr[speakerID]; ok {
		return color
	}
	color := c.palette[len(c.bySpkr)%len(c.palette)]
	c.bySpkr[speakerID] = color
	return color
}
