package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clipmorph/internal/layout"
	"clipmorph/internal/logging"
	"clipmorph/internal/policy"
	"clipmorph/internal/render"
	"clipmorph/internal/services"
	"clipmorph/internal/timeline"
)

// Transcriber produces word-level transcript events for a media file.
type Transcriber interface {
	Transcribe(ctx context.Context, sourcePath string) ([]timeline.WordEvent, error)
}

// Diarizer produces speaker segments for a media file.
type Diarizer interface {
	Diarize(ctx context.Context, sourcePath string) ([]timeline.SpeakerSegment, error)
}

// Renderer executes a composed operation sequence against the media engine.
type Renderer interface {
	Render(ctx context.Context, sourcePath, outputPath string, ops []render.Operation) error
}

// SourceInfo is the probed geometry of one source video.
type SourceInfo struct {
	Width        int
	Height       int
	DurationMS   int64
	CameraRegion *layout.Rect
}

// Request describes one conversion job. All fields are read-only once the job
// starts. AudioPath optionally points at a pre-extracted audio track for the
// speech engines; when empty they read the source video directly.
type Request struct {
	ItemID     int64
	SourcePath string
	AudioPath  string
	OutputPath string
	Source     SourceInfo
}

func (r Request) speechPath() string {
	if r.AudioPath != "" {
		return r.AudioPath
	}
	return r.SourcePath
}

// Result carries a finished job's derived artifacts. History records every
// state entered, in order, and never repeats a state.
type Result struct {
	State      State
	History    []State
	Utterances []timeline.Utterance
	Censors    []policy.CensorInterval
	Cues       []policy.SubtitleCue
	Plan       layout.Plan
	Operations []render.Operation
}

// Default timeout bounds on external engine calls.
const (
	DefaultTranscribeTimeout = 15 * time.Minute
	DefaultDiarizeTimeout    = 15 * time.Minute
	DefaultRenderTimeout     = 45 * time.Minute
)

// Config collects the per-component options an orchestrator applies to every
// job it runs.
type Config struct {
	TargetAspect      layout.AspectRatio
	Fusion            timeline.Options
	Policy            policy.Options
	Layout            layout.Options
	Render            render.Options
	TranscribeTimeout time.Duration
	DiarizeTimeout    time.Duration
	RenderTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.TargetAspect == (layout.AspectRatio{}) {
		c.TargetAspect = layout.AspectRatio{W: 9, H: 16}
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = DefaultTranscribeTimeout
	}
	if c.DiarizeTimeout <= 0 {
		c.DiarizeTimeout = DefaultDiarizeTimeout
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = DefaultRenderTimeout
	}
	return c
}

// Orchestrator drives one job through the conversion state machine. The
// transformation stages are pure and job-local, so a single orchestrator may
// run many jobs concurrently.
type Orchestrator struct {
	cfg         Config
	transcriber Transcriber
	diarizer    Diarizer
	renderer    Renderer
	log         *slog.Logger
}

// NewOrchestrator validates dependencies and returns a ready orchestrator.
func NewOrchestrator(cfg Config, transcriber Transcriber, diarizer Diarizer, renderer Renderer, logger *slog.Logger) (*Orchestrator, error) {
	if transcriber == nil || diarizer == nil || renderer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new orchestrator",
			"transcriber, diarizer, and renderer are all required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg.withDefaults(),
		transcriber: transcriber,
		diarizer:    diarizer,
		renderer:    renderer,
		log:         logger,
	}, nil
}

type fusionBranch struct {
	utterances []timeline.Utterance
	censors    []policy.CensorInterval
	cues       []policy.SubtitleCue
	err        error
}

type layoutBranch struct {
	plan layout.Plan
	err  error
}

// Run executes one job to a terminal state. The transcript branch (fusion and
// policy derivation) and the layout branch run concurrently and join before
// composition. Any component error fails the job with the originating error
// preserved; retry decisions belong to the caller.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ctx = services.WithItemID(ctx, req.ItemID)
	log := o.log.With(logging.Int64(logging.FieldItemID, req.ItemID))

	res := &Result{}
	res.advance(StateIngested)
	log.InfoContext(ctx, "job ingested",
		logging.String("source", req.SourcePath),
		logging.Int("width", req.Source.Width),
		logging.Int("height", req.Source.Height),
		logging.Int64("duration_ms", req.Source.DurationMS))

	fusionCh := make(chan fusionBranch, 1)
	layoutCh := make(chan layoutBranch, 1)

	go func() { fusionCh <- o.runFusionBranch(ctx, req) }()
	go func() { layoutCh <- o.runLayoutBranch(req) }()

	fusion := <-fusionCh
	plan := <-layoutCh

	// Transitions apply in canonical order at the join point, regardless of
	// which branch finished first.
	if fusion.err != nil {
		return o.fail(ctx, log, res, fusion.err)
	}
	res.advance(StateFused)
	res.Utterances = fusion.utterances
	res.advance(StatePolicyDerived)
	res.Censors = fusion.censors
	res.Cues = fusion.cues
	log.InfoContext(ctx, "timeline fused and policy derived",
		logging.Int("utterances", len(fusion.utterances)),
		logging.Int("censor_intervals", len(fusion.censors)),
		logging.Int("subtitle_cues", len(fusion.cues)))

	if plan.err != nil {
		return o.fail(ctx, log, res, plan.err)
	}
	res.advance(StateLaidOut)
	res.Plan = plan.plan
	log.InfoContext(ctx, "layout planned",
		logging.String("fill_mode", string(plan.plan.FillMode)),
		logging.String("camera_placement", string(plan.plan.CameraPlacement)))

	ops, err := render.Compose(plan.plan, fusion.censors, fusion.cues, req.Source.DurationMS, o.cfg.Render)
	if err != nil {
		return o.fail(ctx, log, res, err)
	}
	res.advance(StateComposed)
	res.Operations = ops
	log.InfoContext(ctx, "render operations composed", logging.Int("operations", len(ops)))

	renderCtx, cancel := context.WithTimeout(ctx, o.cfg.RenderTimeout)
	defer cancel()
	if err := o.renderer.Render(renderCtx, req.SourcePath, req.OutputPath, ops); err != nil {
		return o.fail(ctx, log, res, services.ClassifyUpstream("render", "execute", err))
	}
	res.advance(StateRendered)
	log.InfoContext(ctx, "job rendered", logging.String("output", req.OutputPath))
	return res, nil
}

// runFusionBranch fetches the transcript and diarization signals concurrently,
// fuses them, and derives the censoring policy.
func (o *Orchestrator) runFusionBranch(ctx context.Context, req Request) fusionBranch {
	type wordsOut struct {
		words []timeline.WordEvent
		err   error
	}
	type segmentsOut struct {
		segments []timeline.SpeakerSegment
		err      error
	}
	wordsCh := make(chan wordsOut, 1)
	segmentsCh := make(chan segmentsOut, 1)

	go func() {
		tctx, cancel := context.WithTimeout(ctx, o.cfg.TranscribeTimeout)
		defer cancel()
		words, err := o.transcriber.Transcribe(tctx, req.speechPath())
		wordsCh <- wordsOut{words, services.ClassifyUpstream("transcribe", "word events", err)}
	}()
	go func() {
		dctx, cancel := context.WithTimeout(ctx, o.cfg.DiarizeTimeout)
		defer cancel()
		segments, err := o.diarizer.Diarize(dctx, req.speechPath())
		segmentsCh <- segmentsOut{segments, services.ClassifyUpstream("diarize", "speaker segments", err)}
	}()

	words := <-wordsCh
	segments := <-segmentsCh
	if words.err != nil {
		return fusionBranch{err: words.err}
	}
	if segments.err != nil {
		return fusionBranch{err: segments.err}
	}

	utterances, err := timeline.Fuse(words.words, segments.segments, o.cfg.Fusion)
	if err != nil {
		return fusionBranch{err: err}
	}
	popts := o.cfg.Policy
	popts.MediaDurationMS = req.Source.DurationMS
	censors, cues, err := policy.Derive(utterances, popts)
	if err != nil {
		return fusionBranch{err: err}
	}
	return fusionBranch{utterances: utterances, censors: censors, cues: cues}
}

func (o *Orchestrator) runLayoutBranch(req Request) layoutBranch {
	plan, err := layout.ComputePlan(
		layout.Dimensions{W: req.Source.Width, H: req.Source.Height},
		o.cfg.TargetAspect,
		req.Source.CameraRegion,
		o.cfg.Layout,
	)
	return layoutBranch{plan: plan, err: err}
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, res *Result, err error) (*Result, error) {
	res.State = StateFailed
	res.History = append(res.History, StateFailed)
	log.ErrorContext(ctx, "job failed",
		logging.String("last_state", string(res.History[len(res.History)-2])),
		logging.Error(err))
	return res, err
}

// advance moves the result to a strictly later state. A backwards or repeated
// transition is a programming error.
func (r *Result) advance(to State) {
	if r.State != "" {
		from, ok := stateOrder[r.State]
		next, ok2 := stateOrder[to]
		if !ok || !ok2 || next <= from {
			panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.State, to))
		}
	}
	r.State = to
	r.History = append(r.History, to)
}
