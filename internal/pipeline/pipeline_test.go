package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"clipmorph/internal/layout"
	"clipmorph/internal/pipeline"
	"clipmorph/internal/policy"
	"clipmorph/internal/render"
	"clipmorph/internal/services"
	"clipmorph/internal/timeline"
)

type fakeTranscriber struct {
	words []timeline.WordEvent
	err   error
	block bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ string) ([]timeline.WordEvent, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.words, f.err
}

type fakeDiarizer struct {
	segments []timeline.SpeakerSegment
	err      error
}

func (f *fakeDiarizer) Diarize(context.Context, string) ([]timeline.SpeakerSegment, error) {
	return f.segments, f.err
}

type fakeRenderer struct {
	err    error
	source string
	output string
	ops    []render.Operation
}

func (f *fakeRenderer) Render(_ context.Context, sourcePath, outputPath string, ops []render.Operation) error {
	f.source = sourcePath
	f.output = outputPath
	f.ops = ops
	return f.err
}

func testRequest() pipeline.Request {
	return pipeline.Request{
		ItemID:     7,
		SourcePath: "/videos/match.mkv",
		OutputPath: "/videos/match-short.mp4",
		Source:     pipeline.SourceInfo{Width: 1920, Height: 1080, DurationMS: 60_000},
	}
}

func newOrchestrator(t *testing.T, cfg pipeline.Config, tr pipeline.Transcriber, di pipeline.Diarizer, re pipeline.Renderer) *pipeline.Orchestrator {
	t.Helper()
	orch, err := pipeline.NewOrchestrator(cfg, tr, di, re, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func TestRunHappyPath(t *testing.T) {
	tr := &fakeTranscriber{words: []timeline.WordEvent{
		{Text: "nice", Start: 0, End: 400},
		{Text: "heck", Start: 400, End: 800},
	}}
	di := &fakeDiarizer{segments: []timeline.SpeakerSegment{
		{SpeakerID: "A", Start: 0, End: 1000},
	}}
	re := &fakeRenderer{}

	cfg := pipeline.Config{
		Policy: policy.Options{
			Mode:    policy.RedactMuteAndAsterisk,
			Lexicon: policy.NewLexicon([]string{"heck"}),
		},
	}
	res, err := newOrchestrator(t, cfg, tr, di, re).Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.State != pipeline.StateRendered {
		t.Fatalf("state = %q", res.State)
	}
	wantHistory := []pipeline.State{
		pipeline.StateIngested, pipeline.StateFused, pipeline.StatePolicyDerived,
		pipeline.StateLaidOut, pipeline.StateComposed, pipeline.StateRendered,
	}
	if !reflect.DeepEqual(res.History, wantHistory) {
		t.Fatalf("history = %v", res.History)
	}

	if len(res.Utterances) != 1 || res.Utterances[0].SpeakerID != "A" {
		t.Fatalf("utterances = %+v", res.Utterances)
	}
	if len(res.Censors) != 1 {
		t.Fatalf("censors = %+v", res.Censors)
	}
	if re.output != "/videos/match-short.mp4" {
		t.Fatalf("renderer output = %q", re.output)
	}
	if len(re.ops) == 0 || re.ops[0].Kind != render.OpCrop {
		t.Fatalf("renderer ops = %+v", re.ops)
	}
	if !reflect.DeepEqual(re.ops, res.Operations) {
		t.Fatal("renderer must receive the composed sequence")
	}
}

func TestRunProfaneFinalWordComposesWithinDuration(t *testing.T) {
	// A lexicon hit on the last word pads the mute window past the end of
	// the clip; the pad must be clamped so composition still succeeds.
	tr := &fakeTranscriber{words: []timeline.WordEvent{
		{Text: "gg", Start: 0, End: 500},
		{Text: "heck", Start: 59_600, End: 60_000},
	}}
	re := &fakeRenderer{}
	cfg := pipeline.Config{
		Policy: policy.Options{
			Mode:    policy.RedactMuteOnly,
			Lexicon: policy.NewLexicon([]string{"heck"}),
		},
	}

	res, err := newOrchestrator(t, cfg, tr, &fakeDiarizer{}, re).Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != pipeline.StateRendered {
		t.Fatalf("state = %q", res.State)
	}
	if len(res.Censors) != 1 || res.Censors[0].End != 60_000 {
		t.Fatalf("censors = %+v, want end clamped to 60000", res.Censors)
	}
	for _, op := range res.Operations {
		if op.Kind == render.OpMuteAudio && op.Window.End > 60_000 {
			t.Fatalf("mute window exceeds media duration: %+v", op)
		}
	}
}

func TestRunTranscriberTimeoutIsRetryable(t *testing.T) {
	cfg := pipeline.Config{TranscribeTimeout: 10 * time.Millisecond}
	orch := newOrchestrator(t, cfg, &fakeTranscriber{block: true}, &fakeDiarizer{}, &fakeRenderer{})

	res, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if res.State != pipeline.StateFailed {
		t.Fatalf("state = %q", res.State)
	}
	if !services.Retryable(err) {
		t.Fatal("timeouts must be retryable")
	}
}

func TestRunMalformedTranscriptFailsFast(t *testing.T) {
	tr := &fakeTranscriber{words: []timeline.WordEvent{{Text: "bad", Start: 900, End: 100}}}
	orch := newOrchestrator(t, pipeline.Config{}, tr, &fakeDiarizer{}, &fakeRenderer{})

	res, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrMalformedSignal) {
		t.Fatalf("expected ErrMalformedSignal, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("malformed input must not be retryable")
	}
	if res.History[len(res.History)-1] != pipeline.StateFailed {
		t.Fatalf("history = %v", res.History)
	}
}

func TestRunDegenerateAspectFailsAfterPolicy(t *testing.T) {
	tr := &fakeTranscriber{words: []timeline.WordEvent{{Text: "ok", Start: 0, End: 100}}}
	cfg := pipeline.Config{TargetAspect: layout.AspectRatio{W: -9, H: 16}}
	orch := newOrchestrator(t, cfg, tr, &fakeDiarizer{}, &fakeRenderer{})

	res, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
	wantHistory := []pipeline.State{
		pipeline.StateIngested, pipeline.StateFused, pipeline.StatePolicyDerived,
		pipeline.StateFailed,
	}
	if !reflect.DeepEqual(res.History, wantHistory) {
		t.Fatalf("history = %v", res.History)
	}
}

func TestRunFusionErrorWinsOverLayoutError(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("engine crashed")}
	cfg := pipeline.Config{TargetAspect: layout.AspectRatio{W: -9, H: 16}}
	orch := newOrchestrator(t, cfg, tr, &fakeDiarizer{}, &fakeRenderer{})

	_, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("fusion branch error must be reported first, got %v", err)
	}
}

func TestRunRendererFailureIsExternalTool(t *testing.T) {
	tr := &fakeTranscriber{words: []timeline.WordEvent{{Text: "ok", Start: 0, End: 100}}}
	re := &fakeRenderer{err: errors.New("ffmpeg exited 1")}
	orch := newOrchestrator(t, pipeline.Config{}, tr, &fakeDiarizer{}, re)

	res, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if res.State != pipeline.StateFailed {
		t.Fatalf("state = %q", res.State)
	}
}

func TestRunOutOfBoundsWindowFailsComposition(t *testing.T) {
	tr := &fakeTranscriber{words: []timeline.WordEvent{{Text: "late", Start: 70_000, End: 70_500}}}
	orch := newOrchestrator(t, pipeline.Config{}, tr, &fakeDiarizer{}, &fakeRenderer{})

	// Words past the 60s media duration compose to a subtitle window that
	// cannot fit the clip.
	_, err := orch.Run(context.Background(), testRequest())
	if !errors.Is(err, services.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	_, err := pipeline.NewOrchestrator(pipeline.Config{}, nil, &fakeDiarizer{}, &fakeRenderer{}, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
