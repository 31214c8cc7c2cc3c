package policy_test

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"unicode/utf8"

	"clipmorph/internal/policy"
	"clipmorph/internal/services"
	"clipmorph/internal/timeline"
)

func utterance(speaker string, words ...timeline.WordEvent) timeline.Utterance {
	return timeline.Utterance{
		SpeakerID: speaker,
		Words:     words,
		Start:     words[0].Start,
		End:       words[len(words)-1].End,
	}
}

func word(text string, start, end int64) timeline.WordEvent {
	return timeline.WordEvent{Text: text, Start: start, End: end}
}

func TestDeriveCensorsAndMasksProfanity(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A", word("shoot", 0, 500), word("that", 500, 900)),
		utterance("B", word("heck", 900, 1200)),
	}
	censors, cues, err := policy.Derive(utts, policy.Options{
		Mode:      policy.RedactMuteAndAsterisk,
		Lexicon:   policy.NewLexicon([]string{"heck"}),
		CensorPad: 50,
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if len(censors) != 1 {
		t.Fatalf("expected 1 censor interval, got %+v", censors)
	}
	if censors[0].Start != 850 || censors[0].End != 1250 {
		t.Fatalf("censor = %+v, want 850-1250", censors[0])
	}
	if censors[0].Reason != policy.ReasonProfanity {
		t.Fatalf("reason = %q", censors[0].Reason)
	}

	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %+v", cues)
	}
	if cues[1].Text != "****" {
		t.Fatalf("masked text = %q, want ****", cues[1].Text)
	}
	if utf8.RuneCountInString(cues[1].Text) != len("heck") {
		t.Fatal("mask must preserve word length")
	}
	if cues[1].Start != 900 || cues[1].End != 1200 {
		t.Fatalf("cue window changed: %+v", cues[1])
	}
}

func TestDeriveClampsCensorPadToMediaEnd(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A", word("nice", 0, 800), word("heck", 900, 1200)),
	}
	censors, _, err := policy.Derive(utts, policy.Options{
		Mode:            policy.RedactMuteOnly,
		Lexicon:         policy.NewLexicon([]string{"heck"}),
		CensorPad:       60,
		MediaDurationMS: 1200,
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(censors) != 1 {
		t.Fatalf("expected 1 censor interval, got %+v", censors)
	}
	if censors[0].Start != 840 || censors[0].End != 1200 {
		t.Fatalf("censor = %+v, want 840-1200", censors[0])
	}
}

func TestDeriveUnknownDurationLeavesPadUnclamped(t *testing.T) {
	utts := []timeline.Utterance{utterance("A", word("heck", 900, 1200))}
	censors, _, err := policy.Derive(utts, policy.Options{
		Mode:      policy.RedactMuteOnly,
		Lexicon:   policy.NewLexicon([]string{"heck"}),
		CensorPad: 60,
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if censors[0].End != 1260 {
		t.Fatalf("censor = %+v, want end 1260", censors[0])
	}
}

func TestDeriveBlankModeKeepsWindow(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A", word("what", 0, 300), word("heck", 300, 700), word("dude", 700, 1000)),
	}
	_, cues, err := policy.Derive(utts, policy.Options{
		Mode:    policy.RedactMuteAndBlank,
		Lexicon: policy.NewLexicon([]string{"heck"}),
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %+v", cues)
	}
	if cues[0].Text != "what dude" {
		t.Fatalf("text = %q, want word removed", cues[0].Text)
	}
	if cues[0].Start != 0 || cues[0].End != 1000 {
		t.Fatalf("cue window must be unchanged: %+v", cues[0])
	}
}

func TestDeriveMuteOnlyLeavesTextVisible(t *testing.T) {
	utts := []timeline.Utterance{utterance("A", word("heck", 0, 400))}
	censors, cues, err := policy.Derive(utts, policy.Options{
		Mode:    policy.RedactMuteOnly,
		Lexicon: policy.NewLexicon([]string{"heck"}),
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(censors) != 1 {
		t.Fatalf("expected mute interval, got %+v", censors)
	}
	if cues[0].Text != "heck" {
		t.Fatalf("text = %q, want raw word visible", cues[0].Text)
	}
}

func TestDeriveMergesAdjacentCensorIntervals(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A", word("heck", 0, 300), word("dang", 350, 700), word("fine", 3000, 3300)),
	}
	censors, _, err := policy.Derive(utts, policy.Options{
		Mode:           policy.RedactMuteOnly,
		Lexicon:        policy.NewLexicon([]string{"heck", "dang"}),
		CensorPad:      40,
		CensorMergeGap: 100,
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(censors) != 1 {
		t.Fatalf("expected merged interval, got %+v", censors)
	}
	if censors[0].Start != 0 || censors[0].End != 740 {
		t.Fatalf("merged = %+v", censors[0])
	}
}

func TestDeriveCensorIntervalsNeverOverlap(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A",
			word("heck", 0, 500), word("dang", 400, 900), word("darn", 880, 1300),
			word("ok", 5000, 5200), word("crud", 9000, 9400),
		),
	}
	censors, _, err := policy.Derive(utts, policy.Options{
		Mode:    policy.RedactMuteOnly,
		Lexicon: policy.NewLexicon([]string{"heck", "dang", "darn", "crud"}),
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	for i := 1; i < len(censors); i++ {
		if censors[i].Start <= censors[i-1].End {
			t.Fatalf("intervals overlap: %+v", censors)
		}
	}
}

func TestDeriveColorAssignmentIsFirstSeenAndStable(t *testing.T) {
	palette := []string{"#111111", "#222222"}
	utts := []timeline.Utterance{
		utterance("B", word("hi", 0, 100)),
		utterance("A", word("yo", 200, 300)),
		utterance("B", word("sup", 400, 500)),
		utterance("C", word("hey", 600, 700)), // palette cycles back
	}

	_, first, err := policy.Derive(utts, policy.Options{Mode: policy.RedactMuteOnly, Palette: palette})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if first[0].Color != "#111111" || first[1].Color != "#222222" {
		t.Fatalf("first-seen order broken: %+v", first)
	}
	if first[2].Color != first[0].Color {
		t.Fatal("same speaker must keep its color")
	}
	if first[3].Color != "#111111" {
		t.Fatalf("palette should cycle, got %q", first[3].Color)
	}

	_, second, err := policy.Derive(utts, policy.Options{Mode: policy.RedactMuteOnly, Palette: palette})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("color assignment must be reproducible across runs")
	}
}

func TestDeriveSplitsLongUtteranceProportionally(t *testing.T) {
	words := []timeline.WordEvent{
		word("aaaa", 0, 1000), word("bbbb", 1000, 2000),
		word("cccc", 2000, 3000), word("dddd", 3000, 4000),
	}
	utts := []timeline.Utterance{utterance("A", words...)}

	_, cues, err := policy.Derive(utts, policy.Options{
		Mode:        policy.RedactMuteOnly,
		MaxCueChars: 9, // fits two four-char words plus separator
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %+v", cues)
	}
	if cues[0].Text != "aaaa bbbb" || cues[1].Text != "cccc dddd" {
		t.Fatalf("split at wrong boundary: %+v", cues)
	}
	if cues[0].Start != 0 || cues[1].End != 4000 {
		t.Fatalf("outer bounds changed: %+v", cues)
	}
	if cues[0].End != cues[1].Start {
		t.Fatalf("cue windows must be contiguous: %+v", cues)
	}
	// Equal character shares divide the window in half.
	if cues[0].End != 2000 {
		t.Fatalf("proportional division broken: %+v", cues[0])
	}
}

func TestDeriveSplitsOnDurationBudget(t *testing.T) {
	utts := []timeline.Utterance{
		utterance("A", word("so", 0, 4000), word("uh", 4000, 8000)),
	}
	_, cues, err := policy.Derive(utts, policy.Options{
		Mode:           policy.RedactMuteOnly,
		MaxCueDuration: 4500,
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected duration split, got %+v", cues)
	}
}

func TestDeriveRejectsUnknownMode(t *testing.T) {
	_, _, err := policy.Derive(nil, policy.Options{Mode: "shout"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNormalizeFoldsCaseAndStripsPunctuation(t *testing.T) {
	cases := map[string]string{
		"Heck!":    "heck",
		"  DANG,":  "dang",
		"don't":    "don't",
		"“Quote”":  "quote",
		"***":      "",
		"Straße":   "strasse", // full case folding, not ToLower
		"f***":     "f",
		"mixedUP?": "mixedup",
	}
	for in, want := range cases {
		if got := policy.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLexiconMatchesNormalizedForms(t *testing.T) {
	lex := policy.NewLexicon([]string{"Heck", "dang!"})
	if lex.Size() != 2 {
		t.Fatalf("size = %d", lex.Size())
	}
	for _, match := range []string{"heck", "HECK,", "dang"} {
		if !lex.Contains(match) {
			t.Errorf("expected %q to match", match)
		}
	}
	if lex.Contains("hecking") {
		t.Error("substring must not match")
	}
	if lex.Contains("") {
		t.Error("empty word must not match")
	}
}

func TestLoadLexiconFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/words.txt"
	content := "# comment\nheck\n\nDANG\n"
	if err := writeFile(t, path, content); err != nil {
		t.Fatalf("write: %v", err)
	}

	lex, err := policy.LoadLexicon(path, []string{"crud"})
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	for _, w := range []string{"heck", "dang", "crud"} {
		if !lex.Contains(w) {
			t.Errorf("expected %q in lexicon", w)
		}
	}
}

func TestLoadLexiconMissingFileIsConfigurationError(t *testing.T) {
	_, err := policy.LoadLexicon("/does/not/exist.txt", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestParseRedactionMode(t *testing.T) {
	if mode, ok := policy.ParseRedactionMode(" Mute_And_Asterisk "); !ok || mode != policy.RedactMuteAndAsterisk {
		t.Fatalf("parse = %q/%v", mode, ok)
	}
	if _, ok := policy.ParseRedactionMode("loudly"); ok {
		t.Fatal("expected unknown mode to fail")
	}
}

func writeFile(t *testing.T, path, content string) error {
	t.Helper()
	return os.WriteFile(path, []byte(content), 0o644)
}
