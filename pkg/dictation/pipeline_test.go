package dictation

import (
	"testing"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return NewPipeline(NewCommandSet(DefaultCommands(), nil), nil)
}

func TestProcessPeriodSubstitution(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if got := p.Process("end of sentence period"); got != "End of sentence." {
		t.Fatalf("got %q, want %q", got, "End of sentence.")
	}
}

func TestProcessNewLine(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	got := p.Process("first line new line second line")
	if got != "First line{ENTER}second line" {
		t.Fatalf("got %q, want %q", got, "First line{ENTER}second line")
	}
}

func TestProcessQuestionMark(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if got := p.Process("is this working question mark"); got != "Is this working?" {
		t.Fatalf("got %q, want %q", got, "Is this working?")
	}
}

func TestProcessMultipleCommands(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	got := p.Process("hello comma how are you question mark new paragraph this is great exclamation point")
	want := "Hello, how are you?{ENTER}{ENTER}This is great!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestProcessCustomCommandKeepsAuthoredSpacing(t *testing.T) {
	t.Parallel()

	cs := NewCommandSet(DefaultCommands(), nil)
	if !cs.Add("smiley face", " :) ") {
		t.Fatal("Add returned false")
	}
	p := NewPipeline(cs, nil)

	got := p.Process("hello smiley face goodbye")
	if got != "hello :) goodbye" {
		t.Fatalf("got %q, want %q", got, "hello :) goodbye")
	}
}

func TestProcessAliases(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if got := p.Process("the end full stop"); got != "The end." {
		t.Fatalf("alias substitution: got %q, want %q", got, "The end.")
	}
}

func TestProcessAllCapsSentinels(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	got := p.Process("all caps warning ahead")
	if got != "WARNING AHEAD" {
		t.Fatalf("got %q, want %q", got, "WARNING AHEAD")
	}
	if p.CapitalizationMode() != ModeAllCaps {
		t.Fatalf("mode = %v, want all_caps", p.CapitalizationMode())
	}

	got = p.Process("no caps back to normal period")
	if got != "Back to normal." {
		t.Fatalf("got %q, want %q", got, "Back to normal.")
	}
	if p.CapitalizationMode() != ModeAuto {
		t.Fatalf("mode = %v, want auto", p.CapitalizationMode())
	}
}

func TestProcessIdempotentOnProcessedText(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	once := p.Process("end of sentence period")
	twice := p.Process(once)
	if once != twice {
		t.Fatalf("pipeline not idempotent: %q then %q", once, twice)
	}
}

func TestProcessEmptyText(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if got := p.Process(""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestProcessNoCommands(t *testing.T) {
	t.Parallel()

	p := NewPipeline(NewCommandSet(nil, nil), nil)
	if got := p.Process("just some words"); got != "just some words" {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestProcessLongerPhraseWins(t *testing.T) {
	t.Parallel()

	// "new paragraph" must not be eaten by a hypothetical shorter "new"
	// phrase; alternation orders longer phrases first.
	cs := NewCommandSet([]CommandEntry{
		{Phrase: "new", Action: "<n>"},
		{Phrase: "new paragraph", Action: "{ENTER}{ENTER}"},
	}, nil)
	p := NewPipeline(cs, nil)

	got := p.Process("one new paragraph two")
	if got != "One{ENTER}{ENTER}two" {
		t.Fatalf("got %q, want %q", got, "One{ENTER}{ENTER}two")
	}
}

func TestSetCapitalizationMode(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if !p.SetCapitalizationMode(ModeNone) {
		t.Fatal("SetCapitalizationMode(ModeNone) = false")
	}
	if got := p.Process("shouting period stays lower"); got != "shouting. stays lower" {
		t.Fatalf("got %q with mode none", got)
	}
	if p.SetCapitalizationMode(CapitalizationMode(42)) {
		t.Fatal("invalid mode accepted")
	}
}

func TestProcessWithContextCodeEditor(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	got := p.ProcessWithContext("first line new line second line", "Visual Studio Code")
	if got != "First line\nsecond line" {
		t.Fatalf("got %q, want real line break", got)
	}
}

func TestProcessWithContextWordProcessor(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	got := p.ProcessWithContext("pages 1--5", "LibreOffice Writer")
	if got != "Pages 1—5" {
		t.Fatalf("got %q, want em dash", got)
	}
}

func TestProcessWithContextDefault(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	got := p.ProcessWithContext("first line new line second line", "Firefox")
	if got != "First line{ENTER}second line" {
		t.Fatalf("got %q, want token preserved for unknown context", got)
	}
}

func TestPipelineReset(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	p.Process("all caps stuck")
	p.Reset()
	if p.CapitalizationMode() != ModeAuto {
		t.Fatalf("mode = %v after reset, want auto", p.CapitalizationMode())
	}
}

func TestSetSmartPunctuation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	if got := p.Process("hello , world period"); got != "Hello, world." {
		t.Fatalf("smart spacing on: got %q", got)
	}

	p.SetSmartPunctuation(false)
	if got := p.Process("hello , world period"); got != "Hello , world ." {
		t.Fatalf("smart spacing off: got %q", got)
	}

	// A reset clears utterance state but keeps the preference.
	p.Reset()
	if got := p.Process("hello , world period"); got != "Hello , world ." {
		t.Fatalf("after reset: got %q", got)
	}
}
