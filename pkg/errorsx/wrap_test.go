package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAttachesReason(t *testing.T) {
	t.Parallel()

	base := errors.New("device busy")
	err := Wrap(base, ReasonAudioStreamStart)
	if !HasReason(err, ReasonAudioStreamStart) {
		t.Fatalf("Reason = %q", Reason(err))
	}
	if err.Error() != "device busy" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapped error lost its cause")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	t.Parallel()

	if Wrap(nil, ReasonTranscribe) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}

func TestWrapKeepsFirstReason(t *testing.T) {
	t.Parallel()

	err := Wrap(errors.New("boom"), ReasonModelLoad)
	err = Wrap(err, ReasonTranscribe)
	if got := Reason(err); got != ReasonModelLoad {
		t.Fatalf("Reason = %q, want %q", got, ReasonModelLoad)
	}
}

func TestReasonSurvivesFmtWrapping(t *testing.T) {
	t.Parallel()

	inner := Wrap(errors.New("closed"), ReasonOutputClipboard)
	outer := fmt.Errorf("dispatch: %w", inner)
	if got := Reason(outer); got != ReasonOutputClipboard {
		t.Fatalf("Reason = %q", got)
	}
}

func TestReasonDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	if got := Reason(errors.New("plain")); got != ReasonUnknown {
		t.Fatalf("Reason = %q", got)
	}
	if got := Reason(nil); got != ReasonUnknown {
		t.Fatalf("Reason(nil) = %q", got)
	}
}
