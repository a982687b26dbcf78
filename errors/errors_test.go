package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseParse,
				Kind:    KindOutOfBounds,
				Section: "export",
				Path:    []string{"3"},
				Offset:  118,
				Detail:  "function index 9",
			},
			contains: []string{"[parse]", "out_of_bounds", "export section", "at 3", "offset 118", "function index 9"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindStreamOverrun,
				Offset: -1,
			},
			contains: []string{"[decode]", "stream_overrun"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseParse,
				Kind:   KindCustomSection,
				Detail: "handler failed",
				Offset: -1,
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[parse]", "custom_section", "handler failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoOffset(t *testing.T) {
	err := New(PhaseParse, KindMalformed).Build()
	if strings.Contains(err.Error(), "offset") {
		t.Errorf("unexpected offset in %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseParse,
		Kind:  KindMalformed,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:   PhaseParse,
		Kind:    KindMisorderedSection,
		Section: "type",
	}

	if !err.Is(Sentinel(PhaseParse, KindMisorderedSection)) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(Sentinel(PhaseDecode, KindMisorderedSection)) {
		t.Error("Is should not match different phase")
	}

	if err.Is(Sentinel(PhaseParse, KindOutOfBounds)) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(err, Sentinel(PhaseParse, KindMisorderedSection)) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseParse, KindOutOfBounds).
		Section("export").
		Path("2", "index").
		Offset(40).
		Value(42).
		Cause(cause).
		Detail("index %d >= %d", 42, 3).
		Build()

	if err.Phase != PhaseParse {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if err.Section != "export" {
		t.Errorf("Section = %q, want export", err.Section)
	}
	if len(err.Path) != 2 || err.Path[0] != "2" || err.Path[1] != "index" {
		t.Errorf("Path = %v, want [2 index]", err.Path)
	}
	if err.Offset != 40 {
		t.Errorf("Offset = %d, want 40", err.Offset)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "index 42 >= 3" {
		t.Errorf("Detail = %v, want 'index 42 >= 3'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("StreamOverrun", func(t *testing.T) {
		err := StreamOverrun(10, 4, 1)
		if err.Kind != KindStreamOverrun || err.Offset != 10 {
			t.Errorf("got %v", err)
		}
	})

	t.Run("LEBOverflow", func(t *testing.T) {
		err := LEBOverflow(3, 32)
		if err.Kind != KindLEBOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindLEBOverflow)
		}
		if !strings.Contains(err.Detail, "32") {
			t.Errorf("Detail = %q, should mention width", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(0, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseParse, "start", 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(10) {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := fmt.Errorf("compile failed")
		err := Wrap(PhaseLoad, KindMalformed, cause, "rejected")
		if err.Cause != cause || err.Offset != -1 {
			t.Errorf("got %v", err)
		}
		if !strings.HasSuffix(err.Error(), "(caused by: compile failed)") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		err := LimitExceeded("type", "types", 11, 10)
		if err.Kind != KindLimitExceeded || err.Section != "type" {
			t.Errorf("got %v", err)
		}
	})
}

func TestAnnotate(t *testing.T) {
	if Annotate(nil, "type") != nil {
		t.Fatal("Annotate(nil) should be nil")
	}

	err := Annotate(StreamOverrun(5, 1, 0), "import", "2")
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Section != "import" || len(e.Path) != 1 || e.Path[0] != "2" {
		t.Errorf("annotation missing: %v", e)
	}

	// existing context wins
	inner := New(PhaseParse, KindMalformed).Section("name").Build()
	if got := Annotate(inner, "custom").(*Error); got.Section != "name" {
		t.Errorf("Section = %q, want name", got.Section)
	}

	sentinel := Sentinel(PhaseParse, KindMalformed)
	before := sentinel.Error()
	annotated := Annotate(sentinel, "global", "0")
	if sentinel.Error() != before || sentinel.Section != "" || len(sentinel.Path) != 0 {
		t.Errorf("sentinel modified: %q", sentinel.Error())
	}
	if got := annotated.(*Error); got.Section != "global" || !errors.Is(got, sentinel) {
		t.Errorf("annotated copy = %v", got)
	}

	foreign := errors.New("boom")
	wrapped := Annotate(foreign, "global")
	if !errors.Is(wrapped, foreign) {
		t.Error("foreign cause lost")
	}
	if !errors.Is(wrapped, Sentinel(PhaseParse, KindMalformed)) {
		t.Error("foreign error should be classified malformed")
	}
}

func TestIsAnyPhase(t *testing.T) {
	anyLimit := Sentinel("", KindLimitExceeded)
	tests := []struct {
		err  *Error
		want bool
	}{
		{LimitExceeded("type", "types", 3, 2), true},
		{New(PhaseDecode, KindLimitExceeded).Detail("name too long").Build(), true},
		{StreamOverrun(0, 1, 0), false},
	}
	for _, tt := range tests {
		if got := errors.Is(tt.err, anyLimit); got != tt.want {
			t.Errorf("Is(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if errors.Is(LimitExceeded("type", "types", 3, 2), Sentinel(PhaseDecode, KindLimitExceeded)) {
		t.Error("phase should still discriminate when the target sets one")
	}
	if got := anyLimit.Error(); got != "limit_exceeded" {
		t.Errorf("Error() = %q", got)
	}
}
