package langdetect

import (
	"errors"
	"testing"

	"github.com/abadojack/whatlanggo"
)

func fixed(reliable bool, codes ...string) DetectFunc {
	return func(string) (bool, []Candidate, error) {
		out := make([]Candidate, 0, len(codes))
		for i, code := range codes {
			out = append(out, Candidate{Code: code, Confidence: 1 - float64(i)/10})
		}
		return reliable, out, nil
	}
}

func TestDetectSupportedReliable(t *testing.T) {
	tests := []struct {
		name string
		fn   DetectFunc
		want Lang
	}{
		{"english", fixed(true, "en", "fr"), English},
		{"russian", fixed(true, "ru"), Russian},
		{"unreliable english", fixed(false, "en"), Undetected},
		{"unsupported", fixed(true, "de"), Undetected},
		{"empty result", fixed(true), Undetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(WithDetectFunc(tt.fn))
			if got := d.Detect("text"); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectRoutineError(t *testing.T) {
	d := New(WithDetectFunc(func(string) (bool, []Candidate, error) {
		return true, []Candidate{{Code: "en"}}, errors.New("boom")
	}))
	if got := d.Detect("anything"); got != Undetected {
		t.Fatalf("expected undetected on error, got %q", got)
	}
}

func TestDetectRoutinePanicIsRecovered(t *testing.T) {
	orig := detectInfo
	detectInfo = func(string) whatlanggo.Info { panic("bad input") }
	defer func() { detectInfo = orig }()

	d := New()
	if got := d.Detect("anything"); got != Undetected {
		t.Fatalf("expected undetected on panic, got %q", got)
	}
}

func TestDetectWithWhatlang(t *testing.T) {
	d := New()
	got := d.Detect("The quick brown fox jumps over the lazy dog while the farmer watches from the porch and drinks his morning coffee.")
	if got != English && got != Undetected {
		t.Fatalf("unexpected language %q", got)
	}
	if d.Detect("") != Undetected {
		t.Fatal("empty text must be undetected")
	}
}
