package slug

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Привет, миръ!", "Privet, mir!"},
		{"Война и мир", "Voina i mir"},
		{"Подъезд", "Podezd"},
		{"already latin", "already latin"},
		{"Mixed Текст 42", "Mixed Tekst 42"},
	}
	for _, tt := range tests {
		if got := Transliterate(tt.in); got != tt.want {
			t.Errorf("Transliterate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsLatin(t *testing.T) {
	if !IsLatin("Hello") {
		t.Fatal("expected Hello to be latin")
	}
	if IsLatin("Привет") {
		t.Fatal("expected Привет not to be latin")
	}
	if IsLatin("Hello world") {
		t.Fatal("whitespace is not part of the latin script")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"simple", "Some note", 0, "some-note"},
		{"punctuation", "Hello, World!", 0, "hello-world"},
		{"collapse runs", "  a -- b\t\nc  ", 0, "a-b-c"},
		{"unicode kept", "Привет мир", 0, "привет-мир"},
		{"underscores", "_snake_case_", 0, "snake_case"},
		{"nfkc", "ｆｕｌｌ ｗｉｄｔｈ", 0, "full-width"},
		{"truncate", "abcdef", 3, "abc"},
		{"only symbols", "!!!", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in, tt.maxLen); got != tt.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type memoryChecker map[string]bool

func (m memoryChecker) SlugExists(_ context.Context, slug string) (bool, error) {
	return m[slug], nil
}

func TestGenerateFirstUseHasNoSuffix(t *testing.T) {
	gen := NewGenerator(memoryChecker{}, 245)
	got, err := gen.Generate(context.Background(), "Some note", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "some-note" {
		t.Fatalf("expected some-note, got %q", got)
	}
}

func TestGenerateTransliterates(t *testing.T) {
	gen := NewGenerator(memoryChecker{}, 245)
	got, err := gen.Generate(context.Background(), "Война и мир", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "voina-i-mir" {
		t.Fatalf("expected voina-i-mir, got %q", got)
	}
}

func TestGenerateAppendsSuffixOnCollision(t *testing.T) {
	taken := memoryChecker{"war-and-peace": true}
	gen := NewGenerator(taken, 245, WithSuffix(func() string { return "1a2b3c4d" }))
	got, err := gen.Generate(context.Background(), "War and Peace", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "war-and-peace-1a2b3c4d" {
		t.Fatalf("unexpected slug %q", got)
	}
}

func TestGenerateRandomSuffixLength(t *testing.T) {
	taken := memoryChecker{"title": true}
	gen := NewGenerator(taken, 245)
	got, err := gen.Generate(context.Background(), "Title", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "title-") || len(got) != len("title-")+8 {
		t.Fatalf("expected title-<8 chars>, got %q", got)
	}
}

func TestGenerateRespectsHardLimit(t *testing.T) {
	long := strings.Repeat("a", 400)
	gen := NewGenerator(memoryChecker{strings.Repeat("a", 245): true}, 245)
	got, err := gen.Generate(context.Background(), long, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utf8.RuneCountInString(got) > MaxLength {
		t.Fatalf("slug exceeds %d runes: %d", MaxLength, utf8.RuneCountInString(got))
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 245)+"-") {
		t.Fatalf("expected suffixed base slug, got %q", got)
	}
}

func TestGenerateEmptySlugBecomesSuffix(t *testing.T) {
	gen := NewGenerator(memoryChecker{}, 245, WithSuffix(func() string { return "deadbeef" }))
	got, err := gen.Generate(context.Background(), "???", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "deadbeef" {
		t.Fatalf("expected bare suffix, got %q", got)
	}
}

func TestGenerateEmptySource(t *testing.T) {
	gen := NewGenerator(memoryChecker{}, 245, WithField("title"))
	_, err := gen.Generate(context.Background(), "", false)
	var emptyErr *EmptySourceFieldError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptySourceFieldError, got %v", err)
	}
	if emptyErr.Field != "title" {
		t.Fatalf("unexpected field %q", emptyErr.Field)
	}
}

func TestGenerateCheckerError(t *testing.T) {
	boom := errors.New("db down")
	gen := NewGenerator(CheckerFunc(func(context.Context, string) (bool, error) { return false, boom }), 245)
	if _, err := gen.Generate(context.Background(), "x", false); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped checker error, got %v", err)
	}
}
