package langdetect

import (
	"fmt"

	"github.com/abadojack/whatlanggo"
	"github.com/noted-space/noted/internal/models"
	"go.uber.org/zap"
)

// Lang is a note language code.
type Lang string

const (
	English    Lang = models.LangEnglish
	Russian    Lang = models.LangRussian
	Undetected Lang = models.LangUndetected
)

var supported = map[string]Lang{
	"en": English,
	"ru": Russian,
}

// Candidate is one ranked guess of the detection routine.
type Candidate struct {
	Code       string
	Confidence float64
}

// DetectFunc inspects text and returns a reliability flag with ranked guesses.
type DetectFunc func(text string) (reliable bool, candidates []Candidate, err error)

// Detector classifies text into the supported language set.
type Detector struct {
	detect DetectFunc
	logger *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDetectFunc replaces the statistical routine.
func WithDetectFunc(fn DetectFunc) Option {
	return func(d *Detector) {
		if fn != nil {
			d.detect = fn
		}
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{detect: whatlangDetect, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns English or Russian only for reliable detections,
// otherwise Undetected.
func (d *Detector) Detect(text string) Lang {
	reliable, candidates, err := d.detect(text)
	if err != nil {
		d.logger.Error("language detection failed", zap.Error(err), zap.String("text", text))
		return Undetected
	}
	if len(candidates) == 0 {
		d.logger.Warn("language is not detected", zap.String("text", text))
		return Undetected
	}

	top := candidates[0]
	lang, ok := supported[top.Code]
	if !reliable || !ok {
		d.logger.Warn("language is not detected",
			zap.String("code", top.Code),
			zap.Bool("reliable", reliable),
			zap.String("text", text),
		)
		return Undetected
	}
	return lang
}

var detectInfo = whatlanggo.Detect

func whatlangDetect(text string) (reliable bool, candidates []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("whatlanggo: %v", r)
		}
	}()

	info := detectInfo(text)
	if info.Lang == -1 {
		return false, nil, nil
	}
	return info.IsReliable(), []Candidate{{Code: info.Lang.Iso6391(), Confidence: info.Confidence}}, nil
}
