package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config tunes the tesseract invocation.
type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	// Languages is the tesseract language set, e.g. "eng+vie". Receipts in
	// this system are bilingual, so at least two languages are expected.
	Languages   string
	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Tesseract shells out to the tesseract binary for recognition.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+vie"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Recognize writes the image to a scratch file, extracts text, then reruns in
// TSV mode for a mean word confidence (0-100). When TSV yields no usable
// words, a content heuristic stands in for the score.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (Result, error) {
	f, err := os.CreateTemp("", "receipt-*.img")
	if err != nil {
		return Result{}, fmt.Errorf("scratch file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(image); err != nil {
		f.Close()
		return Result{}, fmt.Errorf("scratch file write: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("scratch file close: %w", err)
	}

	text, err := t.recognizeText(ctx, path)
	if err != nil {
		return Result{}, err
	}
	text = Normalize(text)

	conf, err := t.tsvConfidence(ctx, path)
	if err != nil {
		t.logger.Warn("tesseract TSV confidence unavailable, using heuristic", "error", err)
		conf = 0
	}
	if conf <= 0 {
		conf = heuristicConfidence(text)
	}

	return Result{Text: text, Confidence: conf}, nil
}

func (t *Tesseract) recognizeText(ctx context.Context, path string) (string, error) {
	args := t.baseArgs(path)

	// tesseract <file> stdout -l <langs>
	out, _, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..100.
func (t *Tesseract) tsvConfidence(ctx context.Context, path string) (float64, error) {
	args := append(t.baseArgs(path), "tsv")

	out, _, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	// columns: level .. height conf text; conf sits at index 10
	var sum float64
	var n int
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (t *Tesseract) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", t.cfg.Languages}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}
