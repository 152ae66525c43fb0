package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Runner abstracts the external OCR binary so engine tests can stub it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner shells out and reports timings through the engine's logger.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	took := time.Since(start)

	if err != nil {
		r.logger.Error("ocr binary failed",
			"bin", name,
			"took", took,
			"error", err,
			"stderr", clipStderr(stderr.String()),
		)
		return nil, stderr.Bytes(), err
	}

	r.logger.Debug("ocr binary ok",
		"bin", name,
		"took", took,
		"stdout_bytes", stdout.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// tesseract spills pages of tessdata warnings on stderr; keep log lines bounded.
func clipStderr(s string) string {
	const max = 2 << 10
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(clipped)"
}
