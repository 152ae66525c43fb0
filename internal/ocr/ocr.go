package ocr

import (
	"context"
)

// Result is the transient output of one recognition call. Confidence is the
// engine's mean word confidence on a 0-100 scale.
type Result struct {
	Text       string
	Confidence float64
}

// Engine turns image bytes into text plus a confidence score. It may fail or
// block on I/O; callers own timeout policy.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}
