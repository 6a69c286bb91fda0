package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Engine is a single text-recognition backend invocation for one language
// profile. An engine error means the backend itself failed; recognizing no
// text in the image is a successful empty result, not an error.
type Engine interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// ExtractionError reports that both language profiles failed.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Extractor runs a two-tier extraction: the primary language profile, and on
// engine failure exactly one attempt with the secondary profile. There is no
// third tier and no retry of the same profile.
type Extractor struct {
	engine    Engine
	primary   string
	secondary string
	logger    *log.Logger
}

func NewExtractor(engine Engine, primary, secondary string, logger *log.Logger) *Extractor {
	return &Extractor{engine: engine, primary: primary, secondary: secondary, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, image []byte) (string, error) {
	text, err := e.engine.Recognize(ctx, image, e.primary)
	if err == nil {
		return text, nil
	}
	e.logger.Printf("[OCR] %s profile failed, falling back to %s: %v", e.primary, e.secondary, err)

	text, err = e.engine.Recognize(ctx, image, e.secondary)
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}
	return text, nil
}

// TesseractEngine drives the tesseract CLI over stdin/stdout.
type TesseractEngine struct {
	Binary string
}

func (t *TesseractEngine) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	cmd := exec.CommandContext(ctx, bin, "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("tesseract (%s): %v: %s", lang, err, detail)
		}
		return "", fmt.Errorf("tesseract (%s): %w", lang, err)
	}
	return stdout.String(), nil
}
