package adapter

import "context"

// ConversionEngine is the opaque external converter. A nil error only means
// the engine reported success; the caller still verifies the output artifact
// exists and is non-empty.
type ConversionEngine interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}
