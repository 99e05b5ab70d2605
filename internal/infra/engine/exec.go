package engine

import (
	"context"
	"fmt"
	"os/exec"

	"jpk2json-service/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.ConversionEngine = (*ExecEngine)(nil)

// ExecEngine shells out to the converter binary:
//
//	<bin> <inputPath> <outputPath>
//
// A nonzero exit is a conversion failure; verifying that the output
// artifact actually exists is the worker's job.
type ExecEngine struct {
	bin string
	log *zerolog.Logger
}

func NewExecEngine(bin string, logger *zerolog.Logger) (*ExecEngine, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("converter binary %q not found: %w", bin, err)
	}
	return &ExecEngine{bin: bin, log: logger}, nil
}

func (e *ExecEngine) Convert(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, e.bin, inputPath, outputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if e.log != nil {
			e.log.Debug().Err(err).Bytes("output", out).Msg("converter binary failed")
		}
		return fmt.Errorf("converter exited with error: %w", err)
	}
	return nil
}
