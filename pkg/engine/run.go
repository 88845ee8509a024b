package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// eventIDStdoutPrefix is the marker line the engine emits on stdout
// carrying its own internal event id.
const eventIDStdoutPrefix = "Event_ID="

// validateBinary checks the engine binary exists, is a regular file, and
// has its executable bit set. Any failure here is a ConfigError that ends
// this run; the worker then applies the row's retry policy to it like any
// other pipeline failure.
func validateBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &perrors.ConfigError{Op: "stat engine binary", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &perrors.ConfigError{Op: "validate engine binary", Err: fmt.Errorf("%s is not a regular file", path)}
	}
	if info.Mode().Perm()&0o111 == 0 {
		return &perrors.ConfigError{Op: "validate engine binary", Err: fmt.Errorf("%s is not executable", path)}
	}
	return nil
}

// RunResult carries everything a successful or failed engine invocation
// produced: the parsed internal event id (if the marker line appeared),
// and the full captured streams for diagnostics/attachment.
type RunResult struct {
	EngineEventID string
	Stdout        string
	Stderr        string
}

// Run validates binaryPath, spawns it with the engine's fixed argv shape,
// and captures stdout/stderr in full. A non-zero exit is always an
// EngineError that ends this run; the worker then applies the row's retry
// policy to it like any other pipeline failure.
func Run(ctx context.Context, binaryPath, configPath, workDir string, liveMode bool) (*RunResult, error) {
	if err := validateBinary(binaryPath); err != nil {
		return nil, err
	}

	liveFlag := "no"
	if liveMode {
		liveFlag = "yes"
	}

	cmd := exec.CommandContext(ctx, binaryPath, configPath, workDir, "0", "0", liveFlag)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &RunResult{
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		EngineEventID: scanEventID(stdout.String()),
	}

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return result, &perrors.EngineError{ExitCode: exitCode, Stderr: result.Stderr, Err: err}
	}
	return result, nil
}

func scanEventID(stdout string) string {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if id, ok := strings.CutPrefix(line, eventIDStdoutPrefix); ok {
			return id
		}
	}
	return ""
}
