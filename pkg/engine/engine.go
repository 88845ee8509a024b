package engine

import (
	"context"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// Runner ties together working-directory isolation, config templating,
// child-process execution and output parsing into the single operation a
// worker needs: run the engine for one event and get back a solution.
type Runner struct {
	BinaryPath     string
	WorkingDirRoot string
	ConfigTemplate string
}

// NewRunner builds a Runner with the default key/value config template.
func NewRunner(binaryPath, workingDirRoot string) *Runner {
	return &Runner{
		BinaryPath:     binaryPath,
		WorkingDirRoot: workingDirRoot,
		ConfigTemplate: DefaultConfigTemplate,
	}
}

// RunEvent prepares the working directory, writes config and input data,
// runs the engine, and returns the raw run result along with the working
// directory (so the caller can locate output files) and whether the
// configured root was unwritable and the home-directory fallback was used.
func (r *Runner) RunEvent(ctx context.Context, params ConfigParams, dataBlob string, liveMode bool) (result *RunResult, workDir string, usedFallback bool, err error) {
	workDir, usedFallback, err = PrepareWorkingDir(r.WorkingDirRoot, params.EventID)
	if err != nil {
		return nil, "", false, &perrors.ConfigError{Op: "prepare working directory", Err: err}
	}
	params.DataFolder = workDir

	configPath, err := WriteConfig(r.ConfigTemplate, params, workDir)
	if err != nil {
		return nil, workDir, usedFallback, err
	}

	if _, err := WriteDataFile(workDir, dataBlob); err != nil {
		return nil, workDir, usedFallback, err
	}

	result, err = Run(ctx, r.BinaryPath, configPath, workDir, liveMode)
	return result, workDir, usedFallback, err
}
