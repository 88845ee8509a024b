package emit

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// RunShakeMapCommand invokes the external shake-map export command with
// the three product file paths as its arguments, mirroring the engine
// runner's own "validate then exec then capture" shape.
func RunShakeMapCommand(ctx context.Context, command string, eventXML, eventDatXML, ruptureJSON string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, command, eventXML, eventDatXML, ruptureJSON)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if runErr := cmd.Run(); runErr != nil {
		return outBuf.String(), errBuf.String(), &perrors.ConfigError{Op: "run shakemap command", Err: runErr}
	}
	return outBuf.String(), errBuf.String(), nil
}
