package capability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"ncdial/internal/session"
)

// Exec hands the connection to a child process as its stdin and
// stdout.  Exactly one of Program (-e) or Command (-c) is set.
type Exec struct {
	Program string // -e: program and arguments, split on whitespace
	Command string // -c: passed to /bin/sh -c
}

func (e *Exec) command(ctx context.Context) (*exec.Cmd, error) {
	if e.Command != "" {
		return exec.CommandContext(ctx, "/bin/sh", "-c", e.Command), nil
	}
	argv := strings.Fields(e.Program)
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command specified for exec mode")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...), nil
}

// Handle runs the child until it exits.  Its stderr stays on the local
// terminal; NCDIAL_REMOTE_ADDR and NCDIAL_LOCAL_ADDR describe the
// connection.
func (e *Exec) Handle(ctx context.Context, sess *session.Session) error {
	cmd, err := e.command(ctx)
	if err != nil {
		return err
	}

	cmd.Stdin = sess.Conn
	cmd.Stdout = sess.Conn
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"NCDIAL_REMOTE_ADDR="+sess.Conn.RemoteAddr().String(),
		"NCDIAL_LOCAL_ADDR="+sess.Conn.LocalAddr().String(),
	)

	sess.Logger.Debug("exec: %s", cmd.String())

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return fmt.Errorf("exec %q: exited with status %d", cmd.Path, exitErr.ExitCode())
	default:
		return fmt.Errorf("exec %q: %w", cmd.Path, err)
	}
}
