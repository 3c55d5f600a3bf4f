// Package command is the bridge to platform shell utilities. Probes treat
// commands as opaque text producers: a Runner executes a Command and hands
// back the captured output.
package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var ErrEmptyCommand = errors.New("command path is empty")

// StderrFunc receives the stderr of a command line by line
type StderrFunc func(ctx context.Context, line string)

type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
	Stderr  StderrFunc
}

// String returns a shell like representation used in logs and fakes
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

type Result struct {
	Path     string
	Args     []string
	Started  time.Time
	Stopped  time.Time
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes commands. Run waits for the command, Start launches it
// detached, which is used for opening files and URLs.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	Start(ctx context.Context, cmd Command) error
}

// Exec is a Runner on top of os/exec. Timeout is applied to commands without
// their own timeout.
type Exec struct {
	Timeout time.Duration
}

func NewExec(timeout time.Duration) Exec {
	return Exec{Timeout: timeout}
}

// Run executes the command and captures its output. A non-zero exit code is
// not an error, it is reported in Result.ExitCode. Only failures to execute
// the binary, timeouts and cancellation are returned as errors.
func (e Exec) Run(ctx context.Context, proto Command) (Result, error) {
	if proto.Path == "" {
		return Result{}, ErrEmptyCommand
	}
	result := Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
	}

	timeout := proto.Timeout
	if timeout == 0 {
		timeout = e.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...)
	if proto.Env != nil {
		cmd.Env = proto.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout

	var wg sync.WaitGroup
	if proto.Stderr != nil {
		pipe, err := cmd.StderrPipe()
		if err != nil {
			return result, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			processStderr(ctx, io.TeeReader(pipe, &stderr), proto.Stderr)
		}()
	} else {
		cmd.Stderr = &stderr
	}

	slog.DebugContext(ctx, "running command", "cmd", proto.String())
	result.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		result.Stopped = time.Now().UTC()
		return result, err
	}
	wg.Wait()
	err := cmd.Wait()
	result.Stopped = time.Now().UTC()
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return result, fmt.Errorf("command %s timed out after %v: %w", proto.Path, timeout, ctx.Err())
		case errors.Is(ctx.Err(), context.Canceled):
			return result, fmt.Errorf("command %s: %w", proto.Path, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// Start launches the command without waiting for it. The process is reaped in
// a goroutine.
func (e Exec) Start(ctx context.Context, proto Command) error {
	if proto.Path == "" {
		return ErrEmptyCommand
	}
	cmd := exec.Command(proto.Path, proto.Args...)
	if proto.Env != nil {
		cmd.Env = proto.Env
	}
	slog.DebugContext(ctx, "starting command", "cmd", proto.String())
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func processStderr(ctx context.Context, stderr io.Reader, stderrFunc StderrFunc) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		stderrFunc(ctx, scanner.Text())
	}
	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "processing stderr", "error", err)
	}
}

// Output runs the command and returns its stdout as a string. Unlike Run,
// a non-zero exit code with no output on stdout is an error.
func Output(ctx context.Context, r Runner, cmd Command) (string, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd.Path, err)
	}
	if res.ExitCode != 0 && len(bytes.TrimSpace(res.Stdout)) == 0 {
		return "", fmt.Errorf("%s: exit code %d: %s", cmd.Path, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return string(res.Stdout), nil
}

// PowerShell wraps a script into a non interactive powershell invocation
func PowerShell(script string) Command {
	return Command{
		Path: "powershell",
		Args: []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", script},
	}
}

// New is a shortcut for Command{Path: path, Args: args}
func New(path string, args ...string) Command {
	return Command{Path: path, Args: args}
}
