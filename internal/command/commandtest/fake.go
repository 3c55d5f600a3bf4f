// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ardent-labs/sleuth/internal/command"
)

// Response is the canned outcome of a command
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

type rule struct {
	substr string
	resp   Response
}

// Fake answers commands whose String() contains a registered substring. Rules
// are checked in registration order, unmatched commands fail with exit code
// 127 like a missing binary would.
type Fake struct {
	mx      sync.Mutex
	rules   []rule
	calls   []command.Command
	started []command.Command
}

func New() *Fake {
	return &Fake{}
}

// On registers a response for every command containing substr
func (f *Fake) On(substr string, resp Response) *Fake {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.rules = append(f.rules, rule{substr: substr, resp: resp})
	return f
}

// Stdout is a shortcut for On(substr, Response{Stdout: out})
func (f *Fake) Stdout(substr, out string) *Fake {
	return f.On(substr, Response{Stdout: out})
}

func (f *Fake) Run(ctx context.Context, cmd command.Command) (command.Result, error) {
	f.mx.Lock()
	f.calls = append(f.calls, cmd)
	resp, ok := f.lookup(cmd)
	f.mx.Unlock()

	now := time.Now().UTC()
	res := command.Result{
		Path:    cmd.Path,
		Args:    cmd.Args,
		Started: now,
		Stopped: now,
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !ok {
		res.ExitCode = 127
		res.Stderr = []byte(fmt.Sprintf("%s: command not found", cmd.Path))
		return res, nil
	}
	if resp.Err != nil {
		return res, resp.Err
	}
	res.Stdout = []byte(resp.Stdout)
	res.Stderr = []byte(resp.Stderr)
	res.ExitCode = resp.ExitCode
	if cmd.Stderr != nil && resp.Stderr != "" {
		for line := range strings.Lines(resp.Stderr) {
			cmd.Stderr(ctx, strings.TrimRight(line, "\n"))
		}
	}
	return res, nil
}

func (f *Fake) Start(ctx context.Context, cmd command.Command) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.started = append(f.started, cmd)
	resp, ok := f.lookup(cmd)
	if ok && resp.Err != nil {
		return resp.Err
	}
	return ctx.Err()
}

// Calls returns the commands passed to Run
func (f *Fake) Calls() []command.Command {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]command.Command(nil), f.calls...)
}

// Started returns the commands passed to Start
func (f *Fake) Started() []command.Command {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]command.Command(nil), f.started...)
}

func (f *Fake) lookup(cmd command.Command) (Response, bool) {
	s := cmd.String()
	for _, r := range f.rules {
		if strings.Contains(s, r.substr) {
			return r.resp, true
		}
	}
	return Response{}, false
}
