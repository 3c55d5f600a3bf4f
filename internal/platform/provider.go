// Package platform hides the operating system behind a single capability
// interface. A Provider is selected once at startup; it owns every OS
// specific command, path and artifact location the probes rely on.
package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

// Module is a shared library or jar loaded into a process
type Module struct {
	PID     int32  `json:"pid"`
	Process string `json:"process"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Preload bool   `json:"preload,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Provider is the platform specific part of every probe. Methods return
// findings with Source set; a method without an equivalent on the platform
// returns model.ErrUnsupported.
type Provider interface {
	OS() string
	Home() string
	// Roots are the default roots of filesystem scans
	Roots() []string
	MinecraftDir() string

	// Processes lists processes with the platform command (tasklist, ps),
	// independently of Snapshot.
	Processes(ctx context.Context) ([]model.Process, error)
	Modules(ctx context.Context, procs []model.Process) ([]Module, error)

	Trash(ctx context.Context) ([]model.Finding, error)
	DeletionEvents(ctx context.Context, w model.Window) ([]model.Finding, error)
	USBDisconnects(ctx context.Context, w model.Window) ([]model.Finding, error)
	Services(ctx context.Context) ([]parse.Service, error)
	RecentFolders(ctx context.Context) ([]model.Finding, error)
	ExecutionArtifacts(ctx context.Context) ([]model.Finding, error)
	JarEvidence(ctx context.Context, w model.Window) ([]model.Finding, error)
	ShellHistory(ctx context.Context) ([]model.Finding, error)

	Browsers(ctx context.Context) ([]browser.Browser, error)
	OpenURL(ctx context.Context, b browser.Browser, url string) error
	Open(ctx context.Context, path string) error
}

// Deps are the collaborators of a Provider. Zero fields are replaced by the
// real system.
type Deps struct {
	Runner   command.Runner
	Registry Registry
	Home     string
	Getenv   func(string) string
	LookPath func(string) (string, error)
	// ProcRoot is the mount point of procfs, Linux only
	ProcRoot string
	Location *time.Location
	Now      func() time.Time
}

func (d Deps) withDefaults() (Deps, error) {
	if d.Runner == nil {
		d.Runner = command.NewExec(0)
	}
	if d.Registry == nil {
		d.Registry = SystemRegistry()
	}
	if d.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return d, fmt.Errorf("home directory: %w", err)
		}
		d.Home = home
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.LookPath == nil {
		d.LookPath = exec.LookPath
	}
	if d.ProcRoot == "" {
		d.ProcRoot = "/proc"
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d, nil
}

// New returns the provider for goos. Every GOOS other than windows and
// darwin is served by the Linux provider.
func New(goos string, deps Deps) (Provider, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	b := base{deps: deps}
	switch goos {
	case "windows":
		return Windows{base: b}, nil
	case "darwin":
		return Darwin{unix: unix{base: b}}, nil
	default:
		return Linux{unix: unix{base: b}}, nil
	}
}

// MaxHistoryLines caps the lines read from a single shell history file
const MaxHistoryLines = 1000

// default look back of log queries when a window has no start
const defaultLookBack = 30 * 24 * time.Hour

type base struct {
	deps Deps
}

func (b base) Home() string {
	return b.deps.Home
}

func (b base) output(ctx context.Context, cmd command.Command) (string, error) {
	return command.Output(ctx, b.deps.Runner, cmd)
}

func (b base) start(ctx context.Context, path string, args ...string) error {
	return b.deps.Runner.Start(ctx, command.New(path, args...))
}

func (b base) since(w model.Window) time.Time {
	if !w.Since.IsZero() {
		return w.Since
	}
	return b.deps.Now().Add(-defaultLookBack)
}

func (b base) lookPath(name string) (string, bool) {
	p, err := b.deps.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}
