// Package probe implements the forensic probes. Every probe is an
// independent pipeline: platform source or filesystem walk, keyword filter,
// normalized findings sorted by time.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"time"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/log"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parallel"
	"github.com/ardent-labs/sleuth/internal/platform"
)

// Params are the per invocation inputs of a probe
type Params struct {
	Window model.Window
	// Roots override the configured scan roots
	Roots []string
}

// Env holds the collaborators shared by all probes. Zero fields are replaced
// by the real system in NewEnv.
type Env struct {
	Provider  platform.Provider
	Config    model.Config
	Snapshot  func(context.Context) ([]model.Process, error)
	PIDExists func(context.Context, int32) (bool, error)
	History   func(context.Context, browser.Browser) ([]browser.Visit, error)
	Now       func() time.Time
	// Self is the pid of this program, never reported as hidden
	Self int32
}

// NewEnv returns an Env using provider and cfg with every other field set
// to the running system.
func NewEnv(provider platform.Provider, cfg model.Config) Env {
	return Env{Provider: provider, Config: cfg}.withDefaults()
}

func (e Env) withDefaults() Env {
	if e.Snapshot == nil {
		e.Snapshot = platform.Snapshot
	}
	if e.PIDExists == nil {
		e.PIDExists = platform.PIDExists
	}
	if e.History == nil {
		e.History = browser.History
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Self == 0 {
		e.Self = int32(os.Getpid())
	}
	return e
}

// outcome is what a probe function computes; Run turns it into a Result
type outcome struct {
	findings []model.Finding
	detected *bool
}

type runFunc func(ctx context.Context, env Env, params Params) (outcome, error)

// Probe is a named investigative pipeline
type Probe struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Windowed probes accept a time window
	Windowed bool `json:"windowed"`
	// Action probes have a side effect, such as opening a browser, and are
	// not part of the battery
	Action bool `json:"action"`

	// optionalWindow probes do not get the default window
	optionalWindow bool
	run            runFunc
}

var probes = []Probe{
	{Name: "jars", Description: "JAR files in the scan roots, newest first", Windowed: true, optionalWindow: true, run: jars},
	{Name: "extensions", Description: "files hiding an executable or archive behind a harmless extension", run: extensions},
	{Name: "deleted", Description: "deleted files from the recycle bin, trash and security log", Windowed: true, run: deleted},
	{Name: "executed-jars", Description: "JAR files recently executed according to processes, logs, shortcuts and shell history", Windowed: true, run: executedJars},
	{Name: "usb", Description: "USB device disconnections", Windowed: true, run: usb},
	{Name: "recording", Description: "running screen recording software", run: recording},
	{Name: "browsers", Description: "installed web browsers", run: browsers},
	{Name: "browser-history", Description: "opens the history page of every detected browser", Action: true, run: browserHistory},
	{Name: "minecraft-cheats", Description: "cheat site visits, suspicious mods and versions, cheat processes", Windowed: true, run: minecraftCheats},
	{Name: "services", Description: "watch listed services which are stopped or disabled", run: services},
	{Name: "folders", Description: "recently accessed folders", run: folders},
	{Name: "execution-history", Description: "programs executed recently according to prefetch, registry, shell history and processes", Windowed: true, run: executionHistory},
	{Name: "minecraft-files", Description: "opens the minecraft directory and inventories mods, logs and config", Action: true, run: minecraftFiles},
	{Name: "command-history", Description: "shell and PowerShell history", run: commandHistory},
	{Name: "processes", Description: "suspicious processes, injected modules and hidden processes", run: processes},
}

// All returns every probe in a stable order
func All() []Probe {
	return slices.Clone(probes)
}

// Battery returns the probes without side effects
func Battery() []Probe {
	return slices.DeleteFunc(All(), func(p Probe) bool { return p.Action })
}

// Lookup returns the probe called name
func Lookup(name string) (Probe, error) {
	for _, p := range probes {
		if p.Name == name {
			return p, nil
		}
	}
	return Probe{}, fmt.Errorf("%q: %w", name, model.ErrUnknownProbe)
}

// Run executes the probe. It never fails: errors and panics are reported in
// Result.Error and the findings are dropped.
func (p Probe) Run(ctx context.Context, env Env, params Params) (res model.Result) {
	env = env.withDefaults()
	ctx = log.ContextAttrs(ctx, slog.String("probe", p.Name))
	if p.Windowed && !p.optionalWindow && params.Window == (model.Window{}) {
		if d := env.Config.WindowDuration(); d > 0 {
			params.Window.Since = env.Now().Add(-d)
		}
	}

	res = model.Result{Probe: p.Name, Started: env.Now().UTC(), Findings: []model.Finding{}}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "probe panicked", "panic", r, "stack", string(debug.Stack()))
			res.Findings = []model.Finding{}
			res.Detected = nil
			res.Error = fmt.Sprintf("probe panicked: %v", r)
		}
		res.Finished = env.Now().UTC()
	}()

	slog.DebugContext(ctx, "running", "since", params.Window.Since, "until", params.Window.Until)
	out, err := p.run(ctx, env, params)
	if err != nil {
		slog.WarnContext(ctx, "probe failed", "error", err)
		res.Error = err.Error()
		return res
	}
	for _, f := range out.findings {
		res.Findings = append(res.Findings, f.Sanitized())
	}
	res.Detected = out.detected
	slog.DebugContext(ctx, "done", "findings", len(res.Findings))
	return res
}

// RunAll runs probes with at most limit of them in parallel. Results are
// keyed by probe name.
func RunAll(ctx context.Context, env Env, params Params, limit int, ps []Probe) map[string]model.Result {
	env = env.withDefaults()
	ret := make(map[string]model.Result, len(ps))
	run := func(ctx context.Context, p Probe) (model.Result, error) {
		return p.Run(ctx, env, params), nil
	}
	for res := range parallel.NewMap(ctx, limit, run).Iter(parallel.All(ps)) {
		ret[res.Probe] = res
	}
	return ret
}

// source is one of the inputs merged by a probe
type source struct {
	name string
	fn   func(context.Context) ([]model.Finding, error)
}

// gather merges the findings of every source. Failing sources are logged
// and skipped; the errors are returned only when nothing was found. Sources
// not available on the platform are not errors unless all of them are.
func gather(ctx context.Context, sources ...source) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error
	unsupported := 0
	for _, s := range sources {
		found, err := s.fn(ctx)
		switch {
		case errors.Is(err, model.ErrUnsupported):
			slog.DebugContext(ctx, "source not supported", "source", s.name)
			unsupported++
			continue
		case err != nil:
			slog.WarnContext(ctx, "source failed", "source", s.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		slog.DebugContext(ctx, "source done", "source", s.name, "findings", len(found))
		ret = append(ret, found...)
	}
	if len(ret) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		if unsupported > 0 && unsupported == len(sources) {
			return nil, model.ErrUnsupported
		}
	}
	return ret, nil
}
