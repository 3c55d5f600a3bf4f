package probe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ardent-labs/sleuth/internal/match"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/ardent-labs/sleuth/internal/platform"
)

// processName is the name used for keyword matching: the executable base
// name without the .exe suffix
func processName(p model.Process) string {
	name := p.Name
	if name == "" {
		name = parse.Base(p.Exe)
	}
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

func processFinding(p model.Process) model.Finding {
	return model.Finding{
		Name:      p.Name,
		Path:      p.Exe,
		Timestamp: p.Started,
		Source:    model.SourceProcess,
	}.With("pid", strconv.FormatInt(int64(p.PID), 10))
}

// listProcesses prefers the gopsutil snapshot and falls back to the platform
// listing command.
func listProcesses(ctx context.Context, env Env) ([]model.Process, error) {
	procs, err := env.Snapshot(ctx)
	if err == nil {
		return procs, nil
	}
	slog.DebugContext(ctx, "process snapshot failed, using the platform listing", "error", err)
	procs, err2 := env.Provider.Processes(ctx)
	if err2 != nil {
		return nil, fmt.Errorf("listing processes: %w", err2)
	}
	return procs, nil
}

func suspiciousProcesses(procs []model.Process, m match.Matcher, category string) []model.Finding {
	var ret []model.Finding
	for _, p := range procs {
		if kw, ok := m.Match(processName(p)); ok {
			ret = append(ret, processFinding(p).InCategory(category).With("keyword", kw))
		}
	}
	return ret
}

// recording matches process names and running services against the
// recording application table.
func recording(ctx context.Context, env Env, _ Params) (outcome, error) {
	kw := env.Config.Keywords
	m := match.New(kw.RecordingApps, kw.RecordingExclusions)

	procs, err := listProcesses(ctx, env)
	if err != nil {
		return outcome{}, err
	}
	found := suspiciousProcesses(procs, m, "")

	if svcs, err := env.Provider.Services(ctx); err != nil {
		slog.DebugContext(ctx, "listing services", "error", err)
	} else {
		for _, svc := range svcs {
			if !svc.Running {
				continue
			}
			if k, ok := m.Match(svc.Name); ok {
				found = append(found, model.Finding{
					Name:   svc.Name,
					Source: model.SourceService,
				}.With("keyword", k).With("state", svc.State))
			}
		}
	}
	found = model.DedupeBy(found, model.ByName)
	return outcome{findings: found, detected: model.Flag(len(found) > 0)}, nil
}

func serviceName(name string) string {
	name = strings.ToLower(name)
	for _, suffix := range []string{".service", ".exe"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

// services reports the watch listed services which are not running or are
// disabled. Watch listed services missing from the listing are not
// installed and are not reported.
func services(ctx context.Context, env Env, _ Params) (outcome, error) {
	watch := make(map[string]struct{})
	for _, name := range env.Config.Services.WatchList(env.Provider.OS()) {
		watch[serviceName(name)] = struct{}{}
	}
	svcs, err := env.Provider.Services(ctx)
	if err != nil {
		return outcome{}, err
	}
	var found []model.Finding
	for _, svc := range svcs {
		if _, ok := watch[serviceName(svc.Name)]; !ok {
			continue
		}
		disabled := svc.Enabled != nil && !*svc.Enabled
		if svc.Running && !disabled {
			continue
		}
		f := model.Finding{Name: svc.Name, Source: model.SourceService}.With("state", svc.State)
		if svc.Enabled != nil {
			f = f.With("enabled", strconv.FormatBool(*svc.Enabled))
		}
		if disabled {
			f = f.InCategory("disabled")
		} else {
			f = f.InCategory("stopped")
		}
		found = append(found, f)
	}
	return outcome{findings: model.DedupeBy(found, model.ByName)}, nil
}

var reJavaAgent = regexp.MustCompile(`-javaagent:("[^"]+"|\S+)`)

func isJava(p model.Process) bool {
	name := processName(p)
	return strings.Contains(name, "java") || strings.Contains(name, "minecraft")
}

// injected inspects the modules of the java processes. A module is flagged
// when its name matches the injection table, when it was preloaded, when its
// file was deleted after loading, or when it is a java agent.
func injected(ctx context.Context, env Env, procs []model.Process) ([]model.Finding, error) {
	var java []model.Process
	var ret []model.Finding
	for _, p := range procs {
		if !isJava(p) {
			continue
		}
		java = append(java, p)
		for _, m := range reJavaAgent.FindAllStringSubmatch(p.Cmdline, -1) {
			agent := strings.Trim(m[1], `"`)
			ret = append(ret, model.Finding{
				Name:   parse.Base(agent),
				Path:   agent,
				Source: model.SourceProcess,
			}.InCategory("injected").
				With("pid", strconv.FormatInt(int64(p.PID), 10)).
				With("process", p.Name).
				With("reason", "javaagent"))
		}
	}
	if len(java) == 0 {
		return ret, nil
	}

	mods, err := env.Provider.Modules(ctx, java)
	if err != nil {
		return ret, err
	}
	m := match.New(env.Config.Keywords.InjectionModules, nil)
	for _, mod := range mods {
		var reason string
		switch kw, ok := m.Match(mod.Name); {
		case ok:
			reason = "keyword " + kw
		case mod.Preload:
			reason = "preload"
		case mod.Deleted:
			reason = "deleted"
		default:
			continue
		}
		ret = append(ret, moduleFinding(mod).With("reason", reason))
	}
	return ret, nil
}

func moduleFinding(mod platform.Module) model.Finding {
	return model.Finding{
		Name:   mod.Name,
		Path:   mod.Path,
		Source: model.SourceProcess,
	}.InCategory("injected").
		With("pid", strconv.FormatInt(int64(mod.PID), 10)).
		With("process", mod.Process)
}

// hidden cross references the gopsutil snapshot with the platform listing.
// The snapshot is taken before and after the listing so that processes
// starting or exiting meanwhile are not reported; every candidate is checked
// to still exist.
func hidden(ctx context.Context, env Env, before []model.Process) ([]model.Finding, error) {
	listed, err := env.Provider.Processes(ctx)
	if err != nil {
		return nil, err
	}
	after, err := env.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	pids := func(procs []model.Process) map[int32]model.Process {
		ret := make(map[int32]model.Process, len(procs))
		for _, p := range procs {
			ret[p.PID] = p
		}
		return ret
	}
	inBefore, inListed, inAfter := pids(before), pids(listed), pids(after)

	ignore := func(pid int32) bool {
		return pid == 0 || pid == 4 || pid == env.Self
	}
	alive := func(pid int32) bool {
		ok, err := env.PIDExists(ctx, pid)
		return err == nil && ok
	}

	var ret []model.Finding
	for _, p := range before {
		if _, ok := inListed[p.PID]; ok || ignore(p.PID) {
			continue
		}
		if _, ok := inAfter[p.PID]; !ok || !alive(p.PID) {
			continue
		}
		ret = append(ret, processFinding(p).InCategory("hidden").With("missing_from", "listing"))
	}
	for _, p := range listed {
		_, b := inBefore[p.PID]
		_, a := inAfter[p.PID]
		if b || a || ignore(p.PID) || !alive(p.PID) {
			continue
		}
		ret = append(ret, processFinding(p).InCategory("hidden").With("missing_from", "snapshot"))
	}
	return ret, nil
}

// processes reports suspicious processes, injected modules and hidden
// processes. Only the process snapshot is required, the other sources are
// best effort.
func processes(ctx context.Context, env Env, _ Params) (outcome, error) {
	procs, err := env.Snapshot(ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("process snapshot: %w", err)
	}
	kw := env.Config.Keywords
	found := suspiciousProcesses(procs, match.New(kw.SuspiciousProcesses, nil), "suspicious")

	inj, err := injected(ctx, env, procs)
	if err != nil {
		slog.WarnContext(ctx, "inspecting modules", "error", err)
	}
	found = append(found, inj...)

	hid, err := hidden(ctx, env, procs)
	if err != nil {
		slog.WarnContext(ctx, "cross referencing process listings", "error", err)
	}
	found = append(found, hid...)

	model.SortByTime(found)
	return outcome{findings: found, detected: model.Flag(len(found) > 0)}, nil
}
