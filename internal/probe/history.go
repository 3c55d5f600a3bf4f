package probe

import (
	"context"
	"strconv"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

func deleted(ctx context.Context, env Env, params Params) (outcome, error) {
	p := env.Provider
	found, err := gather(ctx,
		source{"trash", func(ctx context.Context) ([]model.Finding, error) { return p.Trash(ctx) }},
		source{"events", func(ctx context.Context) ([]model.Finding, error) { return p.DeletionEvents(ctx, params.Window) }},
	)
	if err != nil {
		return outcome{}, err
	}
	found = params.Window.Filter(found)
	model.SortByTime(found)
	return outcome{findings: found}, nil
}

// runningJars returns the jars on the command line of running processes
func runningJars(env Env) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		procs, err := env.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		var ret []model.Finding
		for _, proc := range procs {
			for _, jar := range parse.JarPaths(proc.Cmdline) {
				ret = append(ret, model.Finding{
					Name:      parse.Base(jar),
					Path:      jar,
					Timestamp: proc.Started,
					Source:    model.SourceProcess,
				}.With("pid", strconv.FormatInt(int64(proc.PID), 10)).With("process", proc.Name))
			}
		}
		return ret, nil
	}
}

func historyJars(env Env) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		lines, err := env.Provider.ShellHistory(ctx)
		if err != nil {
			return nil, err
		}
		var ret []model.Finding
		for _, l := range lines {
			for _, jar := range parse.JarPaths(l.Name) {
				ret = append(ret, model.Finding{
					Name:      parse.Base(jar),
					Path:      jar,
					Timestamp: l.Timestamp,
					Source:    model.SourceShell,
				}.With("command", l.Name))
			}
		}
		return ret, nil
	}
}

// executedJars merges every trace of an executed jar. Jars of running
// processes are reported regardless of the window; the other sources are
// filtered by it. A single finding, the newest, is kept per path.
func executedJars(ctx context.Context, env Env, params Params) (outcome, error) {
	p := env.Provider
	found, err := gather(ctx,
		source{"processes", runningJars(env)},
		source{"evidence", func(ctx context.Context) ([]model.Finding, error) { return p.JarEvidence(ctx, params.Window) }},
		source{"history", historyJars(env)},
	)
	if err != nil {
		return outcome{}, err
	}
	kept := found[:0]
	for _, f := range found {
		if f.Source == model.SourceProcess || params.Window.Contains(f.Timestamp) {
			kept = append(kept, f)
		}
	}
	return outcome{findings: model.LatestBy(kept, model.ByPath)}, nil
}

func usb(ctx context.Context, env Env, params Params) (outcome, error) {
	found, err := env.Provider.USBDisconnects(ctx, params.Window)
	if err != nil {
		return outcome{}, err
	}
	found = params.Window.Filter(found)
	model.SortByTime(found)
	return outcome{findings: found, detected: model.Flag(len(found) > 0)}, nil
}

func processStarts(env Env) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		procs, err := env.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		ret := make([]model.Finding, 0, len(procs))
		for _, proc := range procs {
			if proc.Name == "" || proc.Started.IsZero() {
				continue
			}
			ret = append(ret, model.Finding{
				Name:      proc.Name,
				Path:      proc.Exe,
				Timestamp: proc.Started,
				Source:    model.SourceProcess,
			}.With("pid", strconv.FormatInt(int64(proc.PID), 10)))
		}
		return ret, nil
	}
}

// executionHistory merges the execution artifacts of the platform, shell
// history and process start times. A single finding, the newest, is kept
// per case insensitive name.
func executionHistory(ctx context.Context, env Env, params Params) (outcome, error) {
	p := env.Provider
	found, err := gather(ctx,
		source{"artifacts", p.ExecutionArtifacts},
		source{"history", p.ShellHistory},
		source{"processes", processStarts(env)},
	)
	if err != nil {
		return outcome{}, err
	}
	return outcome{findings: model.LatestBy(params.Window.Filter(found), model.ByName)}, nil
}

// commandHistory returns the history lines newest first. Lines without a
// timestamp keep the file order, newest first, after the timestamped ones.
func commandHistory(ctx context.Context, env Env, _ Params) (outcome, error) {
	found, err := env.Provider.ShellHistory(ctx)
	if err != nil {
		return outcome{}, err
	}
	model.SortByTime(found)
	return outcome{findings: found}, nil
}

func folders(ctx context.Context, env Env, _ Params) (outcome, error) {
	found, err := env.Provider.RecentFolders(ctx)
	if err != nil {
		return outcome{}, err
	}
	model.SortByTime(found)
	return outcome{findings: model.DedupeBy(found, model.ByPath)}, nil
}
