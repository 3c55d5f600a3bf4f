package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ardent-labs/sleuth/internal/log"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/probe"
	"github.com/ardent-labs/sleuth/internal/service"
	"github.com/ardent-labs/sleuth/internal/session"

	"github.com/spf13/cobra"
)

var (
	probeFlags windowFlags
	runFlags   windowFlags
	flagOut    string
	flagFormat string
)

// windowFlags are the time window and scan root flags shared by probe and run
type windowFlags struct {
	window  string
	minutes int
	hours   int
	since   string
	until   string
	roots   []string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.window, "window", "", "look back duration, e.g. 2h or 1d12h")
	fs.IntVar(&f.minutes, "minutes", 0, "look back N minutes")
	fs.IntVar(&f.hours, "hours", 0, "look back N hours")
	fs.StringVar(&f.since, "since", "", "window start (RFC3339)")
	fs.StringVar(&f.until, "until", "", "window end (RFC3339)")
	fs.StringArrayVar(&f.roots, "root", nil, "scan root, may be repeated")
	cmd.MarkFlagsMutuallyExclusive("window", "minutes", "hours", "since")
}

// params turns the flags into probe parameters. Without any window flag the
// window stays zero and every probe applies its own default.
func (f windowFlags) params(now time.Time) (probe.Params, error) {
	var w model.Window
	switch {
	case f.since != "":
		t, err := time.Parse(time.RFC3339, f.since)
		if err != nil {
			return probe.Params{}, fmt.Errorf("--since: %w", err)
		}
		w.Since = t
	case f.window != "":
		d, err := model.ParseDuration(f.window)
		if err != nil {
			return probe.Params{}, fmt.Errorf("--window: %w", err)
		}
		w.Since = now.Add(-d)
	case f.minutes > 0:
		w.Since = now.Add(-time.Duration(f.minutes) * time.Minute)
	case f.hours > 0:
		w.Since = now.Add(-time.Duration(f.hours) * time.Hour)
	case f.minutes < 0 || f.hours < 0:
		return probe.Params{}, errors.New("--minutes and --hours must be positive")
	}
	if f.until != "" {
		t, err := time.Parse(time.RFC3339, f.until)
		if err != nil {
			return probe.Params{}, fmt.Errorf("--until: %w", err)
		}
		w.Until = t
	}
	if !w.Since.IsZero() && !w.Until.IsZero() && w.Until.Before(w.Since) {
		return probe.Params{}, errors.New("--until is before the window start")
	}
	return probe.Params{Window: w, Roots: f.roots}, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list the available probes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeJSON(cmd.OutOrStdout(), probe.All())
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe NAME",
	Short: "run a single probe and print its result as JSON",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, p := range probe.All() {
			names = append(names, p.Name+"\t"+p.Description)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: doProbe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run every probe without side effects and export the results",
	RunE:  doRun,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "run the probes on service.schedule and export every run",
	RunE:  doWatch,
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "validate an export document",
	Args:  cobra.ExactArgs(1),
	RunE:  doValidate,
}

// doProbe is best effort: failures are printed as {"error": ...} and the
// command still succeeds.
func doProbe(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("sleuth",
		slog.String("cmd", "probe"),
		slog.Int("pid", os.Getpid()),
	))
	out := cmd.OutOrStdout()

	p, err := probe.Lookup(args[0])
	if err != nil {
		return writeError(out, err)
	}
	params, err := probeFlags.params(time.Now())
	if err != nil {
		return writeError(out, err)
	}
	env, err := newEnv(config)
	if err != nil {
		return writeError(out, err)
	}
	if err := writeJSON(out, p.Run(ctx, env, params)); err != nil {
		return writeError(out, err)
	}
	return nil
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("sleuth",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	format, err := service.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	params, err := runFlags.params(time.Now())
	if err != nil {
		return err
	}
	exporter, err := newExporter(format, params)
	if err != nil {
		return err
	}

	var uploaders []model.Uploader
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagOut, err)
		}
		defer func() {
			_ = f.Close()
		}()
		uploaders = []model.Uploader{service.NewWriteUploader(f)}
	} else {
		uploaders, err = service.Uploaders(ctx, config.Service, format)
		if err != nil {
			return err
		}
	}

	svc := config.Service
	svc.Mode = model.ServiceModeManual
	watcher, err := service.NewWatcher(ctx, svc, uploaders, exporter.Export)
	if err != nil {
		return err
	}
	return watcher.Do(ctx)
}

func doWatch(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("sleuth",
		slog.String("cmd", "watch"),
		slog.Int("pid", os.Getpid()),
	))

	if config.Service.Schedule == "" {
		return fmt.Errorf("watch requires service.schedule in %s", configPath)
	}
	format, err := service.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	exporter, err := newExporter(format, probe.Params{})
	if err != nil {
		return err
	}
	uploaders, err := service.Uploaders(ctx, config.Service, format)
	if err != nil {
		return err
	}

	svc := config.Service
	svc.Mode = model.ServiceModeTimer
	watcher, err := service.NewWatcher(ctx, svc, uploaders, exporter.Export)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "watching", "schedule", svc.Schedule)
	return watcher.Do(ctx)
}

func doValidate(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	validator, err := session.NewValidator()
	if err != nil {
		return err
	}
	if err := validator.ValidateBytes(cmd.Context(), b); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
	return err
}

func newExporter(format service.Format, params probe.Params) (*service.Exporter, error) {
	env, err := newEnv(config)
	if err != nil {
		return nil, err
	}
	return service.NewExporter(env.Provider.OS(), format, service.Battery(env, params))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeError(w io.Writer, err error) error {
	msg := strings.TrimSpace(err.Error())
	slog.Debug("probe failed", "error", msg)
	return writeJSON(w, map[string]string{"error": msg})
}
