package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

const (
	logShowTime  = "2006-01-02 15:04:05"
	usbPredicate = `eventMessage CONTAINS[c] "USB" AND (eventMessage CONTAINS[c] "terminat" OR eventMessage CONTAINS[c] "disconnect" OR eventMessage CONTAINS[c] "removed")`
	jarPredicate = `eventMessage CONTAINS[c] ".jar"`
)

type Darwin struct {
	unix
}

func (Darwin) OS() string {
	return "darwin"
}

func (d Darwin) MinecraftDir() string {
	return filepath.Join(d.deps.Home, "Library", "Application Support", "minecraft")
}

func (d Darwin) Roots() []string {
	return append(d.unix.Roots(), d.MinecraftDir())
}

// Trash lists ~/.Trash. macOS does not record the original location, the
// timestamp is the modification time of the trashed file.
func (d Darwin) Trash(_ context.Context) ([]model.Finding, error) {
	return dirFindings(filepath.Join(d.deps.Home, ".Trash"), model.SourceTrash, func(name string) bool {
		return name != ".DS_Store"
	})
}

func (Darwin) DeletionEvents(context.Context, model.Window) ([]model.Finding, error) {
	return nil, model.ErrUnsupported
}

func (d Darwin) logShow(ctx context.Context, w model.Window, predicate string) ([]parse.Event, error) {
	out, err := d.output(ctx, command.New("log", "show", "--style", "syslog",
		"--start", d.since(w).In(d.deps.Location).Format(logShowTime),
		"--predicate", predicate))
	if err != nil {
		return nil, err
	}
	return parse.LogLines(out), nil
}

func (d Darwin) USBDisconnects(ctx context.Context, w model.Window) ([]model.Finding, error) {
	events, err := d.logShow(ctx, w, usbPredicate)
	if err != nil {
		return nil, err
	}
	return usbFindings(parse.DarwinUSB(events), w, model.SourceUnifiedLog), nil
}

func (d Darwin) Services(ctx context.Context) ([]parse.Service, error) {
	out, err := d.output(ctx, command.New("launchctl", "list"))
	if err != nil {
		return nil, err
	}
	return parse.Launchctl(out), nil
}

func (d Darwin) RecentFolders(ctx context.Context) ([]model.Finding, error) {
	out, err := d.output(ctx, command.New("defaults", "read", "com.apple.finder", "FXRecentFolders"))
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, r := range parse.DefaultsURLs(out) {
		ret = append(ret, model.Finding{
			Name:   filepath.Base(r.Path),
			Path:   r.Path,
			Source: model.SourceRecent,
		})
	}
	return ret, nil
}

func (Darwin) ExecutionArtifacts(context.Context) ([]model.Finding, error) {
	return nil, model.ErrUnsupported
}

func (d Darwin) JarEvidence(ctx context.Context, w model.Window) ([]model.Finding, error) {
	events, err := d.logShow(ctx, w, jarPredicate)
	if err != nil {
		return nil, err
	}
	return jarFindings(events, model.SourceUnifiedLog), nil
}

// Modules lists the libraries and jars opened by the processes, lsof is the
// only way to inspect another process without entitlements.
func (d Darwin) Modules(ctx context.Context, procs []model.Process) ([]Module, error) {
	var ret []Module
	var errs []error
	for _, p := range procs {
		out, err := d.output(ctx, command.New("lsof", "-p", strconv.FormatInt(int64(p.PID), 10), "-Fn"))
		if err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", p.PID, err))
			continue
		}
		seen := make(map[string]struct{})
		for line := range strings.Lines(out) {
			path, ok := strings.CutPrefix(strings.TrimSpace(line), "n")
			if !ok || !strings.HasPrefix(path, "/") || !isModule(path) {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			ret = append(ret, Module{PID: p.PID, Process: p.Name, Name: filepath.Base(path), Path: path})
		}
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func (d Darwin) candidates() []browser.Candidate {
	support := filepath.Join(d.deps.Home, "Library", "Application Support")
	app := func(name string) []string {
		return []string{filepath.Join("/Applications", name+".app"), filepath.Join(d.deps.Home, "Applications", name+".app")}
	}
	return []browser.Candidate{
		{ID: "safari", Name: "Safari", Kind: browser.Safari, App: "Safari",
			Exes: app("Safari"), DataDir: filepath.Join(d.deps.Home, "Library", "Safari")},
		{ID: "chrome", Name: "Google Chrome", Kind: browser.Chromium, Scheme: "chrome", App: "Google Chrome",
			Exes: app("Google Chrome"), DataDir: filepath.Join(support, "Google", "Chrome")},
		{ID: "firefox", Name: "Mozilla Firefox", Kind: browser.Firefox, App: "Firefox",
			Exes: app("Firefox"), DataDir: filepath.Join(support, "Firefox", "Profiles")},
		{ID: "edge", Name: "Microsoft Edge", Kind: browser.Chromium, Scheme: "edge", App: "Microsoft Edge",
			Exes: app("Microsoft Edge"), DataDir: filepath.Join(support, "Microsoft Edge")},
		{ID: "brave", Name: "Brave", Kind: browser.Chromium, Scheme: "brave", App: "Brave Browser",
			Exes: app("Brave Browser"), DataDir: filepath.Join(support, "BraveSoftware", "Brave-Browser")},
		{ID: "opera", Name: "Opera", Kind: browser.Chromium, Scheme: "opera", App: "Opera",
			Exes: app("Opera"), DataDir: filepath.Join(support, "com.operasoftware.Opera")},
		{ID: "vivaldi", Name: "Vivaldi", Kind: browser.Chromium, Scheme: "vivaldi", App: "Vivaldi",
			Exes: app("Vivaldi"), DataDir: filepath.Join(support, "Vivaldi")},
	}
}

func (d Darwin) Browsers(ctx context.Context) ([]browser.Browser, error) {
	def := "safari"
	out, err := d.output(ctx, command.New("defaults", "read",
		"com.apple.LaunchServices/com.apple.launchservices.secure", "LSHandlers"))
	if err == nil {
		if id := parse.BrowserID(parse.LSHandler(out)); id != "" {
			def = id
		}
	}
	return browser.Detect(d.candidates(), browser.Exists, def), nil
}

func (d Darwin) OpenURL(ctx context.Context, b browser.Browser, url string) error {
	if url == "" {
		return d.start(ctx, "open", "-a", b.Path)
	}
	return d.start(ctx, "open", "-a", b.Path, url)
}

func (d Darwin) Open(ctx context.Context, path string) error {
	return d.start(ctx, "open", path)
}
