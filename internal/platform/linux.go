package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

const journalTime = "2006-01-02 15:04:05"

type Linux struct {
	unix
}

func (Linux) OS() string {
	return "linux"
}

func (l Linux) MinecraftDir() string {
	return filepath.Join(l.deps.Home, ".minecraft")
}

func (l Linux) Roots() []string {
	return append(l.unix.Roots(), l.MinecraftDir())
}

func (l Linux) dataHome() string {
	if d := l.deps.Getenv("XDG_DATA_HOME"); d != "" {
		return d
	}
	return filepath.Join(l.deps.Home, ".local", "share")
}

func (l Linux) configHome() string {
	if d := l.deps.Getenv("XDG_CONFIG_HOME"); d != "" {
		return d
	}
	return filepath.Join(l.deps.Home, ".config")
}

// Trash reads the freedesktop.org trash of the user
func (l Linux) Trash(_ context.Context) ([]model.Finding, error) {
	trash := filepath.Join(l.dataHome(), "Trash")
	infos, err := filepath.Glob(filepath.Join(trash, "info", "*.trashinfo"))
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, info := range infos {
		f, err := os.Open(info)
		if err != nil {
			continue
		}
		rec, err := parse.TrashInfo(f, l.deps.Location)
		_ = f.Close()
		if err != nil {
			slog.Debug("skipping trashinfo", "path", info, "error", err)
			continue
		}
		trashed := filepath.Join(trash, "files", strings.TrimSuffix(filepath.Base(info), ".trashinfo"))
		finding := model.Finding{
			Name:      filepath.Base(rec.Path),
			Path:      rec.Path,
			Timestamp: rec.Deleted,
			Source:    model.SourceTrash,
		}
		if st, err := os.Lstat(trashed); err == nil {
			finding.Size = st.Size()
		}
		ret = append(ret, finding.With("trashed", trashed))
	}
	return ret, nil
}

func (Linux) DeletionEvents(context.Context, model.Window) ([]model.Finding, error) {
	return nil, model.ErrUnsupported
}

// USBDisconnects reads the kernel ring buffer and falls back to the kernel
// messages in the journal, which do not need CAP_SYSLOG.
func (l Linux) USBDisconnects(ctx context.Context, w model.Window) ([]model.Finding, error) {
	out, err := l.output(ctx, command.New("dmesg", "--time-format", "iso"))
	if err == nil {
		if found := usbFindings(parse.LinuxUSB(parse.LogLines(out)), w, model.SourceDmesg); len(found) > 0 {
			return found, nil
		}
	} else {
		slog.DebugContext(ctx, "dmesg failed, falling back to journal", "error", err)
	}
	jout, jerr := l.output(ctx, command.New("journalctl", "-k", "--no-pager", "-o", "short-iso",
		"--since", l.since(w).In(l.deps.Location).Format(journalTime)))
	if jerr != nil {
		if err != nil {
			return nil, errors.Join(err, jerr)
		}
		return nil, nil
	}
	return usbFindings(parse.LinuxUSB(parse.LogLines(jout)), w, model.SourceJournal), nil
}

func (l Linux) Services(ctx context.Context) ([]parse.Service, error) {
	out, err := l.output(ctx, command.New("systemctl", "list-units", "--type=service", "--all", "--plain", "--no-legend", "--no-pager"))
	if err != nil {
		return nil, err
	}
	units := parse.SystemctlUnits(out)

	files, err := l.output(ctx, command.New("systemctl", "list-unit-files", "--type=service", "--no-legend", "--no-pager"))
	if err != nil {
		slog.DebugContext(ctx, "systemctl list-unit-files", "error", err)
		return units, nil
	}
	enabled := parse.SystemctlUnitFiles(files)
	seen := make(map[string]struct{}, len(units))
	for i, u := range units {
		seen[u.Name] = struct{}{}
		if e, ok := enabled[u.Name]; ok {
			units[i].Enabled = &e
		}
	}
	// disabled units which are not loaded do not show up in list-units
	for name, e := range enabled {
		if _, ok := seen[name]; ok {
			continue
		}
		units = append(units, parse.Service{Name: name, State: "not-loaded", Enabled: &e})
	}
	return units, nil
}

// RecentFolders reads recently-used.xbel, where folders are the parents of
// the recently used files, and the GTK bookmarks.
func (l Linux) RecentFolders(_ context.Context) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error

	if f, err := os.Open(filepath.Join(l.dataHome(), "recently-used.xbel")); err == nil {
		recent, err := parse.XBEL(f)
		_ = f.Close()
		if err != nil {
			errs = append(errs, err)
		}
		for _, r := range recent {
			dir := r.Path
			if st, err := os.Stat(r.Path); err != nil || !st.IsDir() {
				dir = filepath.Dir(r.Path)
			}
			ret = append(ret, model.Finding{
				Name:      filepath.Base(dir),
				Path:      dir,
				Timestamp: r.Time,
				Source:    model.SourceRecent,
			})
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}

	if f, err := os.Open(filepath.Join(l.configHome(), "gtk-3.0", "bookmarks")); err == nil {
		bookmarks, err := parse.GTKBookmarks(f)
		_ = f.Close()
		if err != nil {
			errs = append(errs, err)
		}
		for _, b := range bookmarks {
			ret = append(ret, model.Finding{
				Name:   filepath.Base(b.Path),
				Path:   b.Path,
				Source: model.SourceRecent,
			}.InCategory("bookmark"))
		}
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func (Linux) ExecutionArtifacts(context.Context) ([]model.Finding, error) {
	return nil, model.ErrUnsupported
}

// JarEvidence greps the journal and the recently used files for jars
func (l Linux) JarEvidence(ctx context.Context, w model.Window) ([]model.Finding, error) {
	var ret []model.Finding
	out, err := l.output(ctx, command.New("journalctl", "--no-pager", "-o", "short-iso",
		"--since", l.since(w).In(l.deps.Location).Format(journalTime), "--grep", `\.jar`))
	if err == nil {
		ret = append(ret, jarFindings(parse.LogLines(out), model.SourceJournal)...)
	} else {
		slog.DebugContext(ctx, "journalctl", "error", err)
	}

	if f, ferr := os.Open(filepath.Join(l.dataHome(), "recently-used.xbel")); ferr == nil {
		recent, _ := parse.XBEL(f)
		_ = f.Close()
		for _, r := range recent {
			if strings.EqualFold(filepath.Ext(r.Path), ".jar") {
				ret = append(ret, model.Finding{
					Name:      filepath.Base(r.Path),
					Path:      r.Path,
					Timestamp: r.Time,
					Source:    model.SourceRecent,
				})
			}
		}
	}
	if len(ret) == 0 && err != nil {
		return nil, err
	}
	return ret, nil
}

func (l Linux) Modules(ctx context.Context, procs []model.Process) ([]Module, error) {
	var ret []Module
	var errs []error
	for _, p := range procs {
		if ctx.Err() != nil {
			return ret, ctx.Err()
		}
		mods, err := procModules(l.deps.ProcRoot, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", p.PID, err))
			continue
		}
		ret = append(ret, mods...)
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func (l Linux) candidates() []browser.Candidate {
	cfg := l.configHome()
	return []browser.Candidate{
		{ID: "chrome", Name: "Google Chrome", Kind: browser.Chromium, Scheme: "chrome",
			Exes: []string{"google-chrome", "google-chrome-stable"}, DataDir: filepath.Join(cfg, "google-chrome")},
		{ID: "chromium", Name: "Chromium", Kind: browser.Chromium, Scheme: "chrome",
			Exes: []string{"chromium", "chromium-browser"}, DataDir: filepath.Join(cfg, "chromium")},
		{ID: "firefox", Name: "Mozilla Firefox", Kind: browser.Firefox,
			Exes: []string{"firefox", "firefox-esr"}, DataDir: filepath.Join(l.deps.Home, ".mozilla", "firefox")},
		{ID: "edge", Name: "Microsoft Edge", Kind: browser.Chromium, Scheme: "edge",
			Exes: []string{"microsoft-edge", "microsoft-edge-stable"}, DataDir: filepath.Join(cfg, "microsoft-edge")},
		{ID: "brave", Name: "Brave", Kind: browser.Chromium, Scheme: "brave",
			Exes: []string{"brave-browser", "brave"}, DataDir: filepath.Join(cfg, "BraveSoftware", "Brave-Browser")},
		{ID: "opera", Name: "Opera", Kind: browser.Chromium, Scheme: "opera",
			Exes: []string{"opera"}, DataDir: filepath.Join(cfg, "opera")},
		{ID: "vivaldi", Name: "Vivaldi", Kind: browser.Chromium, Scheme: "vivaldi",
			Exes: []string{"vivaldi", "vivaldi-stable"}, DataDir: filepath.Join(cfg, "vivaldi")},
	}
}

func (l Linux) Browsers(ctx context.Context) ([]browser.Browser, error) {
	var def string
	if out, err := l.output(ctx, command.New("xdg-settings", "get", "default-web-browser")); err == nil {
		def = parse.BrowserID(strings.TrimSpace(out))
	}
	return browser.Detect(l.candidates(), l.lookPath, def), nil
}

func (l Linux) OpenURL(ctx context.Context, b browser.Browser, url string) error {
	if url == "" {
		return l.start(ctx, b.Path)
	}
	return l.start(ctx, b.Path, url)
}
