package probe

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ardent-labs/sleuth/internal/match"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/walk"
)

// MaxLogLines caps the latest.log lines returned by minecraft-files
const MaxLogLines = 500

// lines of latest.log worth showing besides keyword matches
var logMarkers = []string{
	"Setting user:",
	"Loading Minecraft",
	"Launched Version",
	"Connecting to",
	"Loading mods",
	"Injecting",
}

func modMatcher(cfg model.Config) match.Matcher {
	return match.New(cfg.Keywords.SuspiciousMods, cfg.Keywords.ModWhitelist)
}

// suspiciousMods matches the jars of the mods directory and the installed
// versions against the suspicious mod table. A missing directory is not an
// error.
func suspiciousMods(env Env) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		dir := env.Provider.MinecraftDir()
		m := modMatcher(env.Config)
		var ret []model.Finding

		for entry, err := range walk.Dirs(ctx, walk.Options{MaxDepth: 2}, filepath.Join(dir, "mods")) {
			if err != nil {
				continue
			}
			info, err := entry.Stat()
			if err != nil || !isModFile(info.Name()) {
				continue
			}
			if kw, ok := m.Match(info.Name()); ok {
				ret = append(ret, fileFinding(entry, info).InCategory("mod").With("keyword", kw))
			}
		}

		versions, err := os.ReadDir(filepath.Join(dir, "versions"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ret, err
		}
		for _, v := range versions {
			if !v.IsDir() {
				continue
			}
			kw, ok := m.Match(v.Name())
			if !ok {
				continue
			}
			f := model.Finding{
				Name:   v.Name(),
				Path:   filepath.Join(dir, "versions", v.Name()),
				Source: model.SourceFilesystem,
			}.InCategory("version").With("keyword", kw)
			if info, err := v.Info(); err == nil {
				f.Timestamp = info.ModTime()
			}
			ret = append(ret, f)
		}
		return ret, nil
	}
}

// isModFile accepts jars, also when disabled by a launcher (mod.jar.disabled)
func isModFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".jar.disabled")
}

func cheatProcesses(env Env) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		procs, err := listProcesses(ctx, env)
		if err != nil {
			return nil, err
		}
		m := match.New(env.Config.Keywords.SuspiciousProcesses, nil)
		return suspiciousProcesses(procs, m, "process"), nil
	}
}

// minecraftCheats combines cheat site visits in the window with suspicious
// mods, versions and processes.
func minecraftCheats(ctx context.Context, env Env, params Params) (outcome, error) {
	found, err := gather(ctx,
		source{"history", cheatSites(env, params.Window)},
		source{"mods", suspiciousMods(env)},
		source{"processes", cheatProcesses(env)},
	)
	if err != nil {
		return outcome{}, err
	}
	model.SortByTime(found)
	return outcome{findings: found, detected: model.Flag(len(found) > 0)}, nil
}

// minecraftFiles opens the minecraft directory in the file manager and
// inventories it: the mods, logs and config directories and the interesting
// lines of logs/latest.log.
func minecraftFiles(ctx context.Context, env Env, _ Params) (outcome, error) {
	dir := env.Provider.MinecraftDir()
	info, err := os.Stat(dir)
	if err != nil {
		return outcome{}, err
	}
	profile := model.Finding{
		Name:      filepath.Base(dir),
		Path:      dir,
		Timestamp: info.ModTime(),
		Source:    model.SourceFilesystem,
	}.InCategory("profile")
	if err := env.Provider.Open(ctx, dir); err != nil {
		slog.WarnContext(ctx, "opening minecraft directory", "path", dir, "error", err)
		profile = profile.With("opened", "false").With("error", err.Error())
	} else {
		profile = profile.With("opened", "true")
	}
	found := []model.Finding{profile}

	m := modMatcher(env.Config)
	for _, sub := range []struct {
		name  string
		depth int
	}{{"mods", 2}, {"logs", 1}, {"config", 2}} {
		for entry, err := range walk.Dirs(ctx, walk.Options{MaxDepth: sub.depth}, filepath.Join(dir, sub.name)) {
			if err != nil {
				continue
			}
			info, err := entry.Stat()
			if err != nil {
				continue
			}
			f := fileFinding(entry, info).InCategory(sub.name)
			if sub.name == "mods" {
				if kw, ok := m.Match(info.Name()); ok {
					f = f.With("suspicious", kw)
				}
			}
			found = append(found, f)
		}
	}

	// whole lines are matched, the mod whitelist would hide too much
	lm := match.New(env.Config.Keywords.SuspiciousMods, nil)
	lines, err := latestLog(filepath.Join(dir, "logs", "latest.log"), lm)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "reading latest.log", "error", err)
	}
	found = append(found, lines...)

	model.SortByTime(found)
	return outcome{findings: found}, nil
}

var reLogClock = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\]`)

// latestLog returns the lines of the log mentioning a suspicious mod or one
// of the log markers, newest first. Lines carry only a clock time, the date
// is the modification date of the file.
func latestLog(path string, m match.Matcher) ([]model.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	day := info.ModTime()

	var ret []model.Finding
	r := bufio.NewReaderSize(f, 64*1024)
	for n := 1; ; n++ {
		raw, long, err := readLine(r, maxLogLine)
		if errors.Is(err, io.EOF) && raw == "" {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return logTail(ret), err
		}
		if long {
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" || !interesting(line, m) {
			continue
		}
		ret = append(ret, model.Finding{
			Name:      line,
			Path:      path,
			Timestamp: logClock(line, day),
			Source:    model.SourceFilesystem,
		}.InCategory("log").With("line", strconv.Itoa(n)))
	}
	return logTail(ret), nil
}

// logTail keeps the newest MaxLogLines lines, newest first
func logTail(ret []model.Finding) []model.Finding {
	if len(ret) > MaxLogLines {
		ret = ret[len(ret)-MaxLogLines:]
	}
	slices.Reverse(ret)
	return ret
}

// maxLogLine is the longest latest.log line inspected; longer ones are skipped
const maxLogLine = 1024 * 1024

// readLine reads a line without its terminator. A line longer than limit is
// consumed entirely and reported as long with its content dropped.
func readLine(r *bufio.Reader, limit int) (string, bool, error) {
	var buf []byte
	long := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return string(buf), long, err
		}
		if !long {
			if len(buf)+len(chunk) > limit {
				long, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), long, nil
		}
	}
}

func interesting(line string, m match.Matcher) bool {
	if m.Matches(line) {
		return true
	}
	for _, marker := range logMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func logClock(line string, day time.Time) time.Time {
	c := reLogClock.FindStringSubmatch(line)
	if c == nil {
		return time.Time{}
	}
	h, _ := strconv.Atoi(c[1])
	mi, _ := strconv.Atoi(c[2])
	s, _ := strconv.Atoi(c[3])
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, mi, s, 0, day.Location())
}
