package probe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/ardent-labs/sleuth/internal/platform"
	"github.com/ardent-labs/sleuth/internal/probe"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEnv(p *fakeProvider, procs *processTable) probe.Env {
	if procs == nil {
		procs = &processTable{snaps: [][]model.Process{{}}}
	}
	return probe.Env{
		Provider:  p,
		Config:    model.DefaultConfig(),
		Snapshot:  procs.Snapshot,
		PIDExists: procs.PIDExists,
		History: func(context.Context, browser.Browser) ([]browser.Visit, error) {
			return nil, nil
		},
		Now:  func() time.Time { return now },
		Self: 1,
	}
}

func run(t *testing.T, name string, env probe.Env, params probe.Params) model.Result {
	t.Helper()
	p, err := probe.Lookup(name)
	require.NoError(t, err)
	return p.Run(t.Context(), env, params)
}

func names(findings []model.Finding) []string {
	ret := make([]string, 0, len(findings))
	for _, f := range findings {
		ret = append(ret, f.Name)
	}
	return ret
}

func touch(t *testing.T, path string, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	all := probe.All()
	require.Len(t, all, 15)

	seen := map[string]bool{}
	for _, p := range all {
		require.False(t, seen[p.Name], p.Name)
		seen[p.Name] = true
		require.NotEmpty(t, p.Description)
	}

	battery := probe.Battery()
	require.Len(t, battery, 13)
	for _, p := range battery {
		require.False(t, p.Action, p.Name)
	}

	_, err := probe.Lookup("nope")
	require.ErrorIs(t, err, model.ErrUnknownProbe)
}

func TestSyntheticTree(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "foo.jar"), "PK\x03\x04", time.Time{})
	touch(t, filepath.Join(root, "bar.exe.txt"), "MZ", time.Time{})
	touch(t, filepath.Join(root, "skip", "Windows", "x.jar"), "PK\x03\x04", time.Time{})
	touch(t, filepath.Join(root, "skip", "Windows", "y.exe.txt"), "MZ", time.Time{})
	env := newEnv(&fakeProvider{}, nil)
	params := probe.Params{Roots: []string{root}}

	res := run(t, "jars", env, params)
	require.Empty(t, res.Error)
	require.Equal(t, []string{"foo.jar"}, names(res.Findings))
	require.Equal(t, filepath.Join(root, "foo.jar"), res.Findings[0].Path)
	require.Equal(t, int64(4), res.Findings[0].Size)

	res = run(t, "extensions", env, params)
	require.Empty(t, res.Error)
	require.Equal(t, []string{"bar.exe.txt"}, names(res.Findings))
	require.Equal(t, "bar.exe", res.Findings[0].Extra["original"])
}

func TestJars(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "old.jar"), "PK", ago(72*time.Hour))
	touch(t, filepath.Join(root, "mods", "new.JAR"), "PK", ago(time.Hour))
	touch(t, filepath.Join(root, "mods", "mid.jar"), "PK", ago(5*time.Hour))

	var testCases = []struct {
		scenario string
		given    probe.Params
		then     []string
	}{
		{
			scenario: "no window",
			given:    probe.Params{},
			then:     []string{"new.JAR", "mid.jar", "old.jar"},
		},
		{
			scenario: "since",
			given:    probe.Params{Window: model.Window{Since: ago(24 * time.Hour)}},
			then:     []string{"new.JAR", "mid.jar"},
		},
		{
			scenario: "since and until",
			given:    probe.Params{Window: model.Window{Since: ago(24 * time.Hour), Until: ago(2 * time.Hour)}},
			then:     []string{"mid.jar"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			env := newEnv(&fakeProvider{roots: []string{root, filepath.Join(root, "missing")}}, nil)
			res := run(t, "jars", env, tc.given)
			require.Empty(t, res.Error)
			require.Equal(t, tc.then, names(res.Findings))
		})
	}

	t.Run("no root", func(t *testing.T) {
		t.Parallel()
		env := newEnv(&fakeProvider{roots: []string{filepath.Join(root, "missing")}}, nil)
		res := run(t, "jars", env, probe.Params{})
		require.NotEmpty(t, res.Error)
		require.Empty(t, res.Findings)
	})
}

func TestExtensions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "Downloads", "client.jar.txt"), "PK\x03\x04", ago(time.Hour))
	touch(t, filepath.Join(root, "Downloads", "client.zip"), "PK\x03\x04", ago(2*time.Hour))
	touch(t, filepath.Join(root, "notes.png"), "MZ\x90\x00\x03", ago(3*time.Hour))
	touch(t, filepath.Join(root, "real.png"), "\x89PNG\r\n", ago(3*time.Hour))
	touch(t, filepath.Join(root, "archive.docx"), "PK\x03\x04", ago(3*time.Hour))

	env := newEnv(&fakeProvider{roots: []string{root}}, nil)
	res := run(t, "extensions", env, probe.Params{})
	require.Empty(t, res.Error)
	require.Len(t, res.Findings, 2)

	double := res.Findings[0]
	require.Equal(t, "client.jar.txt", double.Name)
	require.Equal(t, "double-extension", double.Category)
	require.Equal(t, "client.jar", double.Extra["original"])
	require.Equal(t, filepath.Join(root, "Downloads", "client.zip"), double.Extra["similar"])

	disguised := res.Findings[1]
	require.Equal(t, "notes.png", disguised.Name)
	require.Equal(t, "disguised", disguised.Category)
	require.Equal(t, parse.MagicPE, disguised.Extra["magic"])
}

func TestDeleted(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{
		trash: []model.Finding{
			{Name: "old.jar", Timestamp: ago(48 * time.Hour), Source: model.SourceTrash},
			{Name: "ghost.jar", Timestamp: ago(2 * time.Hour), Source: model.SourceTrash},
			{Name: "unknown.jar", Source: model.SourceTrash},
		},
		deletions: []model.Finding{
			{Name: "inject.dll", Timestamp: ago(time.Hour), Source: model.SourceEventLog},
		},
	}
	res := run(t, "deleted", newEnv(fp, nil), probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"inject.dll", "ghost.jar"}, names(res.Findings))

	res = run(t, "deleted", newEnv(&fakeProvider{}, nil), probe.Params{})
	require.Equal(t, model.ErrUnsupported.Error(), res.Error)
	require.NotNil(t, res.Findings)
	require.Empty(t, res.Findings)
}

func TestExecutedJars(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{
		jars: []model.Finding{
			{Name: "Client.jar", Path: `C:\Users\x\Mods\Client.jar`, Timestamp: ago(3 * time.Hour), Source: model.SourceEventLog},
			{Name: "client.jar", Path: `c:/users/x/mods/client.jar`, Timestamp: ago(time.Hour), Source: model.SourceRecent},
			{Name: "ancient.jar", Path: `C:\ancient.jar`, Timestamp: ago(100 * time.Hour), Source: model.SourceRecent},
		},
		history: []model.Finding{
			{Name: "java -jar /opt/tools/fabric-installer.jar --help", Timestamp: ago(2 * time.Hour), Source: model.SourceShell},
			{Name: "ls -la", Timestamp: ago(2 * time.Hour), Source: model.SourceShell},
		},
	}
	procs := &processTable{snaps: [][]model.Process{{
		{PID: 42, Name: "javaw.exe", Cmdline: `javaw.exe -jar "C:\Games\Lunar Client.jar"`, Started: ago(200 * time.Hour)},
		{PID: 43, Name: "explorer.exe"},
	}}}

	res := run(t, "executed-jars", newEnv(fp, procs), probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"client.jar", "fabric-installer.jar", "Lunar Client.jar"}, names(res.Findings))
	require.Equal(t, model.SourceRecent, res.Findings[0].Source)
	require.Equal(t, "42", res.Findings[2].Extra["pid"])
}

func TestUSB(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    []model.Finding
		then     bool
	}{
		{"none", []model.Finding{}, false},
		{"disconnect", []model.Finding{{Name: "usb 1-1", Timestamp: ago(time.Hour), Source: model.SourceDmesg}}, true},
		{"outside window", []model.Finding{{Name: "usb 1-1", Timestamp: ago(48 * time.Hour), Source: model.SourceDmesg}}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			res := run(t, "usb", newEnv(&fakeProvider{usb: tc.given}, nil), probe.Params{})
			require.Empty(t, res.Error)
			require.NotNil(t, res.Detected)
			require.Equal(t, tc.then, *res.Detected)
		})
	}

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		res := run(t, "usb", newEnv(&fakeProvider{}, nil), probe.Params{})
		require.NotEmpty(t, res.Error)
		require.Nil(t, res.Detected)
	})
}

func TestRecording(t *testing.T) {
	t.Parallel()
	procs := &processTable{snaps: [][]model.Process{{
		{PID: 10, Name: "obs64.exe"},
		{PID: 11, Name: "obs64.exe"},
		{PID: 12, Name: "Obsidian.exe"},
		{PID: 13, Name: "Discord.exe"},
	}}}
	fp := &fakeProvider{services: []parse.Service{
		{Name: "BandicamService", Running: true, State: "Running"},
		{Name: "FrapsService", Running: false, State: "Stopped"},
	}}
	res := run(t, "recording", newEnv(fp, procs), probe.Params{})
	require.Empty(t, res.Error)
	require.True(t, *res.Detected)
	require.Equal(t, []string{"obs64.exe", "BandicamService"}, names(res.Findings))
	require.Equal(t, "obs64", res.Findings[0].Extra["keyword"])

	procs = &processTable{snaps: [][]model.Process{{{PID: 12, Name: "obsidian"}}}}
	res = run(t, "recording", newEnv(&fakeProvider{}, procs), probe.Params{})
	require.Empty(t, res.Error)
	require.False(t, *res.Detected)
	require.Empty(t, res.Findings)
}

func TestServices(t *testing.T) {
	t.Parallel()
	yes, no := true, false
	fp := &fakeProvider{os: "linux", services: []parse.Service{
		{Name: "auditd.service", Running: true, State: "active/running", Enabled: &yes},
		{Name: "rsyslog.service", Running: false, State: "inactive/dead", Enabled: &yes},
		{Name: "ufw.service", Running: true, State: "active/exited", Enabled: &no},
		{Name: "bluetooth.service", Running: false, State: "inactive/dead"},
	}}
	res := run(t, "services", newEnv(fp, nil), probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"rsyslog.service", "ufw.service"}, names(res.Findings))
	require.Equal(t, "stopped", res.Findings[0].Category)
	require.Equal(t, "disabled", res.Findings[1].Category)
	require.Equal(t, "false", res.Findings[1].Extra["enabled"])
}

func TestFoldersAndHistory(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{
		folders: []model.Finding{
			{Name: "mods", Path: "/home/x/.minecraft/mods", Timestamp: ago(2 * time.Hour), Source: model.SourceRecent},
			{Name: "Mods", Path: "/home/x/.minecraft/Mods/", Timestamp: ago(time.Hour), Source: model.SourceRecent},
			{Name: "share", Path: "/srv/share", Source: model.SourceRecent, Category: "bookmark"},
		},
		history: []model.Finding{
			{Name: "ls", Source: model.SourceShell},
			{Name: "java -jar a.jar", Timestamp: ago(time.Hour), Source: model.SourceShell},
			{Name: "cd", Source: model.SourceShell},
		},
	}
	env := newEnv(fp, nil)

	res := run(t, "folders", env, probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"Mods", "share"}, names(res.Findings))

	res = run(t, "command-history", env, probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"java -jar a.jar", "ls", "cd"}, names(res.Findings))
}

func TestExecutionHistory(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{
		artifacts: []model.Finding{
			{Name: "JAVAW.EXE", Timestamp: ago(3 * time.Hour), Source: model.SourcePrefetch},
			{Name: "javaw.exe", Timestamp: ago(time.Hour), Source: model.SourceRegistry, Category: "bam"},
			{Name: "old.exe", Timestamp: ago(72 * time.Hour), Source: model.SourcePrefetch},
		},
		history: []model.Finding{{Name: "no timestamp", Source: model.SourceShell}},
	}
	procs := &processTable{snaps: [][]model.Process{{
		{PID: 7, Name: "cheatengine.exe", Started: ago(30 * time.Minute)},
		{PID: 8, Name: "kernel"},
	}}}
	res := run(t, "execution-history", newEnv(fp, procs), probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{"cheatengine.exe", "javaw.exe"}, names(res.Findings))
	require.Equal(t, "bam", res.Findings[1].Category)
}

func TestBrowsers(t *testing.T) {
	t.Parallel()
	bs := []browser.Browser{
		{ID: "firefox", Name: "Mozilla Firefox", Kind: browser.Firefox, Path: "/usr/bin/firefox", Default: true},
		{ID: "chrome", Name: "Google Chrome", Kind: browser.Chromium, Scheme: "chrome", Path: "/usr/bin/google-chrome"},
		{ID: "safari", Name: "Safari", Kind: browser.Safari, Path: "/Applications/Safari.app"},
	}

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		res := run(t, "browsers", newEnv(&fakeProvider{browsers: bs}, nil), probe.Params{})
		require.Empty(t, res.Error)
		require.Equal(t, []string{"Mozilla Firefox", "Google Chrome", "Safari"}, names(res.Findings))
		require.Equal(t, "true", res.Findings[0].Extra["default"])
		require.Equal(t, "false", res.Findings[1].Extra["default"])
	})

	t.Run("history falls back", func(t *testing.T) {
		t.Parallel()
		fp := &fakeProvider{browsers: bs, openErr: map[string]error{"firefox": errors.New("exec: not found")}}
		res := run(t, "browser-history", newEnv(fp, nil), probe.Params{})
		require.Empty(t, res.Error)
		require.Len(t, res.Findings, 3)
		require.Equal(t, "failed", res.Findings[0].Extra["status"])
		require.Equal(t, "opened", res.Findings[1].Extra["status"])
		require.Equal(t, []string{"chrome chrome://history", "safari "}, fp.Opened())
	})

	t.Run("history fails", func(t *testing.T) {
		t.Parallel()
		fp := &fakeProvider{browsers: bs[:1], openErr: map[string]error{"firefox": errors.New("exec: not found")}}
		res := run(t, "browser-history", newEnv(fp, nil), probe.Params{})
		require.Contains(t, res.Error, "exec: not found")
		require.Empty(t, res.Findings)
	})

	t.Run("no browser", func(t *testing.T) {
		t.Parallel()
		res := run(t, "browser-history", newEnv(&fakeProvider{}, nil), probe.Params{})
		require.Contains(t, res.Error, model.ErrNoMatch.Error())
	})
}

func TestMinecraftCheats(t *testing.T) {
	t.Parallel()
	mc := t.TempDir()
	touch(t, filepath.Join(mc, "mods", "OptiFine-1.19.jar"), "PK", ago(10*time.Hour))
	touch(t, filepath.Join(mc, "mods", "killaura-client.jar"), "PK", ago(9*time.Hour))
	touch(t, filepath.Join(mc, "mods", "1.20", "Meteor-client.jar.disabled"), "PK", ago(8*time.Hour))
	touch(t, filepath.Join(mc, "mods", "reachaddon.jar"), "PK", ago(7*time.Hour))
	touch(t, filepath.Join(mc, "mods", "readme-hack.txt"), "x", ago(7*time.Hour))
	require.NoError(t, os.MkdirAll(filepath.Join(mc, "versions", "1.20.1-wurst"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(mc, "versions", "1.20.1"), 0o755))

	fp := &fakeProvider{
		minecraft: mc,
		browsers:  []browser.Browser{{ID: "chrome", Name: "Google Chrome", Kind: browser.Chromium}},
	}
	procs := &processTable{snaps: [][]model.Process{{
		{PID: 5, Name: "CheatEngine.exe", Started: ago(time.Minute)},
		{PID: 6, Name: "javaw.exe"},
	}}}
	env := newEnv(fp, procs)
	env.History = func(_ context.Context, b browser.Browser) ([]browser.Visit, error) {
		return []browser.Visit{
			{URL: "https://www.wurstclient.net/download/", Title: "Wurst Client", Time: ago(2 * time.Hour), Browser: b.Name, Profile: "Default"},
			{URL: "https://www.wurstclient.net/download/", Title: "Wurst Client", Time: ago(5 * time.Hour), Browser: b.Name, Profile: "Default"},
			{URL: "https://escape.gg/", Time: ago(time.Hour)},
			{URL: "https://vape.gg/", Time: ago(72 * time.Hour)},
			{URL: "::not a url", Time: ago(time.Hour)},
		}, nil
	}

	res := run(t, "minecraft-cheats", env, probe.Params{})
	require.Empty(t, res.Error)
	require.True(t, *res.Detected)

	byCategory := map[string][]string{}
	for _, f := range res.Findings {
		byCategory[f.Category] = append(byCategory[f.Category], f.Name)
	}
	require.Equal(t, map[string][]string{
		"cheat-site": {"Wurst Client"},
		"mod":        {"Meteor-client.jar.disabled", "killaura-client.jar"},
		"version":    {"1.20.1-wurst"},
		"process":    {"CheatEngine.exe"},
	}, byCategory)

	clean := newEnv(&fakeProvider{minecraft: filepath.Join(mc, "missing")}, nil)
	res = run(t, "minecraft-cheats", clean, probe.Params{})
	require.Empty(t, res.Error)
	require.False(t, *res.Detected)
}

func TestMinecraftFiles(t *testing.T) {
	t.Parallel()
	mc := filepath.Join(t.TempDir(), ".minecraft")
	day := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(mc, "mods", "sodium.jar"), "PK", ago(3*time.Hour))
	touch(t, filepath.Join(mc, "mods", "vape-lite.jar"), "PK", ago(2*time.Hour))
	touch(t, filepath.Join(mc, "config", "sodium-options.json"), "{}", ago(4*time.Hour))
	touch(t, filepath.Join(mc, "logs", "latest.log"),
		"[10:00:00] [main/INFO]: Setting user: Steve\n"+
			"[10:00:01] [main/INFO]: Loading Minecraft 1.20.1 with Fabric Loader\n"+
			"[10:00:02] [main/INFO]: Chunk renderer ready\n"+
			"[10:05:00] [Render thread/WARN]: Mod vape-lite is not signed\n",
		day)
	touch(t, filepath.Join(mc, "saves", "world", "level.dat"), "x", ago(time.Hour))

	fp := &fakeProvider{minecraft: mc}
	res := run(t, "minecraft-files", newEnv(fp, nil), probe.Params{})
	require.Empty(t, res.Error)
	require.Equal(t, []string{mc}, fp.Opened())

	categories := map[string][]string{}
	for _, f := range res.Findings {
		categories[f.Category] = append(categories[f.Category], f.Name)
	}
	require.Equal(t, []string{".minecraft"}, categories["profile"])
	require.ElementsMatch(t, []string{"sodium.jar", "vape-lite.jar"}, categories["mods"])
	require.Equal(t, []string{"sodium-options.json"}, categories["config"])
	require.Equal(t, []string{"latest.log"}, categories["logs"])
	require.NotContains(t, categories, "saves")
	require.Equal(t, []string{
		"[10:05:00] [Render thread/WARN]: Mod vape-lite is not signed",
		"[10:00:01] [main/INFO]: Loading Minecraft 1.20.1 with Fabric Loader",
		"[10:00:00] [main/INFO]: Setting user: Steve",
	}, categories["log"])

	for _, f := range res.Findings {
		switch f.Name {
		case "vape-lite.jar":
			require.Equal(t, "vape", f.Extra["suspicious"])
		case "sodium.jar":
			require.NotContains(t, f.Extra, "suspicious")
		}
		if f.Category == "log" && f.Extra["line"] == "4" {
			want := time.Date(2026, 10, 17, 10, 5, 0, 0, time.Local)
			require.True(t, want.Equal(f.Timestamp), f.Timestamp)
		}
	}

	res = run(t, "minecraft-files", newEnv(&fakeProvider{minecraft: filepath.Join(mc, "missing")}, nil), probe.Params{})
	require.NotEmpty(t, res.Error)
}

func TestProcesses(t *testing.T) {
	t.Parallel()
	java := model.Process{PID: 100, Name: "java", Cmdline: `java -javaagent:/tmp/agent.jar -jar /opt/mc/client.jar`, Started: ago(time.Hour)}
	before := []model.Process{
		{PID: 1, Name: "sleuth"},
		java,
		{PID: 200, Name: "ProcessHacker.exe", Started: ago(2 * time.Hour)},
		{PID: 300, Name: "rootkitd"},
		{PID: 301, Name: "exited"},
	}
	procs := &processTable{
		snaps: [][]model.Process{before, before[:4]},
		alive: map[int32]bool{300: true, 400: true, 500: false},
	}
	fp := &fakeProvider{
		processes: []model.Process{
			{PID: 100, Name: "java"},
			{PID: 200, Name: "ProcessHacker.exe"},
			{PID: 400, Name: "ghost"},
			{PID: 500, Name: "ps"},
		},
		modules: []platform.Module{
			{PID: 100, Process: "java", Name: "libjvm.so", Path: "/usr/lib/jvm/libjvm.so"},
			{PID: 100, Process: "java", Name: "libhook.so", Path: "/tmp/libhook.so"},
			{PID: 100, Process: "java", Name: "libpre.so", Path: "/tmp/libpre.so", Preload: true},
			{PID: 100, Process: "java", Name: "libgone.so", Path: "/tmp/libgone.so", Deleted: true},
		},
	}
	res := run(t, "processes", newEnv(fp, procs), probe.Params{})
	require.Empty(t, res.Error)
	require.True(t, *res.Detected)

	reasons := map[string]string{}
	for _, f := range res.Findings {
		switch f.Category {
		case "injected":
			reasons[f.Name] = f.Extra["reason"]
		case "hidden":
			reasons[f.Name] = "hidden from " + f.Extra["missing_from"]
		case "suspicious":
			reasons[f.Name] = "suspicious " + f.Extra["keyword"]
		}
	}
	require.Equal(t, map[string]string{
		"agent.jar":         "javaagent",
		"libhook.so":        "keyword hook",
		"libpre.so":         "preload",
		"libgone.so":        "deleted",
		"rootkitd":          "hidden from listing",
		"ghost":             "hidden from snapshot",
		"ProcessHacker.exe": "suspicious processhacker",
	}, reasons)
}

func TestRun(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{usb: []model.Finding{{Name: "usb 1-1", Timestamp: ago(time.Hour)}}}
	p, err := probe.Lookup("usb")
	require.NoError(t, err)

	res := p.Run(t.Context(), newEnv(fp, nil), probe.Params{})
	require.Equal(t, "usb", res.Probe)
	require.Equal(t, now, res.Started)
	require.Equal(t, now, res.Finished)

	// the default window of 24h applies when none is given
	fp.usb[0].Timestamp = ago(25 * time.Hour)
	res = p.Run(t.Context(), newEnv(fp, nil), probe.Params{})
	require.False(t, *res.Detected)

	res = p.Run(t.Context(), newEnv(fp, nil), probe.Params{Window: model.Window{Since: ago(48 * time.Hour)}})
	require.True(t, *res.Detected)
}

func TestRunAll(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "foo.jar"), "PK", ago(time.Hour))
	fp := &fakeProvider{
		roots:     []string{root},
		minecraft: filepath.Join(root, ".minecraft"),
		usb:       []model.Finding{},
		services:  []parse.Service{},
	}
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	battery := probe.Battery()
	results := probe.RunAll(ctx, newEnv(fp, nil), probe.Params{}, 4, battery)
	require.Len(t, results, len(battery))
	for _, p := range battery {
		res, ok := results[p.Name]
		require.True(t, ok, p.Name)
		require.Equal(t, p.Name, res.Probe)
		require.NotNil(t, res.Findings, p.Name)
	}
	require.Equal(t, []string{"foo.jar"}, names(results["jars"].Findings))
	require.True(t, slices.ContainsFunc(probe.Battery(), func(p probe.Probe) bool { return p.Name == "processes" }))
}
