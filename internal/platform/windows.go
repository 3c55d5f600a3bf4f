package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

const (
	keyUserAssist = `Software\Microsoft\Windows\CurrentVersion\Explorer\UserAssist`
	keyTypedPaths = `Software\Microsoft\Windows\CurrentVersion\Explorer\TypedPaths`
	keyUserChoice = `Software\Microsoft\Windows\Shell\Associations\UrlAssociations\http\UserChoice`
)

// BAM moved from Services\bam\UserSettings to Services\bam\State\UserSettings
// in Windows 10 1809
var keysBAM = []string{
	`SYSTEM\CurrentControlSet\Services\bam\State\UserSettings`,
	`SYSTEM\CurrentControlSet\Services\bam\UserSettings`,
}

// eventScript renders matching events as "<ISO time>|<message on one line>"
const eventScript = `$since = [datetime]::Parse('%s'); ` +
	`@(%s) | ForEach-Object { '{0:o}|{1}' -f $_.TimeCreated, ($_.Message -replace '\s+', ' ') }`

const modulesScript = `Get-Process -Id %s -ErrorAction SilentlyContinue | ForEach-Object { $p = $_; ` +
	`try { $p.Modules | ForEach-Object { '{0}|{1}|{2}|{3}' -f $p.Id, $p.ProcessName, $_.ModuleName, $_.FileName } } catch {} }`

type Windows struct {
	base
}

func (Windows) OS() string {
	return "windows"
}

func (w Windows) env(name, fallback string) string {
	if v := w.deps.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func (w Windows) appData() string {
	return w.env("APPDATA", filepath.Join(w.deps.Home, "AppData", "Roaming"))
}

func (w Windows) localAppData() string {
	return w.env("LOCALAPPDATA", filepath.Join(w.deps.Home, "AppData", "Local"))
}

func (w Windows) systemDrive() string {
	return strings.TrimRight(w.env("SystemDrive", "C:"), `\/`) + string(filepath.Separator)
}

func (w Windows) systemRoot() string {
	return w.env("SystemRoot", filepath.Join(w.systemDrive(), "Windows"))
}

func (w Windows) recentDir() string {
	return filepath.Join(w.appData(), "Microsoft", "Windows", "Recent")
}

func (w Windows) MinecraftDir() string {
	return filepath.Join(w.appData(), ".minecraft")
}

func (w Windows) Roots() []string {
	return []string{
		filepath.Join(w.deps.Home, "Desktop"),
		filepath.Join(w.deps.Home, "Downloads"),
		filepath.Join(w.deps.Home, "Documents"),
		w.MinecraftDir(),
	}
}

func (w Windows) Processes(ctx context.Context) ([]model.Process, error) {
	out, err := w.output(ctx, command.New("tasklist", "/FO", "CSV", "/NH"))
	if err != nil {
		return nil, err
	}
	return parse.Tasklist(out)
}

func (w Windows) Modules(ctx context.Context, procs []model.Process) ([]Module, error) {
	if len(procs) == 0 {
		return nil, nil
	}
	pids := make([]string, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, strconv.FormatInt(int64(p.PID), 10))
	}
	out, err := w.output(ctx, command.PowerShell(fmt.Sprintf(modulesScript, strings.Join(pids, ","))))
	if err != nil {
		return nil, err
	}
	var ret []Module
	for line := range strings.Lines(out) {
		fields := strings.SplitN(strings.TrimSpace(line), "|", 4)
		if len(fields) != 4 {
			continue
		}
		pid, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			continue
		}
		ret = append(ret, Module{PID: int32(pid), Process: fields[1], Name: fields[2], Path: fields[3]})
	}
	return ret, nil
}

// Trash parses the $I records of every user in the recycle bin
func (w Windows) Trash(_ context.Context) ([]model.Finding, error) {
	bin := filepath.Join(w.systemDrive(), "$Recycle.Bin")
	sids, err := os.ReadDir(bin)
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, sid := range sids {
		if !sid.IsDir() {
			continue
		}
		dir := filepath.Join(bin, sid.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			slog.Debug("skipping recycle bin", "path", dir, "error", err)
			continue
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), "$I") {
				continue
			}
			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			rec, err := parse.RecycleBinInfo(b)
			if err != nil {
				slog.Debug("skipping $I record", "path", filepath.Join(dir, e.Name()), "error", err)
				continue
			}
			ret = append(ret, model.Finding{
				Name:      parse.Base(rec.Path),
				Path:      rec.Path,
				Timestamp: rec.Deleted,
				Source:    model.SourceRecycleBin,
				Size:      rec.Size,
			}.With("recycled", filepath.Join(dir, "$R"+strings.TrimPrefix(e.Name(), "$I"))))
		}
	}
	return ret, nil
}

func (w Windows) events(ctx context.Context, win model.Window, queries ...string) ([]parse.Event, error) {
	since := w.since(win).UTC().Format(time.RFC3339)
	out, err := w.output(ctx, command.PowerShell(fmt.Sprintf(eventScript, since, strings.Join(queries, "; "))))
	if err != nil {
		return nil, err
	}
	return parse.EventRecords(out), nil
}

func winEvent(log string, id int, match string) string {
	q := fmt.Sprintf(`Get-WinEvent -FilterHashtable @{LogName='%s'; Id=%d; StartTime=$since} -ErrorAction SilentlyContinue`, log, id)
	if match != "" {
		q += fmt.Sprintf(` | Where-Object { $_.Message -match '%s' }`, match)
	}
	return q
}

// DeletionEvents reads object access events (4663) with the DELETE access
// right from the Security log. They only exist when object access auditing
// is enabled.
func (w Windows) DeletionEvents(ctx context.Context, win model.Window) ([]model.Finding, error) {
	events, err := w.events(ctx, win, winEvent("Security", 4663, "DELETE"))
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, e := range events {
		name, ok := parse.DeletedObject(e.Message)
		if !ok {
			continue
		}
		ret = append(ret, model.Finding{
			Name:      parse.Base(name),
			Path:      name,
			Timestamp: e.Time,
			Source:    model.SourceEventLog,
		}.With("event", "4663"))
	}
	return ret, nil
}

func (w Windows) USBDisconnects(ctx context.Context, win model.Window) ([]model.Finding, error) {
	events, err := w.events(ctx, win,
		winEvent("Microsoft-Windows-Kernel-PnP/Configuration", 420, ""),
		winEvent("Microsoft-Windows-DriverFrameworks-UserMode/Operational", 2102, ""),
	)
	if err != nil {
		return nil, err
	}
	return usbFindings(parse.WindowsUSB(events), win, model.SourceEventLog), nil
}

func (w Windows) Services(ctx context.Context) ([]parse.Service, error) {
	out, err := w.output(ctx, command.PowerShell(
		`Get-Service | Select-Object Name,Status,StartType | ConvertTo-Csv -NoTypeInformation`))
	if err != nil {
		return nil, err
	}
	rows, err := parse.CSV(out)
	if err != nil {
		return nil, err
	}
	return parse.WindowsServices(rows), nil
}

// shortcuts parses the shell links of the Recent folder
func (w Windows) shortcuts() ([]model.Finding, error) {
	dir := w.recentDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, e := range entries {
		if !strings.EqualFold(filepath.Ext(e.Name()), ".lnk") {
			continue
		}
		lnk := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		f := model.Finding{
			Name:      strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Timestamp: info.ModTime(),
			Source:    model.SourceRecent,
		}.With("shortcut", lnk)
		if b, err := os.ReadFile(lnk); err == nil {
			if sc, ok := parse.Lnk(b); ok {
				f.Name = parse.Base(sc.Target)
				f.Path = sc.Target
				if sc.Folder {
					f.Category = "folder"
				}
			}
		}
		ret = append(ret, f)
	}
	return ret, nil
}

func (w Windows) RecentFolders(_ context.Context) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error
	shortcuts, err := w.shortcuts()
	if err != nil {
		errs = append(errs, err)
	}
	for _, f := range shortcuts {
		if f.Category == "folder" {
			ret = append(ret, f)
		}
	}

	typed, err := w.deps.Registry.Values(CurrentUser, keyTypedPaths)
	if err != nil {
		errs = append(errs, err)
	}
	for _, v := range typed {
		if v.Text == "" {
			continue
		}
		ret = append(ret, model.Finding{
			Name:   parse.Base(strings.TrimRight(v.Text, `\`)),
			Path:   v.Text,
			Source: model.SourceRegistry,
		}.InCategory("typed-path"))
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func (w Windows) prefetch() ([]model.Finding, error) {
	files, err := dirFindings(filepath.Join(w.systemRoot(), "Prefetch"), model.SourcePrefetch, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".pf")
	})
	if err != nil {
		return nil, err
	}
	ret := make([]model.Finding, 0, len(files))
	for _, f := range files {
		exe, hash, ok := parse.Prefetch(f.Name)
		if !ok {
			continue
		}
		f.Name = exe
		ret = append(ret, f.With("hash", hash))
	}
	return ret, nil
}

func (w Windows) userAssist() ([]model.Finding, error) {
	guids, err := w.deps.Registry.Subkeys(CurrentUser, keyUserAssist)
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, guid := range guids {
		values, err := w.deps.Registry.Values(CurrentUser, keyUserAssist+`\`+guid+`\Count`)
		if err != nil {
			continue
		}
		for _, v := range values {
			count, last, ok := parse.UserAssist(v.Data)
			if !ok {
				continue
			}
			path := parse.ExpandKnownFolder(parse.ROT13(v.Name))
			ret = append(ret, model.Finding{
				Name:      parse.Base(path),
				Path:      path,
				Timestamp: last,
				Source:    model.SourceRegistry,
			}.InCategory("userassist").With("count", strconv.Itoa(count)))
		}
	}
	return ret, nil
}

func (w Windows) bam() ([]model.Finding, error) {
	var errs []error
	for _, key := range keysBAM {
		sids, err := w.deps.Registry.Subkeys(LocalMachine, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var ret []model.Finding
		for _, sid := range sids {
			values, err := w.deps.Registry.Values(LocalMachine, key+`\`+sid)
			if err != nil {
				continue
			}
			for _, v := range values {
				if !strings.Contains(v.Name, `\`) {
					continue
				}
				last, ok := parse.BAM(v.Data)
				if !ok {
					continue
				}
				ret = append(ret, model.Finding{
					Name:      parse.Base(v.Name),
					Path:      v.Name,
					Timestamp: last,
					Source:    model.SourceRegistry,
				}.InCategory("bam").With("sid", sid))
			}
		}
		return ret, nil
	}
	return nil, errors.Join(errs...)
}

// ExecutionArtifacts merges prefetch files, UserAssist and BAM entries
func (w Windows) ExecutionArtifacts(_ context.Context) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error
	for _, source := range []func() ([]model.Finding, error){w.prefetch, w.userAssist, w.bam} {
		found, err := source()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ret = append(ret, found...)
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func isJar(p string) bool {
	return strings.EqualFold(filepath.Ext(strings.ReplaceAll(p, `\`, "/")), ".jar")
}

// JarEvidence looks for jars in Recent shortcuts, UserAssist and process
// creation events (4688) of the Security log.
func (w Windows) JarEvidence(ctx context.Context, win model.Window) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error

	shortcuts, err := w.shortcuts()
	if err != nil {
		errs = append(errs, err)
	}
	for _, f := range shortcuts {
		if isJar(f.Path) || isJar(f.Name) {
			ret = append(ret, f)
		}
	}

	assists, err := w.userAssist()
	if err != nil {
		errs = append(errs, err)
	}
	for _, f := range assists {
		if isJar(f.Path) {
			ret = append(ret, f)
		}
	}

	events, err := w.events(ctx, win, winEvent("Security", 4688, `\.jar`))
	if err != nil {
		errs = append(errs, err)
	}
	ret = append(ret, jarFindings(events, model.SourceEventLog)...)

	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func (w Windows) ShellHistory(_ context.Context) ([]model.Finding, error) {
	return readHistories([]historyFile{{
		shell: "powershell",
		path:  filepath.Join(w.appData(), "Microsoft", "Windows", "PowerShell", "PSReadLine", "ConsoleHost_history.txt"),
		parse: parse.PSReadLine,
	}})
}

func (w Windows) candidates() []browser.Candidate {
	pf := w.env("ProgramFiles", filepath.Join(w.systemDrive(), "Program Files"))
	pf86 := w.env("ProgramFiles(x86)", filepath.Join(w.systemDrive(), "Program Files (x86)"))
	local := w.localAppData()
	roaming := w.appData()
	return []browser.Candidate{
		{ID: "chrome", Name: "Google Chrome", Kind: browser.Chromium, Scheme: "chrome",
			Exes: []string{
				filepath.Join(pf, "Google", "Chrome", "Application", "chrome.exe"),
				filepath.Join(pf86, "Google", "Chrome", "Application", "chrome.exe"),
				filepath.Join(local, "Google", "Chrome", "Application", "chrome.exe"),
			},
			DataDir: filepath.Join(local, "Google", "Chrome", "User Data")},
		{ID: "edge", Name: "Microsoft Edge", Kind: browser.Chromium, Scheme: "edge",
			Exes: []string{
				filepath.Join(pf86, "Microsoft", "Edge", "Application", "msedge.exe"),
				filepath.Join(pf, "Microsoft", "Edge", "Application", "msedge.exe"),
			},
			DataDir: filepath.Join(local, "Microsoft", "Edge", "User Data")},
		{ID: "firefox", Name: "Mozilla Firefox", Kind: browser.Firefox,
			Exes: []string{
				filepath.Join(pf, "Mozilla Firefox", "firefox.exe"),
				filepath.Join(pf86, "Mozilla Firefox", "firefox.exe"),
			},
			DataDir: filepath.Join(roaming, "Mozilla", "Firefox", "Profiles")},
		{ID: "brave", Name: "Brave", Kind: browser.Chromium, Scheme: "brave",
			Exes: []string{
				filepath.Join(pf, "BraveSoftware", "Brave-Browser", "Application", "brave.exe"),
				filepath.Join(local, "BraveSoftware", "Brave-Browser", "Application", "brave.exe"),
			},
			DataDir: filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data")},
		{ID: "opera", Name: "Opera", Kind: browser.Chromium, Scheme: "opera",
			Exes:    []string{filepath.Join(local, "Programs", "Opera", "opera.exe")},
			DataDir: filepath.Join(roaming, "Opera Software", "Opera Stable")},
		{ID: "opera-gx", Name: "Opera GX", Kind: browser.Chromium, Scheme: "opera",
			Exes:    []string{filepath.Join(local, "Programs", "Opera GX", "opera.exe")},
			DataDir: filepath.Join(roaming, "Opera Software", "Opera GX Stable")},
		{ID: "vivaldi", Name: "Vivaldi", Kind: browser.Chromium, Scheme: "vivaldi",
			Exes:    []string{filepath.Join(local, "Vivaldi", "Application", "vivaldi.exe")},
			DataDir: filepath.Join(local, "Vivaldi", "User Data")},
	}
}

func (w Windows) Browsers(_ context.Context) ([]browser.Browser, error) {
	var def string
	if progID, err := w.deps.Registry.String(CurrentUser, keyUserChoice, "ProgId"); err == nil {
		def = parse.BrowserID(progID)
	}
	return browser.Detect(w.candidates(), browser.Exists, def), nil
}

func (w Windows) OpenURL(ctx context.Context, b browser.Browser, url string) error {
	if url == "" {
		return w.start(ctx, b.Path)
	}
	return w.start(ctx, b.Path, url)
}

func (w Windows) Open(ctx context.Context, path string) error {
	return w.start(ctx, "explorer", path)
}
