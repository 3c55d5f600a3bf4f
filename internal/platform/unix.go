package platform

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

// unix is shared by the Linux and macOS providers
type unix struct {
	base
}

func (u unix) Roots() []string {
	return []string{
		filepath.Join(u.deps.Home, "Desktop"),
		filepath.Join(u.deps.Home, "Downloads"),
		filepath.Join(u.deps.Home, "Documents"),
	}
}

func (u unix) Processes(ctx context.Context) ([]model.Process, error) {
	out, err := u.output(ctx, command.New("ps", "-axo", "pid=,lstart=,args="))
	if err != nil {
		return nil, err
	}
	return parse.PS(out, u.deps.Location), nil
}

func (u unix) ShellHistory(_ context.Context) ([]model.Finding, error) {
	home := u.deps.Home
	dataHome := u.deps.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	files := []historyFile{
		{shell: "bash", path: filepath.Join(home, ".bash_history"), parse: parse.Bash},
		{shell: "zsh", path: filepath.Join(home, ".zsh_history"), parse: parse.Zsh},
		{shell: "fish", path: filepath.Join(dataHome, "fish", "fish_history"), parse: parse.Fish},
		{shell: "powershell", path: filepath.Join(dataHome, "powershell", "PSReadLine", "ConsoleHost_history.txt"), parse: parse.PSReadLine},
	}
	if histfile := u.deps.Getenv("HISTFILE"); histfile != "" && !strings.HasPrefix(filepath.Base(histfile), ".zsh") {
		files[0].path = histfile
	}
	return readHistories(files)
}

func (u unix) Open(ctx context.Context, path string) error {
	return u.start(ctx, "xdg-open", path)
}

// jarFindings turns log events mentioning jar files into findings
func jarFindings(events []parse.Event, source string) []model.Finding {
	var ret []model.Finding
	for _, e := range events {
		for _, p := range parse.JarPaths(e.Message) {
			ret = append(ret, model.Finding{
				Name:      parse.Base(p),
				Path:      p,
				Timestamp: e.Time,
				Source:    source,
			}.With("message", e.Message))
		}
	}
	return ret
}

func usbFindings(devs []parse.USBDevice, w model.Window, source string) []model.Finding {
	var ret []model.Finding
	for _, d := range devs {
		if !w.Contains(d.Time) {
			continue
		}
		ret = append(ret, model.Finding{
			Name:      d.Device,
			Timestamp: d.Time,
			Source:    source,
		})
	}
	return ret
}

// procModules reads the file backed mappings and LD_PRELOAD of a process
// from procfs.
func procModules(root string, p model.Process) ([]Module, error) {
	dir := filepath.Join(root, strconv.FormatInt(int64(p.PID), 10))
	maps, err := os.ReadFile(filepath.Join(dir, "maps"))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ret []Module
	add := func(m Module) {
		if _, ok := seen[m.Path]; ok {
			return
		}
		seen[m.Path] = struct{}{}
		m.PID, m.Process, m.Name = p.PID, p.Name, filepath.Base(m.Path)
		ret = append(ret, m)
	}

	if environ, err := os.ReadFile(filepath.Join(dir, "environ")); err == nil {
		for _, kv := range bytes.Split(environ, []byte{0}) {
			v, ok := bytes.CutPrefix(kv, []byte("LD_PRELOAD="))
			if !ok {
				continue
			}
			for _, lib := range strings.FieldsFunc(string(v), func(r rune) bool { return r == ':' || r == ' ' }) {
				add(Module{Path: lib, Preload: true})
			}
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(maps))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || !strings.HasPrefix(fields[5], "/") {
			continue
		}
		path, deleted := strings.CutSuffix(strings.Join(fields[5:], " "), " (deleted)")
		if !isModule(path) {
			continue
		}
		add(Module{Path: path, Deleted: deleted})
	}
	return ret, scanner.Err()
}

func isModule(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".so") || strings.Contains(name, ".so.") ||
		strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".dylib") ||
		strings.HasSuffix(name, ".jnilib") || strings.HasSuffix(name, ".dll")
}
