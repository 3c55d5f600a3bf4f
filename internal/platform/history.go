package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
)

type historyFile struct {
	shell string
	path  string
	parse func(io.Reader) ([]parse.HistoryLine, error)
}

// readHistories reads the existing history files, newest command first. Only
// the last MaxHistoryLines commands of every file are kept. Missing files are
// not an error.
func readHistories(files []historyFile) ([]model.Finding, error) {
	var ret []model.Finding
	var errs []error
	for _, hf := range files {
		lines, err := readHistory(hf)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Debug("reading shell history", "path", hf.path, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(lines) > MaxHistoryLines {
			lines = lines[len(lines)-MaxHistoryLines:]
		}
		slices.Reverse(lines)
		for _, l := range lines {
			ret = append(ret, model.Finding{
				Name:      l.Command,
				Path:      hf.path,
				Timestamp: l.Time,
				Source:    model.SourceShell,
				Extra:     map[string]string{"shell": hf.shell},
			})
		}
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ret, nil
}

func readHistory(hf historyFile) ([]parse.HistoryLine, error) {
	f, err := os.Open(hf.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := hf.parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hf.path, err)
	}
	return lines, nil
}

// dirFindings returns a finding for every regular file in dir accepted by
// keep, with the modification time as timestamp.
func dirFindings(dir string, source string, keep func(name string) bool) ([]model.Finding, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []model.Finding
	for _, e := range entries {
		if !e.Type().IsRegular() || (keep != nil && !keep(e.Name())) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ret = append(ret, model.Finding{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Timestamp: info.ModTime(),
			Source:    source,
			Size:      info.Size(),
		})
	}
	return ret, nil
}
