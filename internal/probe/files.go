package probe

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/ardent-labs/sleuth/internal/walk"
)

// maxSimilar caps the cross references attached to a single finding
const maxSimilar = 5

func roots(env Env, params Params) []string {
	switch {
	case len(params.Roots) > 0:
		return params.Roots
	case len(env.Config.Scan.Roots) > 0:
		return env.Config.Scan.Roots
	}
	return env.Provider.Roots()
}

// scanFiles walks the scan roots and calls fn for every regular file.
// Unreadable files are skipped; roots which can't be opened are skipped
// too, unless none of them could.
func scanFiles(ctx context.Context, env Env, params Params, fn func(walk.Entry, fs.FileInfo)) error {
	rs := roots(env, params)
	opts := walk.Options{
		MaxDepth: env.Config.Scan.MaxDepth,
		Skip:     walk.SkipFunc(env.Config.Scan.SkipDirs),
	}
	if len(env.Config.Scan.SkipDirs) == 0 {
		opts.Skip = walk.ShouldSkipDirectory
	}
	var rootErrs []error
	for entry, err := range walk.Dirs(ctx, opts, rs...) {
		if err != nil {
			if slices.Contains(rs, entry.Path()) {
				slog.DebugContext(ctx, "skipping root", "path", entry.Path(), "error", err)
				rootErrs = append(rootErrs, err)
			}
			continue
		}
		info, err := entry.Stat()
		if err != nil {
			continue
		}
		fn(entry, info)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rs) > 0 && len(rootErrs) == len(rs) {
		return errors.Join(rootErrs...)
	}
	return nil
}

func fileFinding(entry walk.Entry, info fs.FileInfo) model.Finding {
	return model.Finding{
		Name:      info.Name(),
		Path:      entry.Path(),
		Timestamp: info.ModTime(),
		Source:    model.SourceFilesystem,
		Size:      info.Size(),
	}
}

// jars lists the .jar files of the scan roots. The window is optional and
// filters on the modification time.
func jars(ctx context.Context, env Env, params Params) (outcome, error) {
	var found []model.Finding
	err := scanFiles(ctx, env, params, func(entry walk.Entry, info fs.FileInfo) {
		if parse.Ext(info.Name()) != ".jar" {
			return
		}
		if !params.Window.Contains(info.ModTime()) {
			return
		}
		found = append(found, fileFinding(entry, info))
	})
	if err != nil {
		return outcome{}, err
	}
	model.SortByTime(found)
	return outcome{findings: found}, nil
}

// extensions a file with binary content is not expected to have
var harmless = map[string]struct{}{
	".txt": {}, ".log": {}, ".dat": {}, ".tmp": {}, ".bak": {}, ".old": {},
	".cfg": {}, ".ini": {}, ".json": {}, ".xml": {}, ".yml": {}, ".yaml": {},
	".toml": {}, ".properties": {}, ".csv": {}, ".md": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".pdf": {}, ".doc": {}, ".rtf": {},
	".mp3": {}, ".mp4": {}, ".wav": {}, ".ogg": {}, ".avi": {}, ".mkv": {},
}

// extensions flags double extensions (mod.jar.txt) and files whose content
// is an executable or archive not matching their extension. Every flagged
// file is cross referenced with the other files sharing its stem.
func extensions(ctx context.Context, env Env, params Params) (outcome, error) {
	var found []model.Finding
	stems := make(map[string][]string)
	err := scanFiles(ctx, env, params, func(entry walk.Entry, info fs.FileInfo) {
		name := info.Name()
		if stem := parse.Stem(name); stem != "" {
			stems[stem] = append(stems[stem], entry.Path())
		}
		if orig, ok := parse.OriginalNameGuess(name); ok {
			found = append(found, fileFinding(entry, info).
				InCategory("double-extension").
				With("original", orig))
			return
		}
		ext := parse.Ext(name)
		if _, ok := harmless[ext]; !ok || info.Size() < 4 {
			return
		}
		f, err := entry.Open()
		if err != nil {
			return
		}
		kind := parse.Magic(f)
		_ = f.Close()
		if !parse.MagicMatchesExt(kind, ext) {
			found = append(found, fileFinding(entry, info).
				InCategory("disguised").
				With("magic", kind))
		}
	})
	if err != nil {
		return outcome{}, err
	}

	for i, f := range found {
		var similar []string
		for _, p := range stems[parse.Stem(f.Name)] {
			if p == f.Path {
				continue
			}
			similar = append(similar, p)
			if len(similar) == maxSimilar {
				break
			}
		}
		if len(similar) > 0 {
			found[i] = f.With("similar", strings.Join(similar, ";"))
		}
	}
	model.SortByTime(found)
	return outcome{findings: found}, nil
}
