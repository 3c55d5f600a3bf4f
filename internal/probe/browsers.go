package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/match"
	"github.com/ardent-labs/sleuth/internal/model"
)

func browsers(ctx context.Context, env Env, _ Params) (outcome, error) {
	bs, err := env.Provider.Browsers(ctx)
	if err != nil {
		return outcome{}, err
	}
	found := make([]model.Finding, 0, len(bs))
	for _, b := range bs {
		found = append(found, model.Finding{
			Name:   b.Name,
			Path:   b.Path,
			Source: model.SourceBrowser,
		}.With("id", b.ID).With("default", strconv.FormatBool(b.Default)))
	}
	return outcome{findings: found}, nil
}

// browserHistory opens the history page of every detected browser, the
// default one first. The probe fails only when no browser could be opened.
func browserHistory(ctx context.Context, env Env, _ Params) (outcome, error) {
	bs, err := env.Provider.Browsers(ctx)
	if err != nil {
		return outcome{}, err
	}
	if len(bs) == 0 {
		return outcome{}, fmt.Errorf("no browser detected: %w", model.ErrNoMatch)
	}
	var found []model.Finding
	var errs []error
	opened := 0
	for _, b := range bs {
		u := b.HistoryURL()
		f := model.Finding{
			Name:   b.Name,
			Path:   b.Path,
			Source: model.SourceBrowser,
		}.With("id", b.ID).With("default", strconv.FormatBool(b.Default)).With("url", u)
		if err := env.Provider.OpenURL(ctx, b, u); err != nil {
			slog.WarnContext(ctx, "opening browser history", "browser", b.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.ID, err))
			f = f.With("status", "failed").With("error", err.Error())
		} else {
			opened++
			f = f.With("status", "opened")
		}
		found = append(found, f)
	}
	if opened == 0 {
		return outcome{}, errors.Join(errs...)
	}
	return outcome{findings: found}, nil
}

// cheatSites returns the history visits of known cheat domains
func cheatSites(env Env, w model.Window) func(context.Context) ([]model.Finding, error) {
	return func(ctx context.Context) ([]model.Finding, error) {
		bs, err := env.Provider.Browsers(ctx)
		if err != nil {
			return nil, err
		}
		m := match.New(env.Config.Keywords.CheatDomains, nil)
		var ret []model.Finding
		var errs []error
		for _, b := range bs {
			visits, err := env.History(ctx, b)
			if err != nil {
				slog.DebugContext(ctx, "reading browser history", "browser", b.ID, "error", err)
				errs = append(errs, err)
			}
			for _, v := range visits {
				if !w.Contains(v.Time) {
					continue
				}
				if f, ok := visitFinding(m, b, v); ok {
					ret = append(ret, f)
				}
			}
		}
		if len(ret) == 0 && len(errs) > 0 && len(errs) == len(bs) {
			return nil, errors.Join(errs...)
		}
		return model.LatestBy(ret, func(f model.Finding) string { return f.Extra["url"] }), nil
	}
}

func visitFinding(m match.Matcher, b browser.Browser, v browser.Visit) (model.Finding, bool) {
	u, err := url.Parse(v.URL)
	if err != nil || u.Hostname() == "" {
		return model.Finding{}, false
	}
	domain, ok := m.Domain(u.Hostname())
	if !ok {
		return model.Finding{}, false
	}
	name := v.Title
	if name == "" {
		name = u.Hostname()
	}
	return model.Finding{
		Name:      name,
		Timestamp: v.Time,
		Source:    model.SourceBrowser,
	}.InCategory("cheat-site").
		With("url", v.URL).
		With("domain", domain).
		With("browser", b.ID).
		With("profile", v.Profile), true
}
