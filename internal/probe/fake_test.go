package probe_test

import (
	"context"
	"sync"
	"time"

	"github.com/ardent-labs/sleuth/internal/browser"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/ardent-labs/sleuth/internal/platform"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) time.Time {
	return now.Add(-d)
}

// fakeProvider serves canned data; unset sources are unsupported
type fakeProvider struct {
	os        string
	home      string
	roots     []string
	minecraft string

	processes []model.Process
	modules   []platform.Module
	trash     []model.Finding
	deletions []model.Finding
	usb       []model.Finding
	services  []parse.Service
	folders   []model.Finding
	artifacts []model.Finding
	jars      []model.Finding
	history   []model.Finding
	browsers  []browser.Browser
	openErr   map[string]error

	mx     sync.Mutex
	opened []string
}

func src[T any](v []T) ([]T, error) {
	if v == nil {
		return nil, model.ErrUnsupported
	}
	return v, nil
}

func (f *fakeProvider) OS() string {
	if f.os == "" {
		return "linux"
	}
	return f.os
}
func (f *fakeProvider) Home() string         { return f.home }
func (f *fakeProvider) Roots() []string      { return f.roots }
func (f *fakeProvider) MinecraftDir() string { return f.minecraft }

func (f *fakeProvider) Processes(context.Context) ([]model.Process, error) { return src(f.processes) }
func (f *fakeProvider) Modules(context.Context, []model.Process) ([]platform.Module, error) {
	return src(f.modules)
}
func (f *fakeProvider) Trash(context.Context) ([]model.Finding, error) { return src(f.trash) }
func (f *fakeProvider) DeletionEvents(context.Context, model.Window) ([]model.Finding, error) {
	return src(f.deletions)
}
func (f *fakeProvider) USBDisconnects(context.Context, model.Window) ([]model.Finding, error) {
	return src(f.usb)
}
func (f *fakeProvider) Services(context.Context) ([]parse.Service, error)     { return src(f.services) }
func (f *fakeProvider) RecentFolders(context.Context) ([]model.Finding, error) { return src(f.folders) }
func (f *fakeProvider) ExecutionArtifacts(context.Context) ([]model.Finding, error) {
	return src(f.artifacts)
}
func (f *fakeProvider) JarEvidence(context.Context, model.Window) ([]model.Finding, error) {
	return src(f.jars)
}
func (f *fakeProvider) ShellHistory(context.Context) ([]model.Finding, error) { return src(f.history) }
func (f *fakeProvider) Browsers(context.Context) ([]browser.Browser, error) {
	return f.browsers, nil
}

func (f *fakeProvider) OpenURL(_ context.Context, b browser.Browser, url string) error {
	if err := f.openErr[b.ID]; err != nil {
		return err
	}
	f.mx.Lock()
	defer f.mx.Unlock()
	f.opened = append(f.opened, b.ID+" "+url)
	return nil
}

func (f *fakeProvider) Open(_ context.Context, path string) error {
	if err := f.openErr[path]; err != nil {
		return err
	}
	f.mx.Lock()
	defer f.mx.Unlock()
	f.opened = append(f.opened, path)
	return nil
}

func (f *fakeProvider) Opened() []string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]string(nil), f.opened...)
}

// processTable serves a fixed snapshot, optionally a different one on
// later calls
type processTable struct {
	mx    sync.Mutex
	snaps [][]model.Process
	calls int
	alive map[int32]bool
}

func (p *processTable) Snapshot(context.Context) ([]model.Process, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if len(p.snaps) == 0 {
		return nil, nil
	}
	i := min(p.calls, len(p.snaps)-1)
	p.calls++
	return p.snaps[i], nil
}

func (p *processTable) PIDExists(_ context.Context, pid int32) (bool, error) {
	return p.alive[pid], nil
}
