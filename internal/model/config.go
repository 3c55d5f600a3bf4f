package model

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"

	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version  int      `json:"version" yaml:"version"` // fixed 0 for now
	Scan     Scan     `json:"scan" yaml:"scan"`
	Window   string   `json:"window" yaml:"window"` // default window of history probes, e.g. 24h
	Commands Commands `json:"commands" yaml:"commands"`
	Keywords Keywords `json:"keywords" yaml:"keywords"`
	Services Services `json:"services" yaml:"services"`
	Service  Service  `json:"service" yaml:"service"`
}

// Scan configures filesystem walks.
type Scan struct {
	Roots    []string `json:"roots" yaml:"roots"` // empty => platform defaults
	MaxDepth int      `json:"max_depth" yaml:"max_depth"`
	SkipDirs []string `json:"skip_dirs" yaml:"skip_dirs"`
}

// Commands configures the OS command bridge.
type Commands struct {
	Timeout string `json:"timeout" yaml:"timeout"`
}

// Keywords are the static match tables. All matching is a case insensitive
// substring match.
type Keywords struct {
	CheatDomains        []string `json:"cheat_domains" yaml:"cheat_domains"`
	SuspiciousMods      []string `json:"suspicious_mods" yaml:"suspicious_mods"`
	ModWhitelist        []string `json:"mod_whitelist" yaml:"mod_whitelist"`
	SuspiciousProcesses []string `json:"suspicious_processes" yaml:"suspicious_processes"`
	InjectionModules    []string `json:"injection_modules" yaml:"injection_modules"`
	RecordingApps       []string `json:"recording_apps" yaml:"recording_apps"`
	RecordingExclusions []string `json:"recording_exclusions" yaml:"recording_exclusions"`
}

// Services are the per platform watch lists of the stopped service probe.
type Services struct {
	Windows []string `json:"windows" yaml:"windows"`
	Darwin  []string `json:"darwin" yaml:"darwin"`
	Linux   []string `json:"linux" yaml:"linux"`
}

// Service configures the run and watch commands.
type Service struct {
	Mode     string `json:"mode" yaml:"mode"` // "manual" | "timer"
	Verbose  bool   `json:"verbose" yaml:"verbose"`
	Log      string `json:"log" yaml:"log"`           // "stderr"|"stdout"|"discard"|path
	Dir      string `json:"dir" yaml:"dir"`           // export directory
	Schedule string `json:"schedule" yaml:"schedule"` // cron expression, timer mode
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	if err := out.validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// DefaultConfig returns the configuration with every default of the schema applied.
func DefaultConfig() Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

func (c Config) validate() error {
	var errs []error
	if _, err := ParseDuration(c.Window); err != nil {
		errs = append(errs, fmt.Errorf("window: %w", err))
	}
	if _, err := ParseDuration(c.Commands.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("commands.timeout: %w", err))
	}
	if c.Service.Mode == ServiceModeTimer && c.Service.Schedule == "" {
		errs = append(errs, errors.New("service.schedule: required in timer mode"))
	}
	if c.Service.Schedule != "" {
		if _, err := ParseCron(c.Service.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("service.schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

// WindowDuration returns the parsed default window.
func (c Config) WindowDuration() time.Duration {
	d, _ := ParseDuration(c.Window)
	return d
}

// CommandTimeout returns the parsed per command timeout.
func (c Config) CommandTimeout() time.Duration {
	d, _ := ParseDuration(c.Commands.Timeout)
	return d
}

// WatchList returns the service watch list for the given GOOS.
func (s Services) WatchList(goos string) []string {
	switch goos {
	case "windows":
		return s.Windows
	case "darwin":
		return s.Darwin
	default:
		return s.Linux
	}
}
