package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/ardent-labs/sleuth/internal/command"
	"github.com/ardent-labs/sleuth/internal/log"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/platform"
	"github.com/ardent-labs/sleuth/internal/probe"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

const (
	configEnv  = "SLEUTHCONFIG"
	configName = "sleuth.yaml"
)

var (
	userConfigPath string // /default/config/path/sleuth on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config
	closeLog       = func() error { return nil }

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "sleuth")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is sleuth.yaml in "+userConfigPath+" or in current directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initSleuth

	probeFlags.register(probeCmd)
	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&flagOut, "out", "", "file to write the export to")
	runCmd.Flags().StringVar(&flagFormat, "format", "json", "export format: json or cyclonedx")
	watchCmd.Flags().StringVar(&flagFormat, "format", "json", "export format: json or cyclonedx")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = closeLog()
	if err != nil {
		slog.Error("sleuth failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "sleuth",
	Short:        "Forensic probes looking for traces of game cheating",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a sleuth",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("sleuth: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		fmt.Printf("sleuth: %s\n", info.Main.Version)
		fmt.Printf("go:     %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:   %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

// lookupConfig returns the config file to load: the environment variable,
// the --config flag, then the first existing sleuth.yaml in dirs. Empty
// means no config exists.
func lookupConfig(env, flag string, dirs ...string) string {
	if env != "" {
		return env
	}
	if flag != "" {
		return flag
	}
	for _, d := range dirs {
		path := filepath.Join(d, configName)
		if exists(path) {
			return path
		}
	}
	return ""
}

func initSleuth(cmd *cobra.Command, _ []string) error {
	configPath = lookupConfig(os.Getenv(configEnv), flagConfigFilePath, userConfigPath, ".")

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, configName)
		if err := storeConfig(configPath, config); err != nil {
			return err
		}
	} else {
		var err error
		config, err = loadConfig(configPath)
		if err != nil {
			return err
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	// initialize logging
	w, closer, err := log.Output(config.Service.Log)
	if err != nil {
		return err
	}
	closeLog = closer
	slog.SetDefault(log.New(w, config.Service.Verbose))

	slog.Debug("sleuth run", "configPath", configPath)
	slog.Debug("sleuth run", "config", config)
	return nil
}

func storeConfig(path string, cfg model.Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return enc.Close()
}

func loadConfig(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg, err := model.LoadConfig(f)
	if err != nil {
		for _, d := range model.CueErrDetails(err) {
			slog.Error("invalid configuration", d.Attr("detail"))
		}
		return model.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// newEnv selects the platform provider of the running system
func newEnv(cfg model.Config) (probe.Env, error) {
	provider, err := platform.New(runtime.GOOS, platform.Deps{
		Runner: command.NewExec(cfg.CommandTimeout()),
	})
	if err != nil {
		return probe.Env{}, fmt.Errorf("initializing %s platform: %w", runtime.GOOS, err)
	}
	return probe.NewEnv(provider, cfg), nil
}
