package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/BusterWarn/mfind"
)

// envPrefix prefixes every environment variable the CLI reads.
const envPrefix = "MFIND_"

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"

	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is the resolved CLI configuration.
//
// Sources, lowest precedence first: DefaultConfig, the YAML file named by
// --config or MFIND_CONFIG, environment variables (MFIND_*, with values from
// --env-file filling in unset ones), and explicitly set flags.
type Config struct {
	Workers     int      `yaml:"workers"`
	Type        string   `yaml:"type"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	Color       string   `yaml:"color"`
	Hidden      bool     `yaml:"hidden"`
	Exclude     []string `yaml:"exclude"`
	ExcludeFrom string   `yaml:"exclude_from"`
	MetricsFile string   `yaml:"metrics_file"`
	Stats       bool     `yaml:"stats"`
	Trace       bool     `yaml:"trace"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   1,
		LogLevel:  "warn",
		LogFormat: formatAuto,
		Color:     colorAuto,
	}
}

// Validate checks every field once, before the search starts.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w, %d is not", mfind.ErrInvalidWorkers, c.Workers)
	}

	_, err := mfind.ParseEntryType(c.Type)
	if err != nil {
		return err
	}

	_, err = parseLevel(c.LogLevel)
	if err != nil {
		return err
	}

	switch c.LogFormat {
	case formatAuto, formatText, formatJSON:
	default:
		return fmt.Errorf("%w: log format %q (expected auto, text or json)", errInvalidConfig, c.LogFormat)
	}

	switch c.Color {
	case colorAuto, colorAlways, colorNever:
	default:
		return fmt.Errorf("%w: color %q (expected auto, always or never)", errInvalidConfig, c.Color)
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return level, fmt.Errorf("%w: log level %q", errInvalidConfig, s)
	}

	return level, nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// withEnvFile layers the values of a dotenv file under lookup. Variables
// already present in the environment win, as with godotenv.Load.
func withEnvFile(lookup lookupFunc, path string) (lookupFunc, error) {
	if path == "" {
		return lookup, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}

		v, ok := values[key]

		return v, ok
	}, nil
}

// loadFile decodes a YAML config over cfg. Unknown keys are rejected.
func loadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

// applyEnv overrides cfg with MFIND_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return "", false
		}

		return strings.TrimSpace(v), true
	}

	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sWORKERS=%q is not an integer", errInvalidConfig, envPrefix, v)
		}

		cfg.Workers = n
	}

	if v, ok := get("TYPE"); ok {
		cfg.Type = v
	}

	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}

	if v, ok := get("COLOR"); ok {
		cfg.Color = v
	}

	if v, ok := get("METRICS_FILE"); ok {
		cfg.MetricsFile = v
	}

	if v, ok := get("EXCLUDE_FROM"); ok {
		cfg.ExcludeFrom = v
	}

	if v, ok := get("EXCLUDE"); ok {
		cfg.Exclude = nil

		for p := range strings.SplitSeq(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Exclude = append(cfg.Exclude, p)
			}
		}
	}

	for name, dst := range map[string]*bool{"HIDDEN": &cfg.Hidden, "STATS": &cfg.Stats, "TRACE": &cfg.Trace} {
		v, ok := get(name)
		if !ok {
			continue
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", errInvalidConfig, envPrefix, name, v)
		}

		*dst = b
	}

	return nil
}

// cliFlags holds raw flag values. Only flags the user actually set override
// lower-precedence sources.
type cliFlags struct {
	typ         string
	workers     decimalInt
	configFile  string
	envFile     string
	logLevel    string
	logFormat   string
	color       string
	hidden      bool
	exclude     []string
	excludeFrom string
	stats       bool
	metricsFile string
	trace       bool
}

func registerFlags(fs *pflag.FlagSet, fl *cliFlags) {
	defaults := DefaultConfig()

	fl.workers = decimalInt(defaults.Workers)

	fs.StringVarP(&fl.typ, "type", "t", "", "type of target: d (directory), f (file) or l (link); omit to match any")
	fs.VarP(&fl.workers, "workers", "p", "number of worker threads, a positive decimal integer")
	fs.StringVar(&fl.configFile, "config", "", "YAML config file (also "+envPrefix+"CONFIG)")
	fs.StringVar(&fl.envFile, "env-file", "", "dotenv file with "+envPrefix+"* variables")
	fs.StringVar(&fl.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&fl.logFormat, "log-format", defaults.LogFormat, "log format on stderr: auto, text or json")
	fs.StringVar(&fl.color, "color", defaults.Color, "colorize matches: auto, always or never")
	fs.BoolVar(&fl.hidden, "hidden", false, "include entries whose name starts with a dot")
	fs.StringArrayVar(&fl.exclude, "exclude", nil, "gitignore-style pattern to prune (repeatable)")
	fs.StringVar(&fl.excludeFrom, "exclude-from", "", "file with gitignore-style patterns to prune")
	fs.BoolVar(&fl.stats, "stats", false, "print per-worker directory counts after the search")
	fs.StringVar(&fl.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	fs.BoolVar(&fl.trace, "trace", false, "write OpenTelemetry spans to stderr")
}

// loadConfig resolves the configuration from every source and validates it.
func loadConfig(fs *pflag.FlagSet, fl *cliFlags, lookup lookupFunc) (Config, error) {
	cfg := DefaultConfig()

	lookup, err := withEnvFile(lookup, fl.envFile)
	if err != nil {
		return Config{}, err
	}

	configFile := fl.configFile
	if configFile == "" {
		configFile, _ = lookup(envPrefix + "CONFIG")
	}

	if configFile != "" {
		err = loadFile(&cfg, configFile)
		if err != nil {
			return Config{}, err
		}
	}

	err = applyEnv(&cfg, lookup)
	if err != nil {
		return Config{}, err
	}

	err = applyFlags(fs, fl, &cfg)
	if err != nil {
		return Config{}, err
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFlags(fs *pflag.FlagSet, fl *cliFlags, cfg *Config) error {
	set := func(name string) bool {
		return fs.Changed(name)
	}

	if set("type") {
		// -t names one type; matching any type means leaving it out.
		switch fl.typ {
		case "", "any":
			return fmt.Errorf("%w: %q must be d, f or l", mfind.ErrInvalidType, fl.typ)
		}

		cfg.Type = fl.typ
	}

	if set("workers") {
		cfg.Workers = int(fl.workers)
	}

	if set("log-level") {
		cfg.LogLevel = fl.logLevel
	}

	if set("log-format") {
		cfg.LogFormat = fl.logFormat
	}

	if set("color") {
		cfg.Color = fl.color
	}

	if set("hidden") {
		cfg.Hidden = fl.hidden
	}

	if set("exclude") {
		cfg.Exclude = append(cfg.Exclude, fl.exclude...)
	}

	if set("exclude-from") {
		cfg.ExcludeFrom = fl.excludeFrom
	}

	if set("stats") {
		cfg.Stats = fl.stats
	}

	if set("metrics-file") {
		cfg.MetricsFile = fl.metricsFile
	}

	if set("trace") {
		cfg.Trace = fl.trace
	}

	return nil
}

// decimalInt is a pflag.Value that reads base-10 integers only, the way
// MFIND_WORKERS is read. A leading zero is not an octal prefix.
type decimalInt int

func (d *decimalInt) String() string { return strconv.Itoa(int(*d)) }

func (d *decimalInt) Type() string { return "int" }

func (d *decimalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: %q is not a decimal integer", errInvalidConfig, s)
	}

	*d = decimalInt(n)

	return nil
}
