package config

import (
	"flag"
	"io"
)

// CLIFlags holds command-line overrides. Nil pointers mean "not set":
// only flags the user actually passed override the loaded config.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	Registry   *string
	NatsURL    *string
}

// ParseFlags parses command-line arguments (without the program name) into
// CLIFlags. Unknown flags are an error.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("chronotrack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	registry := fs.String("registry-url", "", "registry database DSN")
	natsURL := fs.String("nats-url", "", "NATS server URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "port", "p":
			flags.Port = port
		case "log-level":
			flags.LogLevel = logLevel
		case "registry-url":
			flags.Registry = registry
		case "nats-url":
			flags.NatsURL = natsURL
		}
	})

	return flags, nil
}

// LoadWithCLI loads configuration with the full hierarchy:
// defaults < YAML < ENV < CLI flags. It returns the resolved YAML path.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		return nil, "", err
	}

	applyCLI(cfg, flags)

	if err := validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, yamlPath, nil
}

// applyCLI overlays set flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.Registry != nil {
		cfg.Registry.DSN = *flags.Registry
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}
