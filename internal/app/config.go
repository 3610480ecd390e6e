package app

import (
	"errors"
	"fmt"
	"slices"
)

// Commands understood by the app.
const (
	CommandValidate = "validate"
	CommandExecute  = "execute"
	CommandPreview  = "preview"
)

// Commands lists every command in usage order.
var Commands = []string{CommandValidate, CommandExecute, CommandPreview}

// Output formats for execution results.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command      string
	SpecLocation string // file path, "-" or s3://bucket/key
	ConfigPath   string // hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	RequestID string
	DryRun    bool
	Extract   bool
	HostURL   string // overrides host.url from the config file
	Output    string
	Plain     bool // preview as text instead of an interactive screen
}

func NewConfig(cfg Config) (*Config, error) {
	if !slices.Contains(Commands, cfg.Command) {
		return nil, fmt.Errorf("unknown command %q: must be one of %v", cfg.Command, Commands)
	}
	if cfg.SpecLocation == "" {
		return nil, errors.New("SpecLocation is a required configuration field and cannot be empty")
	}
	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	if cfg.Output != OutputText && cfg.Output != OutputJSON {
		return nil, fmt.Errorf("invalid output %q: must be 'text' or 'json'", cfg.Output)
	}
	return &cfg, nil
}
