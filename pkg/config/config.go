package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/iasmc/pkg/cli"
	"modernc.org/libqbe"
)

// DefaultPoolSize is the number of virtual registers available to one
// compilation unit
const DefaultPoolSize = 31

type Feature int

const (
	FeatFloatImm Feature = iota
	FeatBlankLines
	FeatCount
)

type Warning int

const (
	WarnRegisterPressure Warning = iota
	WarnDivZero
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features      map[Feature]Info
	Warnings      map[Warning]Info
	FeatureMap    map[string]Feature
	WarningMap    map[string]Warning
	PoolSize      int
	BackendName   string
	BackendTarget string
	GOOS          string
	GOARCH        string
	Verbose       bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		PoolSize:    DefaultPoolSize,
		BackendName: "iasm",
	}

	features := map[Feature]Info{
		FeatFloatImm:   {"float-imm", false, "Lower float literals to LOAD with a float immediate."},
		FeatBlankLines: {"blank-lines", true, "Allow blank lines, trailing spaces and indentation between statements."},
	}

	warnings := map[Warning]Info{
		WarnRegisterPressure: {"register-pressure", true, "Warn when a statement needs most of the register pool at once."},
		WarnDivZero:          {"div-zero", true, "Warn on division by a literal zero."},
		WarnExtra:            {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the backend and, for QBE, the target ABI. selector has the
// form "backend" or "backend/target", e.g. "qbe/arm64_apple".
func (c *Config) SetTarget(goos, goarch, selector string) error {
	c.GOOS, c.GOARCH = goos, goarch

	backend, target, _ := strings.Cut(selector, "/")
	if backend == "" {
		backend = "iasm"
	}

	switch backend {
	case "iasm":
		if target != "" {
			return fmt.Errorf("the iasm backend takes no target, got '%s'", target)
		}
		c.BackendName, c.BackendTarget = backend, ""
	case "qbe":
		c.BackendName = backend
		if target == "" {
			c.BackendTarget = libqbe.DefaultTarget(goos, goarch)
			if c.Verbose {
				fmt.Fprintf(os.Stderr, "iasmc: info: no target specified, defaulting to host target '%s'\n", c.BackendTarget)
			}
		} else {
			c.BackendTarget = target
		}
		switch c.BackendTarget {
		case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		default:
			return fmt.Errorf("unsupported QBE target '%s'", c.BackendTarget)
		}
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: 'iasm', 'qbe'", backend)
	}
	return nil
}

// SetPoolSize changes the number of registers; it must stay in [1, 256]
func (c *Config) SetPoolSize(n int) error {
	if n < 1 || n > 256 {
		return fmt.Errorf("register pool size must be between 1 and 256, got %d", n)
	}
	c.PoolSize = n
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetAllWarnings enables or disables every warning at once
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}

// ApplyFlag applies a single -W/-F style flag such as "-Wno-div-zero" or
// "-Ffloat-imm". Unknown names are reported.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name, isWarning = strings.TrimPrefix(trimmed, "W"), true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if isWarning && name == "all" {
		c.SetAllWarnings(enable)
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers the -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed state of the flag groups created by
// SetupFlagGroups into the configuration. A -Wno-/-Fno- flag wins over the
// matching enable flag.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
