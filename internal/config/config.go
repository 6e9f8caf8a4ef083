// Package config loads threshold configuration from the waterfuse
// config file and applies command-line overrides. The file format is
// lines of "key value" with integer values; unknown keys and
// malformed lines are ignored so an old daemon keeps running on a
// newer file.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/waterfuse/internal/logic"
)

// DefaultPath is the config file the daemon reads at startup and on
// reload.
const DefaultPath = "/etc/waterfuse/waterfuse.conf"

// Built-in defaults, used when the file is missing or a key is absent.
const (
	DefaultClicksPerLitre = 450
	DefaultMaxLitres      = 200
	DefaultResetPeriod    = 600 * time.Second
	DefaultTimeLimit      = 900 * time.Second
)

// Default returns the built-in configuration.
func Default() logic.Config {
	return logic.Config{
		ClicksPerLitre: DefaultClicksPerLitre,
		MaxLitres:      DefaultMaxLitres,
		ResetPeriod:    DefaultResetPeriod,
		TimeLimit:      DefaultTimeLimit,
	}
}

// Load reads the config file at path on top of the defaults. A
// missing or unreadable file is not fatal: the defaults are returned
// together with the error so the caller can log it and carry on.
func Load(path string) (logic.Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	parse(f, &cfg)
	return cfg, nil
}

// parse applies recognized "key value" lines to cfg. Values must be
// positive integers; anything else leaves the key untouched.
func parse(r io.Reader, cfg *logic.Config) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		val, err := strconv.Atoi(fields[1])
		if err != nil || val <= 0 {
			continue
		}

		switch fields[0] {
		case "reset_period":
			cfg.ResetPeriod = time.Duration(val) * time.Second
		case "max_time":
			// Minutes in the file, seconds internally.
			cfg.TimeLimit = time.Duration(val) * time.Minute
		case "max_litres":
			cfg.MaxLitres = uint32(val)
		case "clicks_per_litre":
			cfg.ClicksPerLitre = uint32(val)
		case "verbosity":
			cfg.Verbosity = val
		}
	}
}

// Overrides carries command-line threshold overrides. A negative
// value means "not given". Verbosity is additive: each -v raises the
// file's verbosity by one, as the original flags did.
type Overrides struct {
	MaxLitres        int
	ClicksPerLitre   int
	TimeLimitMinutes int
	ResetPeriodSecs  int
	Verbosity        int
}

// NoOverrides returns an Overrides with every field unset.
func NoOverrides() Overrides {
	return Overrides{
		MaxLitres:        -1,
		ClicksPerLitre:   -1,
		TimeLimitMinutes: -1,
		ResetPeriodSecs:  -1,
	}
}

// Apply returns cfg with the overrides laid on top. Overrides survive
// config reloads — they are reapplied to every freshly loaded config.
func (o Overrides) Apply(cfg logic.Config) logic.Config {
	if o.MaxLitres > 0 {
		cfg.MaxLitres = uint32(o.MaxLitres)
	}
	if o.ClicksPerLitre > 0 {
		cfg.ClicksPerLitre = uint32(o.ClicksPerLitre)
	}
	if o.TimeLimitMinutes > 0 {
		cfg.TimeLimit = time.Duration(o.TimeLimitMinutes) * time.Minute
	}
	if o.ResetPeriodSecs > 0 {
		cfg.ResetPeriod = time.Duration(o.ResetPeriodSecs) * time.Second
	}
	cfg.Verbosity += o.Verbosity
	return cfg
}
