// This file maps the CLI context to the launcher config struct.

package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-forks/genesis"
	"github.com/rony4d/go-opera-forks/integration"
)

// Config aggregates everything the launcher needs.
type Config struct {
	Network NetworkConfig
	Query   QueryConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	HTTP    HTTPConfig
}

type NetworkConfig struct {
	GenesisPath string           // set when the schedule comes from a file
	Preset      string           // set when the schedule comes from a built-in preset
	Genesis     *genesis.Genesis // loaded consensus section
}

type QueryConfig struct {
	Heights            []idx.Block
	ContractValidators []common.Address
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string
}

type MetricsConfig struct {
	Enabled bool
}

type HTTPConfig struct {
	Addr string
}

func defaultConfig() Config {
	d := DefaultConfig()
	heights := make([]idx.Block, len(d.Query.Heights))
	for i, h := range d.Query.Heights {
		heights[i] = idx.Block(h)
	}
	return Config{
		Network: NetworkConfig{Preset: d.Network.Preset},
		Query:   QueryConfig{Heights: heights},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
			SentryDSN: d.Logging.SentryDSN,
		},
		Metrics: MetricsConfig{Enabled: d.Metrics.Enable},
		HTTP:    HTTPConfig{Addr: d.HTTP.Addr},
	}
}

// MakeAllConfigs merges defaults, the selected genesis (file or preset), then
// CLI overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if ctx.IsSet("genesis") && ctx.IsSet("preset") {
		return cfg, errors.New("--genesis and --preset are mutually exclusive")
	}
	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}

	if cfg.Network.GenesisPath != "" {
		g, err := genesis.Load(cfg.Network.GenesisPath)
		if err != nil {
			return cfg, err
		}
		cfg.Network.Genesis = g
		cfg.Network.Preset = ""
		return cfg, nil
	}

	p, err := integration.GetPresetByName(cfg.Network.Preset)
	if err != nil {
		return cfg, err
	}
	cfg.Network.Genesis = p.Genesis
	return cfg, nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.IsSet("genesis") {
		cfg.Network.GenesisPath = resolvePath(ctx.String("genesis"))
	}
	if ctx.IsSet("preset") {
		cfg.Network.Preset = ctx.String("preset")
	}

	if ctx.IsSet("height") {
		heights, err := parseHeights(ctx.String("height"))
		if err != nil {
			return err
		}
		cfg.Query.Heights = heights
	}
	if ctx.IsSet("contract.validators") {
		addrs, err := parseAddresses(ctx.String("contract.validators"))
		if err != nil {
			return err
		}
		cfg.Query.ContractValidators = addrs
	}

	if ctx.IsSet("log.format") {
		cfg.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("sentry.dsn") {
		cfg.Logging.SentryDSN = ctx.String("sentry.dsn")
	}
	if ctx.IsSet("metrics") {
		cfg.Metrics.Enabled = ctx.Bool("metrics")
	}
	if ctx.IsSet("http.addr") {
		cfg.HTTP.Addr = ctx.String("http.addr")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func parseHeights(raw string) ([]idx.Block, error) {
	parts := splitCSV(raw)
	heights := make([]idx.Block, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --height %q: %w", p, err)
		}
		heights = append(heights, idx.Block(n))
	}
	return heights, nil
}

func parseAddresses(raw string) ([]common.Address, error) {
	parts := splitCSV(raw)
	addrs := make([]common.Address, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid --contract.validators address %q", p)
		}
		addrs = append(addrs, common.HexToAddress(p))
	}
	return addrs, nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
