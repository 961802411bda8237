// Package resolver parses resolver command flags and runs one-shot stat
// resolutions from a JSON input document.
package resolver

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/louisbranch/statcore/internal/actor"
	"github.com/louisbranch/statcore/internal/platform/config"
	platformotel "github.com/louisbranch/statcore/internal/platform/otel"
	"github.com/louisbranch/statcore/internal/stat"
	"github.com/louisbranch/statcore/internal/stat/aggregator"
	"github.com/louisbranch/statcore/internal/stat/bucket"
	"github.com/louisbranch/statcore/internal/stat/cache"
	"github.com/louisbranch/statcore/internal/stat/caps"
	"github.com/louisbranch/statcore/internal/stat/registry"
	"github.com/louisbranch/statcore/internal/storage/sqlite"
	"github.com/louisbranch/statcore/internal/telemetry"
)

// Config holds resolver command configuration.
type Config struct {
	Input        string
	TelemetryDB  string        `env:"STATCORE_TELEMETRY_DB"`
	PolicyScript string        `env:"STATCORE_POLICY_SCRIPT"`
	Workers      int           `env:"STATCORE_WORKERS" envDefault:"4"`
	CacheTTL     time.Duration `env:"STATCORE_CACHE_TTL" envDefault:"30s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Input, "input", cfg.Input, "Path to the JSON resolution document")
	fs.StringVar(&cfg.TelemetryDB, "telemetry-db", cfg.TelemetryDB, "SQLite path for resolution telemetry (optional)")
	fs.StringVar(&cfg.PolicyScript, "policy-script", cfg.PolicyScript, "Lua script defining merge_caps for the custom cap policy (optional)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent subsystem calls per resolution")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Snapshot cache time to live")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// document is the JSON input: one actor, the cap layer configuration and
// a set of static subsystems with their contributions and cap proposals.
type document struct {
	Actor struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Version int64  `json:"version"`
	} `json:"actor"`
	Policy string `json:"policy"`
	Layers []struct {
		Name           string `json:"name"`
		Priority       int64  `json:"priority"`
		Mode           string `json:"mode"`
		SoftExceedable bool   `json:"soft_exceedable"`
	} `json:"layers"`
	Subsystems []struct {
		ID            string              `json:"id"`
		Priority      int64               `json:"priority"`
		Contributions []stat.Contribution `json:"contributions"`
		Caps          []stat.CapProposal  `json:"caps"`
	} `json:"subsystems"`
	Derived []string `json:"derived"`
}

// staticSubsystem serves a fixed output, letting the command resolve
// documents without live game systems.
type staticSubsystem struct {
	id       string
	priority int64
	output   *stat.SubsystemOutput
}

func (s *staticSubsystem) SystemID() string { return s.id }
func (s *staticSubsystem) Priority() int64  { return s.priority }
func (s *staticSubsystem) Contribute(ctx context.Context, _ *actor.Actor) (*stat.SubsystemOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.output, nil
}

// Run resolves the input document and writes the snapshot JSON to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.Input == "" {
		return fmt.Errorf("input document is required")
	}

	shutdown, err := platformotel.Setup(ctx, "statcore-resolver")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	raw, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("read input document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse input document: %w", err)
	}
	if doc.Actor.ID == "" {
		return fmt.Errorf("input document: actor id is required")
	}
	if doc.Actor.Version <= 0 {
		doc.Actor.Version = 1
	}

	provider, err := buildCapsProvider(doc, cfg.PolicyScript)
	if err != nil {
		return err
	}

	reg := registry.New()
	for _, s := range doc.Subsystems {
		output := stat.NewSubsystemOutput(s.ID, s.Priority)
		for _, c := range s.Contributions {
			if c.System == "" {
				c.System = s.ID
			}
			output.AddContribution(c)
		}
		for _, p := range s.Caps {
			output.AddCap(p)
		}
		if err := reg.Register(&staticSubsystem{id: s.ID, priority: s.Priority, output: output}); err != nil {
			return fmt.Errorf("register subsystem %q: %w", s.ID, err)
		}
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryDB != "" {
		store, err := sqlite.Open(cfg.TelemetryDB)
		if err != nil {
			return fmt.Errorf("open telemetry store: %w", err)
		}
		defer store.Close()
		emitter = telemetry.New(store)
	}

	derived := make(map[string]bool, len(doc.Derived))
	for _, d := range doc.Derived {
		derived[d] = true
	}

	table := bucket.NewTable()
	if err := table.EnableExtended(); err != nil {
		return fmt.Errorf("enable extended buckets: %w", err)
	}

	ag, err := aggregator.New(reg, provider, table, cache.NewMemory(0), aggregator.Options{
		Workers:  cfg.Workers,
		CacheTTL: cfg.CacheTTL,
		Classifier: func(dimension string) aggregator.StatClass {
			if derived[dimension] {
				return aggregator.ClassDerived
			}
			return aggregator.ClassPrimary
		},
		Emitter: emitter,
	})
	if err != nil {
		return fmt.Errorf("build aggregator: %w", err)
	}

	snap, err := ag.Resolve(ctx, &actor.Actor{
		ID:      doc.Actor.ID,
		Name:    doc.Actor.Name,
		Version: doc.Actor.Version,
	})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func buildCapsProvider(doc document, policyScript string) (*caps.Provider, error) {
	layers := make([]caps.Layer, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		layers = append(layers, caps.Layer{
			Name:           l.Name,
			Priority:       l.Priority,
			Mode:           stat.CapMode(l.Mode),
			SoftExceedable: l.SoftExceedable,
		})
	}

	policy := caps.AcrossPolicy(doc.Policy)
	if policy == "" {
		policy = caps.PolicyStrict
	}

	var opts []caps.Option
	if policyScript != "" {
		merge, err := caps.LoadLuaPolicy(policyScript)
		if err != nil {
			return nil, fmt.Errorf("load policy script: %w", err)
		}
		opts = append(opts, caps.WithMergeFunc(merge))
		policy = caps.PolicyCustom
	}

	provider, err := caps.NewProvider(layers, policy, opts...)
	if err != nil {
		return nil, fmt.Errorf("build caps provider: %w", err)
	}
	return provider, nil
}
