package routerconfig

import (
	"fmt"

	"github.com/modelroute/llmrouter/balancer"

	"gopkg.in/yaml.v3"
)

// fileProviderConfig is the YAML shape of one provider entry.
type fileProviderConfig struct {
	ID       string  `yaml:"id"`
	ModelID  string  `yaml:"model_id"`
	Impl     string  `yaml:"impl"`
	RPMLimit int     `yaml:"rpm_limit"`
	TPMLimit int     `yaml:"tpm_limit"`
	Weight   float64 `yaml:"weight"`
}

type fileModelGroupConfig struct {
	Name           string               `yaml:"name"`
	Providers      []fileProviderConfig `yaml:"providers"`
	Strategy       string               `yaml:"strategy"`
	FallbackGroups []string             `yaml:"fallback_groups"`
}

// File is the on-disk shape LoadYAML parses. It covers only the scheduling
// topology (model groups, providers, cooldown); ambient collaborators
// (logger, metrics, token counter) are always wired in code, never loaded
// from a file, since they carry live connections and callbacks a YAML
// document cannot express.
type File struct {
	ModelGroups     []fileModelGroupConfig `yaml:"model_groups"`
	CooldownSeconds int                    `yaml:"cooldown_seconds"`
}

// LoadYAML parses data into Options. Pass the result to New alongside
// whatever ambient options (WithLogger, WithMetrics, WithTokenCounter, ...)
// the caller builds in code:
//
//	opts, err := routerconfig.LoadYAML(data)
//	cfg := routerconfig.New(append(opts, routerconfig.WithLogger(logger))...)
func LoadYAML(data []byte) ([]Option, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse router config: %w", err)
	}

	opts := make([]Option, 0, len(f.ModelGroups)+1)
	if f.CooldownSeconds > 0 {
		opts = append(opts, WithCooldownSeconds(f.CooldownSeconds))
	}
	for _, g := range f.ModelGroups {
		providers := make([]ProviderConfig, len(g.Providers))
		for i, p := range g.Providers {
			providers[i] = ProviderConfig{
				ID:       p.ID,
				ModelID:  p.ModelID,
				Impl:     p.Impl,
				RPMLimit: p.RPMLimit,
				TPMLimit: p.TPMLimit,
				Weight:   p.Weight,
			}
		}
		opts = append(opts, WithModelGroup(ModelGroupConfig{
			Name:           g.Name,
			Providers:      providers,
			Strategy:       balancer.Strategy(g.Strategy),
			FallbackGroups: g.FallbackGroups,
		}))
	}
	return opts, nil
}
