// Package config holds the runtime configuration surface: bridge source,
// guard and virtualization flags, the reasoner mode, namespace bindings,
// and run limits. Loaded from YAML; every knob has a default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veldt/internal/bridge"
)

// Config is the complete veldt configuration.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
}

// RunConfig configures program entry and step limits.
type RunConfig struct {
	EntryClass  string `yaml:"entry_class"`
	EntryMethod string `yaml:"entry_method"`
	// MaxSteps bounds a run command; 0 means unbounded.
	MaxSteps int `yaml:"max_steps"`
}

// SourceConfig enables triple sources.
type SourceConfig struct {
	Heap             bool `yaml:"heap"`
	StaticTable      bool `yaml:"static_table"`
	CoreVocabulary   bool `yaml:"core_vocabulary"`
	ExternalOntology bool `yaml:"external_ontology"`
}

// PushdownConfig enables per-source filter pushdown or lazy answering.
type PushdownConfig struct {
	Heap        bool `yaml:"heap"`
	StaticTable bool `yaml:"static_table"`
}

// BridgeConfig configures the semantic bridge for a run.
type BridgeConfig struct {
	Sources         SourceConfig      `yaml:"sources"`
	Guards          PushdownConfig    `yaml:"guards"`
	Virtualization  PushdownConfig    `yaml:"virtualization"`
	ReasonerMode    string            `yaml:"reasoner_mode"`
	DomainNamespace string            `yaml:"domain_namespace"`
	Prefixes        map[string]string `yaml:"prefixes"`
	OntologyPath    string            `yaml:"ontology_path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no file is given: heap,
// static table, and core vocabulary lifted; no pushdown; reasoner off.
func Default() Config {
	return Config{
		Run: RunConfig{
			EntryClass:  "Main",
			EntryMethod: "main",
		},
		Bridge: BridgeConfig{
			Sources: SourceConfig{
				Heap:           true,
				StaticTable:    true,
				CoreVocabulary: true,
			},
			ReasonerMode: string(bridge.ReasonerOff),
		},
	}
}

// Load reads a YAML config file over the defaults. Environment variables
// are applied last and win over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides applies VELDT_* environment variables on top of the
// loaded file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VELDT_ENTRY_CLASS"); v != "" {
		c.Run.EntryClass = v
	}
	if v := os.Getenv("VELDT_ENTRY_METHOD"); v != "" {
		c.Run.EntryMethod = v
	}
	if v := os.Getenv("VELDT_REASONER_MODE"); v != "" {
		c.Bridge.ReasonerMode = v
	}
	if v := os.Getenv("VELDT_ONTOLOGY"); v != "" {
		c.Bridge.OntologyPath = v
	}
	if v := os.Getenv("VELDT_DOMAIN_NAMESPACE"); v != "" {
		c.Bridge.DomainNamespace = v
	}
}

// Validate rejects malformed settings before any step runs.
func (c Config) Validate() error {
	if !bridge.ReasonerMode(c.Bridge.ReasonerMode).Valid() {
		return fmt.Errorf("bridge.reasoner_mode: unknown mode %q", c.Bridge.ReasonerMode)
	}
	if c.Run.EntryClass == "" || c.Run.EntryMethod == "" {
		return fmt.Errorf("run.entry_class and run.entry_method must be set")
	}
	if c.Run.MaxSteps < 0 {
		return fmt.Errorf("run.max_steps must be >= 0")
	}
	return nil
}

// Settings converts the bridge section to the TripleSettings handed to
// every bridge call.
func (b BridgeConfig) Settings() bridge.Settings {
	return bridge.Settings{
		Sources: bridge.SourceFlags{
			Heap:             b.Sources.Heap,
			StaticTable:      b.Sources.StaticTable,
			CoreVocabulary:   b.Sources.CoreVocabulary,
			ExternalOntology: b.Sources.ExternalOntology,
		},
		Guards: bridge.PushdownFlags{
			Heap:        b.Guards.Heap,
			StaticTable: b.Guards.StaticTable,
		},
		Virtualization: bridge.PushdownFlags{
			Heap:        b.Virtualization.Heap,
			StaticTable: b.Virtualization.StaticTable,
		},
		ReasonerMode: bridge.ReasonerMode(b.ReasonerMode),
	}
}
