// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the YAML configuration shared by
// every subsystem: providers, embedder, vector store, retrieval,
// tools and personas.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// DataDir roots all persisted state (vector indices, marker file).
	DataDir string `yaml:"data_dir,omitempty" json:"data_dir,omitempty" jsonschema:"title=Data Directory,description=Root for persisted state,default=.open-persona"`

	// Log configures logging output.
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty" jsonschema:"title=Log,description=Logging configuration"`

	// Providers maps provider names to their configuration. The name is
	// referenced by default_provider and fallback_provider.
	Providers map[string]*LLMConfig `yaml:"providers,omitempty" json:"providers,omitempty" jsonschema:"title=Providers,description=Named LLM providers"`

	// DefaultProvider is tried first for every request.
	DefaultProvider string `yaml:"default_provider,omitempty" json:"default_provider,omitempty" jsonschema:"title=Default Provider,description=Provider tried first"`

	// FallbackProvider is retried once on quota or auth failures.
	FallbackProvider string `yaml:"fallback_provider,omitempty" json:"fallback_provider,omitempty" jsonschema:"title=Fallback Provider,description=Provider retried on quota/auth failure"`

	// Embedder configures the embedding backend.
	Embedder EmbedderConfig `yaml:"embedder,omitempty" json:"embedder,omitempty" jsonschema:"title=Embedder,description=Embedding backend"`

	// VectorStore configures the vector store backend.
	VectorStore VectorStoreConfig `yaml:"vector_store,omitempty" json:"vector_store,omitempty" jsonschema:"title=Vector Store,description=Vector store backend"`

	// Retrieval configures hybrid search and chunking.
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty" json:"retrieval,omitempty" jsonschema:"title=Retrieval,description=Hybrid search and chunking"`

	// Tools configures the tool registry and guardrails.
	Tools ToolsConfig `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools,description=Tool registry and guardrails"`

	// Personas lists the configured assistant personas.
	Personas []*PersonaConfig `yaml:"personas,omitempty" json:"personas,omitempty" jsonschema:"title=Personas,description=Assistant personas"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,description=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,description=Log format,enum=simple,enum=verbose,default=simple"`
	File   string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=File,description=Log file path (stderr when empty)"`
}

// SetDefaults applies defaults recursively.
func (c *Config) SetDefaults() {
	if c.DataDir == "" {
		c.DataDir = ".open-persona"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "simple"
	}

	if len(c.Providers) == 0 {
		// Zero-config path: a single provider detected from env
		c.Providers = map[string]*LLMConfig{
			"default": {},
		}
	}
	for _, provider := range c.Providers {
		provider.SetDefaults()
	}

	if c.DefaultProvider == "" {
		c.DefaultProvider = firstProviderName(c.Providers)
	}

	c.Embedder.SetDefaults()
	c.VectorStore.SetDefaults()
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = filepath.Join(c.DataDir, "vectors")
	}
	c.Retrieval.SetDefaults()
	c.Tools.SetDefaults()

	for _, persona := range c.Personas {
		persona.SetDefaults()
	}
}

// Validate checks the configuration recursively.
func (c *Config) Validate() error {
	for name, provider := range c.Providers {
		if err := provider.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}

	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return fmt.Errorf("default_provider %q is not a configured provider", c.DefaultProvider)
	}
	if c.FallbackProvider != "" {
		if _, ok := c.Providers[c.FallbackProvider]; !ok {
			return fmt.Errorf("fallback_provider %q is not a configured provider", c.FallbackProvider)
		}
		if c.FallbackProvider == c.DefaultProvider {
			return fmt.Errorf("fallback_provider must differ from default_provider")
		}
	}

	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	seen := make(map[string]bool)
	for _, persona := range c.Personas {
		if err := persona.Validate(); err != nil {
			return fmt.Errorf("persona: %w", err)
		}
		if seen[persona.ID] {
			return fmt.Errorf("duplicate persona id: %s", persona.ID)
		}
		seen[persona.ID] = true
	}

	return nil
}

// Persona returns the persona with the given id.
func (c *Config) Persona(id string) (*PersonaConfig, bool) {
	for _, persona := range c.Personas {
		if persona.ID == id {
			return persona, true
		}
	}
	return nil, false
}

// Load reads, env-expands, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	// Round-trip through YAML so expanded values decode with the same
	// type coercion rules as the original document
	rebuilt, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild config after expansion: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(rebuilt, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a zero-config Config suitable for local use.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func firstProviderName(providers map[string]*LLMConfig) string {
	if _, ok := providers["default"]; ok {
		return "default"
	}
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
