package config

import "fmt"

// PersonaConfig defines one assistant persona: its instructions, the
// knowledge it indexes, and the user-facing messages shown when its
// backends fail.
type PersonaConfig struct {
	// ID is the stable persona identifier used in index names.
	ID string `yaml:"id" json:"id" jsonschema:"title=ID,description=Stable persona identifier"`

	// Name is the display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Display name"`

	// Instructions is the persona system prompt.
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty" jsonschema:"title=Instructions,description=Persona system prompt"`

	// Specialty hints the intent classifier when no pattern matches.
	Specialty string `yaml:"specialty,omitempty" json:"specialty,omitempty" jsonschema:"title=Specialty,description=Domain specialty (spreadsheet, presentation, word-processor, markup)"`

	// Categories restrict which knowledge categories this persona searches.
	Categories []string `yaml:"categories,omitempty" json:"categories,omitempty" jsonschema:"title=Categories,description=Knowledge categories"`

	// KnowledgeDir holds bundled documents indexed at bootstrap.
	KnowledgeDir string `yaml:"knowledge_dir,omitempty" json:"knowledge_dir,omitempty" jsonschema:"title=Knowledge Directory,description=Bundled knowledge documents"`

	// ErrorMessages are user-facing replacements for backend failures.
	ErrorMessages ErrorMessages `yaml:"error_messages,omitempty" json:"error_messages,omitempty" jsonschema:"title=Error Messages,description=User-facing failure messages"`
}

// ErrorMessages carries the persona-voiced messages substituted for raw
// provider errors.
type ErrorMessages struct {
	Quota   string `yaml:"quota,omitempty" json:"quota,omitempty" jsonschema:"title=Quota,description=Shown when all providers are out of quota"`
	Network string `yaml:"network,omitempty" json:"network,omitempty" jsonschema:"title=Network,description=Shown on connectivity failures"`
	Generic string `yaml:"generic,omitempty" json:"generic,omitempty" jsonschema:"title=Generic,description=Shown on any other failure"`
}

func (c *PersonaConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.ErrorMessages.Quota == "" {
		c.ErrorMessages.Quota = "I'm temporarily over capacity. Please try again in a little while."
	}
	if c.ErrorMessages.Network == "" {
		c.ErrorMessages.Network = "I couldn't reach my language model. Please check the connection and try again."
	}
	if c.ErrorMessages.Generic == "" {
		c.ErrorMessages.Generic = "Something went wrong while generating a response. Please try again."
	}
}

func (c *PersonaConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("persona id is required")
	}
	return nil
}
