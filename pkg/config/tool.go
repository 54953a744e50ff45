package config

import "fmt"

// ToolsConfig configures the tool registry and its guardrails.
type ToolsConfig struct {
	// Enabled tool names. Empty means all built-in tools.
	Enabled []string `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enabled tool names (empty = all built-ins)"`

	// WorkDir roots relative paths for file tools.
	WorkDir string `yaml:"work_dir,omitempty" json:"work_dir,omitempty" jsonschema:"title=Work Directory,description=Root for file tool paths"`

	// MaxCallsPerTurn caps tool invocations in a single orchestration turn.
	MaxCallsPerTurn int `yaml:"max_calls_per_turn,omitempty" json:"max_calls_per_turn,omitempty" jsonschema:"title=Max Calls Per Turn,description=Tool call ceiling per turn,minimum=1,default=10"`

	// MaxWriteBytes caps the payload of a single write operation.
	MaxWriteBytes int `yaml:"max_write_bytes,omitempty" json:"max_write_bytes,omitempty" jsonschema:"title=Max Write Bytes,description=Max bytes per write,minimum=1,default=1048576"`

	// BlockedPaths are absolute path prefixes file tools must never touch.
	// System and credential directories are always blocked in addition.
	BlockedPaths []string `yaml:"blocked_paths,omitempty" json:"blocked_paths,omitempty" jsonschema:"title=Blocked Paths,description=Additional blocked path prefixes"`

	// FileTimeout in seconds for file operations.
	FileTimeout int `yaml:"file_timeout,omitempty" json:"file_timeout,omitempty" jsonschema:"title=File Timeout,description=File op timeout seconds,default=10"`

	// SpreadsheetTimeout in seconds for spreadsheet operations.
	SpreadsheetTimeout int `yaml:"spreadsheet_timeout,omitempty" json:"spreadsheet_timeout,omitempty" jsonschema:"title=Spreadsheet Timeout,description=Spreadsheet op timeout seconds,default=30"`

	// MCP configures optional external tool servers.
	MCP []MCPServerConfig `yaml:"mcp,omitempty" json:"mcp,omitempty" jsonschema:"title=MCP Servers,description=External MCP tool servers"`
}

// MCPServerConfig configures one external MCP tool server.
type MCPServerConfig struct {
	Name string `yaml:"name" json:"name" jsonschema:"title=Name,description=Server name (prefixes tool names)"`
	URL  string `yaml:"url" json:"url" jsonschema:"title=URL,description=Streamable HTTP endpoint"`
}

func (c *ToolsConfig) SetDefaults() {
	if c.MaxCallsPerTurn == 0 {
		c.MaxCallsPerTurn = 10
	}
	if c.MaxWriteBytes == 0 {
		c.MaxWriteBytes = 1 << 20
	}
	if c.FileTimeout == 0 {
		c.FileTimeout = 10
	}
	if c.SpreadsheetTimeout == 0 {
		c.SpreadsheetTimeout = 30
	}
}

func (c *ToolsConfig) Validate() error {
	if c.MaxCallsPerTurn < 1 {
		return fmt.Errorf("max_calls_per_turn must be at least 1, got %d", c.MaxCallsPerTurn)
	}
	for _, server := range c.MCP {
		if server.Name == "" || server.URL == "" {
			return fmt.Errorf("mcp server entries require name and url")
		}
	}
	return nil
}
