// MCP server configuration.

package mcp

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerConfig describes how to launch one MCP server.
type ServerConfig struct {
	// ID namespaces the server's tools (exposed as "<id>__<tool>").
	ID string `json:"id"`

	// Command and Args launch the server process.
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`

	// Env entries (KEY=VALUE) appended to the process environment.
	Env []string `json:"env,omitempty"`

	// Enabled servers are launched; disabled ones are skipped.
	Enabled bool `json:"enabled"`
}

// Validate checks required fields.
func (c *ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("mcp server config missing id")
	}
	if c.Command == "" {
		return fmt.Errorf("mcp server %q missing command", c.ID)
	}
	return nil
}

// LoadConfigs reads a JSON file containing a list of server configs.
func LoadConfigs(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mcp config: %w", err)
	}

	var configs []ServerConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}

	for i := range configs {
		if err := configs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return configs, nil
}
