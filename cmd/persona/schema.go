// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

// SchemaCmd emits the JSON Schema of the config file to stdout.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "open-persona Configuration Schema"
	schema.Description = "Configuration schema for the open-persona orchestration hub"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.Examples = []interface{}{
		map[string]interface{}{
			"data_dir": ".open-persona",
			"providers": map[string]interface{}{
				"default": map[string]interface{}{
					"provider": "openai",
					"model":    "gpt-4o-mini",
					"api_key":  "${OPENAI_API_KEY}",
				},
			},
			"personas": []interface{}{
				map[string]interface{}{
					"id":           "excel-pro",
					"name":         "Excel Pro",
					"specialty":    "spreadsheet",
					"instructions": "You are a spreadsheet expert.",
				},
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(schema)
}
