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
	"context"
	"fmt"
)

// IndexCmd indexes documents. Without file arguments it bootstraps the
// bundled knowledge of every persona; with arguments it uploads the
// named documents into one persona's learned index.
type IndexCmd struct {
	Persona  string   `short:"p" help:"Persona id receiving the uploads."`
	Category string   `help:"Category tag for the uploaded documents."`
	Paths    []string `arg:"" optional:"" type:"existingfile" help:"Documents to upload."`
}

func (c *IndexCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()

	if len(c.Paths) == 0 {
		if err := rt.service.Bootstrap(ctx); err != nil {
			return err
		}
		fmt.Println("Bundled knowledge indexed.")
		return nil
	}

	if c.Persona == "" {
		return fmt.Errorf("--persona is required when uploading documents")
	}
	if _, ok := cfg.Persona(c.Persona); !ok {
		return fmt.Errorf("unknown persona: %s", c.Persona)
	}

	total := 0
	for _, path := range c.Paths {
		count, err := rt.service.UploadKnowledge(ctx, c.Persona, path, c.Category)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks\n", path, count)
		total += count
	}
	fmt.Printf("Indexed %d chunks into %s.\n", total, c.Persona)
	return nil
}
