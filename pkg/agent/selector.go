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

package agent

import (
	"fmt"
	"sort"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

// Selection names the provider entry and model chosen for a turn.
type Selection struct {
	Provider string
	Model    string
	Reason   string
}

// PlaceholderProvider marks a selection with no usable provider. The
// turn proceeds and fails at the model call, so the failure reaches
// the user through the normal error surface instead of a local panic.
const PlaceholderProvider = "unconfigured"

// preferredProviders orders provider types by cost, cheapest first.
var preferredProviders = []config.LLMProvider{
	config.LLMProviderOpenAI,
	config.LLMProviderAnthropic,
	config.LLMProviderOpenAICompatible,
}

// SelectModel picks the cheapest capable provider for an intent. The
// policy is intent-independent today: every category runs fine on the
// mini model families, so cost decides.
func SelectModel(intent Intent, providers map[string]*config.LLMConfig) Selection {
	names := make([]string, 0, len(providers))
	for name, cfg := range providers {
		if cfg != nil && cfg.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, wanted := range preferredProviders {
		for _, name := range names {
			cfg := providers[name]
			if cfg.Provider != wanted {
				continue
			}
			return Selection{
				Provider: name,
				Model:    cfg.Model,
				Reason:   fmt.Sprintf("cheapest configured provider (%s) for %s", cfg.Provider, intent.Category),
			}
		}
	}

	return Selection{
		Provider: PlaceholderProvider,
		Model:    "none",
		Reason:   "no provider configured",
	}
}
