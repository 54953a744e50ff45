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

package rag

import "sort"

// FuseRRF merges ranked result lists with reciprocal rank fusion.
// Each appearance of an ID contributes 1/(k + rank + 1) with rank
// counted from 0; a document ranked in several lists accumulates
// the contributions. Fused scores replace the input scores and are
// only comparable within this call.
func FuseRRF(k int, lists ...[]SearchResult) []SearchResult {
	if k <= 0 {
		k = 60
	}

	type fused struct {
		result SearchResult
		score  float64
	}
	byID := make(map[string]*fused)
	var order []string

	for _, list := range lists {
		for rank, result := range list {
			contribution := 1.0 / float64(k+rank+1)
			if f, ok := byID[result.ID]; ok {
				f.score += contribution
				continue
			}
			byID[result.ID] = &fused{result: result, score: contribution}
			order = append(order, result.ID)
		}
	}

	out := make([]SearchResult, 0, len(order))
	for _, id := range order {
		f := byID[id]
		f.result.Score = float32(f.score)
		out = append(out, f.result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return out
}
