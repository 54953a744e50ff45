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
	"errors"
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/httpclient"
)

// ErrorCategory classifies surviving provider errors at the boundary.
type ErrorCategory string

const (
	ErrorQuota   ErrorCategory = "quota"
	ErrorNetwork ErrorCategory = "network"
	ErrorGeneric ErrorCategory = "generic"
)

// quotaMarkers identify quota, rate limit and auth failures by message
// content, since providers do not agree on structured error codes.
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"429",
	"401",
	"403",
	"exhausted",
}

var networkMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"dial tcp",
	"eof",
	"broken pipe",
}

// IsQuotaOrAuth reports whether an error looks like a quota, rate
// limit or auth failure, the shapes that trigger the one-shot fallback
// provider retry.
func IsQuotaOrAuth(err error) bool {
	if err == nil {
		return false
	}
	var retryable *httpclient.RetryableError
	if errors.As(err, &retryable) && retryable.IsRateLimited() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Categorize maps a surviving provider error to a user-facing category.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ErrorGeneric
	}
	if IsQuotaOrAuth(err) {
		return ErrorQuota
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return ErrorNetwork
		}
	}
	return ErrorGeneric
}

// UserFacingMessage replaces a provider error with the persona's
// templated message for its category. Raw provider text never reaches
// the user.
func UserFacingMessage(persona *config.PersonaConfig, err error) string {
	messages := config.ErrorMessages{}
	if persona != nil {
		messages = persona.ErrorMessages
	}
	if messages.Quota == "" || messages.Network == "" || messages.Generic == "" {
		fallback := &config.PersonaConfig{ID: "fallback"}
		fallback.SetDefaults()
		if messages.Quota == "" {
			messages.Quota = fallback.ErrorMessages.Quota
		}
		if messages.Network == "" {
			messages.Network = fallback.ErrorMessages.Network
		}
		if messages.Generic == "" {
			messages.Generic = fallback.ErrorMessages.Generic
		}
	}

	switch Categorize(err) {
	case ErrorQuota:
		return messages.Quota
	case ErrorNetwork:
		return messages.Network
	default:
		return messages.Generic
	}
}
