package crashdump

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

// minSecretLength is the minimum length for a value to be considered a secret.
const minSecretLength = 16

const redactedValue = "[REDACTED]"

// sensitivePatterns match keys whose values are always redacted.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)auth`),
	regexp.MustCompile(`(?i)api[-_]?key`),
}

// secretPrefixes mark values that look like credentials wherever they appear.
var secretPrefixes = []string{
	"glpat-",  // GitLab personal access token
	"gldt-",   // GitLab deploy token
	"glptt-",  // GitLab pipeline trigger token
	"AKIA",    // AWS access key id
	"ASIA",    // AWS temporary access key id
	"Bearer ", // bearer tokens
}

// Sanitizer redacts secrets from configuration snapshots.
type Sanitizer struct{}

// NewSanitizer creates a new config sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// SanitizeConfig converts cfg to a generic map without secrets. The remote
// token is excluded from JSON entirely, so only unexpected placements of
// credentials are caught here.
func (s *Sanitizer) SanitizeConfig(cfg *config.Config) map[string]any {
	if cfg == nil {
		return nil
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return map[string]any{"error": "failed to serialize config"}
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"error": "failed to deserialize config"}
	}

	s.sanitizeMap(result)

	return result
}

func (s *Sanitizer) sanitizeMap(m map[string]any) {
	for key, value := range m {
		if isSensitiveKey(key) {
			m[key] = redactedValue

			continue
		}

		switch v := value.(type) {
		case map[string]any:
			s.sanitizeMap(v)
		case []any:
			s.sanitizeSlice(v)
		case string:
			m[key] = redactString(v)
		}
	}
}

func (s *Sanitizer) sanitizeSlice(slice []any) {
	for i, value := range slice {
		switch v := value.(type) {
		case map[string]any:
			s.sanitizeMap(v)
		case []any:
			s.sanitizeSlice(v)
		case string:
			slice[i] = redactString(v)
		}
	}
}

func isSensitiveKey(key string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(key) {
			return true
		}
	}

	return false
}

// redactString hides secret-looking values and credentials embedded in URLs.
func redactString(value string) string {
	if len(value) >= minSecretLength {
		for _, prefix := range secretPrefixes {
			if strings.HasPrefix(value, prefix) {
				return redactedValue
			}
		}
	}

	return redactURLUserinfo(value)
}

var userinfoPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@]+@`)

func redactURLUserinfo(value string) string {
	return userinfoPattern.ReplaceAllString(value, "${1}"+redactedValue+"@")
}
