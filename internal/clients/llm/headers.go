package llm

import "strings"

const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
)

// Credentials maps a provider name to its API key.
type Credentials map[string]string

// Headers builds the auth and content headers a provider expects.
// The threads-style provider also needs its beta feature header.
func Headers(provider string, creds Credentials, contentType string) map[string]string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		p = ProviderOpenAI
	}
	if contentType == "" {
		contentType = "application/json"
	}
	h := map[string]string{"Content-Type": contentType}
	key := creds[p]
	switch p {
	case ProviderAzure:
		h["api-key"] = key
	case ProviderAnthropic:
		h["x-api-key"] = key
		h["anthropic-version"] = "2023-06-01"
	default:
		h["Authorization"] = "Bearer " + key
		h["OpenAI-Beta"] = "assistants=v2"
	}
	return h
}
