package llm

import (
	"cmp"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouter speaks the OpenAI chat API, so it runs on OpenAIProvider with
// its own base URL and the attribution headers OpenRouter lists calls under.
const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.5-flash"

	openRouterReferer = "https://github.com/deutschbot/deutschbot"
	openRouterTitle   = "deutschbot"
)

// NewOpenRouterProvider returns an OpenAIProvider that talks to OpenRouter.
// Model IDs carry the vendor ("google/gemini-2.5-flash") and are sent as
// given; the OpenAI friendly names do not apply.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	model := cmp.Or(cfg.Model, defaultOpenRouterModel)
	if !strings.Contains(model, "/") {
		return nil, fmt.Errorf("openrouter model %q has no vendor prefix, e.g. %s", model, defaultOpenRouterModel)
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = cmp.Or(cfg.BaseURL, defaultOpenRouterBaseURL)
	conf.HTTPClient = &http.Client{Transport: attribution{next: http.DefaultTransport}}

	return &OpenAIProvider{client: openai.NewClientWithConfig(conf), model: model}, nil
}

// attribution adds OpenRouter's app headers to every request.
type attribution struct {
	next http.RoundTripper
}

func (a attribution) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("HTTP-Referer", openRouterReferer)
	r.Header.Set("X-Title", openRouterTitle)
	return a.next.RoundTrip(r)
}
