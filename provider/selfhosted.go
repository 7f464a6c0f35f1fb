package provider

import "net/http"

// SelfHostedConfig configures a self-hosted, unmetered provider (a local
// inference server, or a gateway in front of one) that speaks the same
// OpenAI-compatible wire format as Hosted but authenticates differently,
// or not at all.
type SelfHostedConfig struct {
	ProviderID string
	BaseURL    string
	// AuthToken is optional: many self-hosted inference servers run with
	// no authentication at all behind a private network boundary.
	AuthToken  string
	HTTPClient *http.Client
}

// NewSelfHosted creates a Provider for a self-hosted, OpenAI-compatible
// endpoint. Grounded on the teacher's self-hosted provider, which wraps
// the same OpenAI-compatible client used for hosted providers rather than
// reimplementing the wire format.
//
// It returns a *Hosted configured without requiring an API key, since the
// wire protocol and error handling are identical; only the authentication
// posture differs.
func NewSelfHosted(cfg SelfHostedConfig) *Hosted {
	return NewHosted(HostedConfig{
		ProviderID: cfg.ProviderID,
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.AuthToken,
		HTTPClient: cfg.HTTPClient,
	})
}
