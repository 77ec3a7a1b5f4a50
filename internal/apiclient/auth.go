package apiclient

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// TokenProvider supplies bearer tokens for API authentication. The fixture
// layer fetches a token at scenario setup and installs it on the scenario's
// client via SetAuthToken.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ClientCredentialsProvider obtains tokens via the OAuth2 client-credentials
// grant. Tokens are cached until expiry and concurrent fetches are
// deduplicated, so many scenario setups can share one provider safely.
type ClientCredentialsProvider struct {
	conf *clientcredentials.Config

	mu     sync.RWMutex
	cached *oauth2.Token

	// singleflight group to deduplicate concurrent token fetches
	group singleflight.Group
}

// NewClientCredentialsProvider creates a provider for the given token
// endpoint and client credentials.
func NewClientCredentialsProvider(tokenURL, clientID, clientSecret string, scopes []string) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		},
	}
}

// Token returns a valid access token, fetching a fresh one when the cached
// token is missing or expired.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	// Check cache first with read lock
	p.mu.RLock()
	if p.cached.Valid() {
		token := p.cached.AccessToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	// Use singleflight to deduplicate concurrent fetches
	result, err, _ := p.group.Do("token", func() (interface{}, error) {
		// Double-check cache after acquiring the singleflight lock
		p.mu.RLock()
		if p.cached.Valid() {
			token := p.cached.AccessToken
			p.mu.RUnlock()
			return token, nil
		}
		p.mu.RUnlock()

		token, err := p.conf.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("client credentials token request failed: %w", err)
		}

		p.mu.Lock()
		p.cached = token
		p.mu.Unlock()

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

// StaticTokenProvider returns a fixed token. Used when the auth config
// carries a literal token instead of client credentials.
type StaticTokenProvider string

// Token returns the fixed token.
func (s StaticTokenProvider) Token(context.Context) (string, error) {
	return string(s), nil
}
