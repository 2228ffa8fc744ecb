package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthTokenProvider implements [TokenProvider] from a persisted OAuth2 token, refreshing it when expired.
type OAuthTokenProvider struct {
	ctx       context.Context
	config    *oauth2.Config
	onRefresh func(*oauth2.Token)

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewOAuthTokenProvider builds a provider for token. A nil token yields a provider whose
// AccessToken always fails with [shared.ErrNotAuthenticated] until [OAuthTokenProvider.SetToken] is called.
//
// ctx is used for refresh requests and may carry an [oauth2.HTTPClient].
func NewOAuthTokenProvider(ctx context.Context, config *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token)) *OAuthTokenProvider {
	p := &OAuthTokenProvider{ctx: context.WithoutCancel(ctx), config: config, onRefresh: onRefresh}
	if token != nil {
		p.source = p.newSource(token)
	}
	return p
}

func (p *OAuthTokenProvider) newSource(token *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(token, &refreshableTokenSource{
		source:   p.config.TokenSource(p.ctx, token),
		callback: p.onRefresh,
		last:     token.AccessToken,
	})
}

// SetToken replaces the current token, e.g. after an authorization code exchange.
func (p *OAuthTokenProvider) SetToken(token *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token == nil {
		p.source = nil
		return
	}
	p.source = p.newSource(token)
}

// AccessToken returns a valid access token.
func (p *OAuthTokenProvider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	source := p.source
	p.mu.Unlock()

	if source == nil {
		return "", fmt.Errorf("%w: no saved token, run 'spx auth login'", shared.ErrNotAuthenticated)
	}

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", shared.ErrNotAuthenticated)
	}
	return token.AccessToken, nil
}

// refreshableTokenSource reports every token that differs from the last one it handed out.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.notify(token)
	}
	return token, nil
}

func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	defer func() { _ = recover() }()
	r.callback(token)
}

// StaticTokenProvider returns a fixed access token.
type StaticTokenProvider string

func (s StaticTokenProvider) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", shared.ErrNotAuthenticated
	}
	return string(s), nil
}
