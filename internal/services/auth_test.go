package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

func TestOAuthTokenProvider(t *testing.T) {
	config := &oauth2.Config{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		Endpoint:     oauth2.Endpoint{TokenURL: "http://127.0.0.1:1/token"},
	}

	t.Run("without token", func(t *testing.T) {
		provider := NewOAuthTokenProvider(context.Background(), config, nil, nil)
		_, err := provider.AccessToken(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("valid token is returned without refresh", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "live", Expiry: time.Now().Add(time.Hour)}
		refreshed := false
		provider := NewOAuthTokenProvider(context.Background(), config, token, func(*oauth2.Token) { refreshed = true })

		got, err := provider.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "live" {
			t.Errorf("expected 'live', got %s", got)
		}
		if refreshed {
			t.Error("expected no refresh callback for a valid token")
		}
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}
		provider := NewOAuthTokenProvider(context.Background(), config, token, nil)

		_, err := provider.AccessToken(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SetToken", func(t *testing.T) {
		provider := NewOAuthTokenProvider(context.Background(), config, nil, nil)
		provider.SetToken(&oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)})

		got, err := provider.AccessToken(context.Background())
		if err != nil || got != "fresh" {
			t.Errorf("expected 'fresh', got %q (%v)", got, err)
		}

		provider.SetToken(nil)
		if _, err := provider.AccessToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after clearing, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		provider := NewOAuthTokenProvider(context.Background(), config, &oauth2.Token{AccessToken: "x"}, nil)
		if _, err := provider.AccessToken(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("StaticTokenProvider", func(t *testing.T) {
		if got, err := StaticTokenProvider("abc").AccessToken(context.Background()); err != nil || got != "abc" {
			t.Errorf("expected 'abc', got %q (%v)", got, err)
		}
		if _, err := StaticTokenProvider("").AccessToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			callbackCalled := false
			var capturedToken *oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callbackCalled = true
					capturedToken = token
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !callbackCalled {
				t.Error("expected callback to be called on first fetch")
			}
			if capturedToken == nil {
				t.Error("expected token to be captured")
			}
			if capturedToken.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %s", capturedToken.AccessToken)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			var capturedTokens []*oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "token1"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
					capturedTokens = append(capturedTokens, token)
				},
			}

			_, _ = source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if len(capturedTokens) != 2 {
				t.Errorf("expected 2 captured tokens, got %d", len(capturedTokens))
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "same_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: nil,
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			mockSource := &mockTokenSource{
				err: errors.New("token source error"),
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil {
				t.Fatal("expected error from source")
			}
			if !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("handles callback panic gracefully", func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Error("expected panic to be contained within callback")
				}
			}()

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					panic("callback panic")
				},
			}

			func() {
				defer func() {
					_ = recover()
				}()
				source.Token()
			}()
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
