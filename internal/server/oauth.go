package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// ErrInvalidState is returned when the callback state does not match the one the flow started with.
var ErrInvalidState = errors.New("invalid state parameter")

// OAuthResult is the outcome of one authorization code flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o OAuthResult) Error() error {
	return o.err
}

// Exchanger trades an authorization code for a token. [*oauth2.Config] satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// OAuthHandler serves the authorization code callback of the login flow.
//
// Only the first callback is processed. Its result is delivered once on [OAuthHandler.Result].
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	results   chan OAuthResult
	once      sync.Once
	mu        sync.Mutex
	hit       bool
}

// NewOAuthHandler creates a handler expecting state, which should be unguessable.
func NewOAuthHandler(exchanger Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		results:   make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the state, exchanges the code, and publishes the result.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.send(OAuthResult{err: ErrInvalidState})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(OAuthResult{err: fmt.Errorf("authorization failed: %s - %s", query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>spx: Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #fff; }
        h1 { color: #1DB954; }
    </style>
</head>
<body>
    <div>
        <h1>Spotify connected</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
