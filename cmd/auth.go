package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow and saves the token to the config file.
//
// Starts a local HTTP server for the callback, opens the browser for user authorization, and exchanges
// the code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	spotify, tokens, err := r.client()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, spotify)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	tokens.SetToken(token)

	r.writePlainln("%s", ui.Styles.OK("Authorization successful"))
	r.writePlain("%s\n\n", ui.Styles.OK("Tokens saved to %s", r.configPath))
	r.writePlain("You can now use: spx sync playlists\n")
	return nil
}

// doOAuth runs a single authorization round trip against the callback server.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state := shared.GenerateID()
	authURL := oauthSrv.GetAuthURL(state)

	oauthHandler := server.NewOAuthHandler(oauthSrv.OAuthConfig(), state)
	router := server.NewRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	ready := make(chan string, 1)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(ctx, r.config.Server.Addr(), router, r.logger, ready)
	}()

	select {
	case addr := <-ready:
		r.logger.Debug("OAuth callback server ready", "addr", addr)
	case err := <-serverErrors:
		return nil, err
	}

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("%s", ui.Styles.Warn("Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrAuthFailed)
		}
		return nil, ctx.Err()
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// AuthStatus reports whether a usable token is saved, refreshing it if expired, and who it belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	spotify, tokens, err := r.client()
	if err != nil {
		return err
	}

	if _, err := tokens.AccessToken(ctx); err != nil {
		r.writePlain("%s\n", ui.Styles.Err("Not authenticated"))
		r.writePlain("%s\n", ui.Styles.Help("Run 'spx auth login' to connect your account."))
		return errCommandFailed
	}

	user, err := spotify.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", ui.Styles.OK("Authenticated"))
	r.writePlain("User: %s (%s)\n", user.DisplayName, user.ID)
	if expiry := r.config.Credentials.Spotify.Expiry; !expiry.IsZero() {
		r.writePlain("Token expires: %s\n", expiry.Local().Format(time.RFC1123))
	}
	return nil
}
