package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/commands"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// errCommandFailed marks a failure whose message was already written to the output.
var errCommandFailed = errors.New("command failed")

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	configPath string
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	mu       sync.Mutex
	db       *sqlx.DB
	spotify  *services.SpotifyService
	tokens   *services.OAuthTokenProvider
	commands *commands.Commands
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Commands   *commands.Commands // preset facade; skips database and client wiring
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		commands:   opts.Commands,
	}
}

// loadConfig reads the config file named by --config when it exists, then applies SPX_* overrides.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if err := shared.ApplyEnv(r.config); err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, r.config.Log.Level)
	return ctx, nil
}

// client returns the Web API client and its token provider, building them on first use.
func (r *Runner) client() (*services.SpotifyService, *services.OAuthTokenProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientLocked()
}

func (r *Runner) clientLocked() (*services.SpotifyService, *services.OAuthTokenProvider, error) {
	if r.spotify != nil {
		return r.spotify, r.tokens, nil
	}

	httpClient := &http.Client{Transport: r.httpClient.Transport, Timeout: r.config.API.Timeout()}
	spotify, err := services.NewSpotifyService(
		r.config.Credentials.Spotify.Map(),
		services.WithBaseURL(r.config.API.BaseURL),
		services.WithHTTPClient(httpClient),
		services.WithRateLimit(r.config.API.RequestsPerSecond),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: set client_id and client_secret in %s or %s", err, r.configPath, shared.EnvClientID)
	}

	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	tokens := services.NewOAuthTokenProvider(refreshCtx, spotify.OAuthConfig(), r.config.Credentials.Spotify.Token(), r.saveToken)
	spotify.SetTokenProvider(tokens)

	r.spotify = spotify
	r.tokens = tokens
	return spotify, tokens, nil
}

// saveToken persists a refreshed token into the config file.
func (r *Runner) saveToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sqlx.DB, error) {
	path := r.config.Database.Path
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	shared.ConfigureDatabase(db, path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// facade wires the database, the remote client, and both engines into the command facade on first use.
func (r *Runner) facade() (*commands.Commands, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commands != nil {
		return r.commands, nil
	}

	spotify, tokens, err := r.clientLocked()
	if err != nil {
		return nil, err
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	cache := repositories.NewCache(db)
	syncEngine := tasks.NewSyncEngine(spotify, tokens, cache, tasks.SyncOptionsFromConfig(r.config.Sync), r.logger.WithPrefix("sync"))
	bulkEngine := tasks.NewBulkEngine(spotify, tokens, cache, tasks.BulkOptionsFromConfig(r.config.Operations, r.config.Sync), r.logger.WithPrefix("ops"))

	r.db = db
	r.commands = commands.New(syncEngine, bulkEngine, cache, r.logger)
	return r.commands, nil
}

// close releases the database, if one was opened.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// withProgress runs fn with a progress channel printed to the output, or with none in JSON mode.
func (r *Runner) withProgress(cmd *cli.Command, fn func(chan<- tasks.ProgressUpdate) commands.Response) commands.Response {
	if cmd.Bool("json") {
		return fn(nil)
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := ui.PrintProgress(r.output, progress)
	resp := fn(progress)
	close(progress)
	<-done
	return resp
}

// render writes resp as JSON with --json, otherwise through human. Failures return errCommandFailed.
func (r *Runner) render(cmd *cli.Command, resp commands.Response, human func(data any) error) error {
	if cmd.Bool("json") {
		if err := r.writeJSON(resp, cmd.Bool("pretty")); err != nil {
			return err
		}
		if !resp.Success {
			return errCommandFailed
		}
		return nil
	}

	if !resp.Success {
		r.writePlain("%s\n", ui.Styles.Err("%s", resp.Error))
		if resp.Data != nil && human != nil {
			if err := human(resp.Data); err != nil {
				return err
			}
		}
		return errCommandFailed
	}
	if human == nil {
		return nil
	}
	return human(resp.Data)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeHeader(title string) {
	r.writePlain("%s\n\n", ui.Styles.Title("%s", title))
}

// decodeData converts a response payload into T. Payloads already of type T are returned as is.
func decodeData[T any](data any) (T, error) {
	var out T
	if v, ok := data.(T); ok {
		return v, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
