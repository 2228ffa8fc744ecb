package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/commands"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type idsRequest struct {
	IDs []string `json:"ids"`
}

type tagsRequest struct {
	IDs    []string `json:"ids"`
	Tags   string   `json:"tags"`
	Append bool     `json:"append"`
}

// renameRequest renames one playlist when ID and Name are set, otherwise applies Find/Replace to IDs.
type renameRequest struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	IDs     []string `json:"ids"`
	Find    string   `json:"find"`
	Replace string   `json:"replace"`
}

// API exposes [commands.Commands] as JSON endpoints. Every response body is a [commands.Response].
type API struct {
	commands *commands.Commands
	logger   *log.Logger
}

// NewAPI creates an API over cmds.
func NewAPI(cmds *commands.Commands, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{commands: cmds, logger: logger}
}

// Register adds the API routes to router.
func (a *API) Register(router Router) {
	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", a.handleHealth},
		{http.MethodPost, "/sync/playlists", a.handleSyncPlaylists},
		{http.MethodPost, "/sync/details", a.handleSyncDetails},
		{http.MethodGet, "/playlists", a.handlePlaylists},
		{http.MethodGet, "/playlists/details", a.handlePlaylistDetails},
		{http.MethodPost, "/playlists/delete", a.handleDelete},
		{http.MethodPost, "/playlists/tags", a.handleTags},
		{http.MethodPost, "/playlists/merge", a.handleMerge},
		{http.MethodPost, "/playlists/rename", a.handleRename},
		{http.MethodPost, "/playlists/{id}/dedupe", a.handleDedupe},
		{http.MethodPost, "/playlists/{id}/fix", a.handleFix},
		{http.MethodGet, "/history", a.handleHistory},
	}
	for _, rt := range routes {
		router.Handle(rt.method, rt.path, rt.handler)
	}
}

// Handler returns a router with the default middleware and the API routes.
func (a *API) Handler() http.Handler {
	router := NewRouter()
	router.Use(DefaultMiddleware(a.logger)...)
	a.Register(router)
	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, commands.Response{Success: true, Data: map[string]string{"status": "ok"}})
}

func (a *API) handleSyncPlaylists(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.SyncPlaylists(r.Context(), nil))
}

func (a *API) handleSyncDetails(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.SyncDetails(r.Context(), nil))
}

func (a *API) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.Playlists())
}

func (a *API) handlePlaylistDetails(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.PlaylistDetails(commands.SplitIDs(r.URL.Query().Get("ids"))))
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.respond(w, a.commands.Delete(r.Context(), req.IDs, nil))
}

func (a *API) handleTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.respond(w, a.commands.UpdateTags(req.IDs, req.Tags, req.Append))
}

func (a *API) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req tasks.MergeRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.respond(w, a.commands.Merge(r.Context(), req, nil))
}

func (a *API) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ID != "" {
		a.respond(w, a.commands.Rename(r.Context(), req.ID, req.Name))
		return
	}
	a.respond(w, a.commands.BulkRename(r.Context(), req.IDs, req.Find, req.Replace, nil))
}

func (a *API) handleDedupe(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.RemoveDuplicates(r.Context(), chi.URLParam(r, "id"), nil))
}

func (a *API) handleFix(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.commands.FixBrokenLinks(r.Context(), chi.URLParam(r, "id"), nil))
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, commands.Response{
				Error: fmt.Sprintf("%v: limit must be a number", shared.ErrInvalidInput),
			})
			return
		}
		limit = n
	}
	a.respond(w, a.commands.History(limit))
}

// decode reads a JSON body into v, writing a 400 envelope and returning false on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, commands.Response{
			Error: fmt.Sprintf("%v: %v", shared.ErrInvalidInput, err),
		})
		return false
	}
	return true
}

// respond writes resp with 200 on success and 422 otherwise.
func (a *API) respond(w http.ResponseWriter, resp commands.Response) {
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
