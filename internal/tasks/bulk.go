package tasks

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// BulkOptions tunes the bulk operations. Zero sizes fall back to defaults; a zero SearchDelay means no pause.
type BulkOptions struct {
	AddBatchSize          int           // URIs per append request (default: 100)
	SearchDelay           time.Duration // Minimum spacing between catalog searches
	SearchLimit           int           // Candidates requested per search (default: 10)
	ReportDir             string        // Directory for failed-recovery reports; empty disables them
	TrackPageSize         int           // Items per track page (default and max: 100)
	MaxConcurrentRequests int           // Concurrent track page fetches per playlist (default: 3)
}

// DefaultBulkOptions returns the options used when no configuration is given.
func DefaultBulkOptions() BulkOptions {
	return BulkOptions{
		AddBatchSize:          defaultAddBatchSize,
		SearchDelay:           defaultSearchDelay,
		SearchLimit:           defaultSearchLimit,
		TrackPageSize:         defaultTrackPageSize,
		MaxConcurrentRequests: defaultConcurrency,
	}
}

// BulkOptionsFromConfig converts the operations and sync config sections.
func BulkOptionsFromConfig(ops shared.OperationsConfig, sync shared.SyncConfig) BulkOptions {
	return BulkOptions{
		AddBatchSize:          ops.AddBatchSize,
		SearchDelay:           ops.SearchDelay(),
		SearchLimit:           ops.SearchLimit,
		ReportDir:             ops.ReportDir,
		TrackPageSize:         sync.TrackPageSize,
		MaxConcurrentRequests: sync.MaxConcurrentRequests,
	}
}

func (o BulkOptions) withDefaults() BulkOptions {
	if o.AddBatchSize <= 0 || o.AddBatchSize > defaultAddBatchSize {
		o.AddBatchSize = defaultAddBatchSize
	}
	if o.SearchDelay < 0 {
		o.SearchDelay = 0
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = defaultSearchLimit
	}
	if o.TrackPageSize <= 0 || o.TrackPageSize > maxTrackPageSize {
		o.TrackPageSize = defaultTrackPageSize
	}
	if o.MaxConcurrentRequests <= 0 {
		o.MaxConcurrentRequests = defaultConcurrency
	}
	return o
}

// BulkEngine runs multi-step mutating operations against the remote library and reflects them into the cache.
//
// Every operation obtains a token first, validates against the cache before any remote call,
// and appends one history entry when it changed anything.
type BulkEngine struct {
	client services.PlaylistClient
	tokens services.TokenProvider
	cache  CacheStore
	opts   BulkOptions
	logger *log.Logger
	now    func() time.Time
}

// NewBulkEngine creates a BulkEngine. A nil logger discards output.
func NewBulkEngine(client services.PlaylistClient, tokens services.TokenProvider, cache CacheStore, opts BulkOptions, logger *log.Logger) *BulkEngine {
	if logger == nil {
		logger = discardLogger()
	}
	return &BulkEngine{
		client: client,
		tokens: tokens,
		cache:  cache,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// record appends a history entry, logging rather than failing the operation on error.
func (e *BulkEngine) record(logger *log.Logger, kind models.OperationKind, ids []string, details any) {
	entry, err := models.NewHistoryEntry(kind, ids, details)
	if err != nil {
		logger.Warn("failed to build history entry", "error", err)
		return
	}
	entry.Timestamp = e.now().UTC()
	if err := e.cache.LogOperation(entry); err != nil {
		logger.Warn("failed to record history", "error", err)
	}
}

// cacheCreated stores a playlist the engine just created, owned by the current user.
func (e *BulkEngine) cacheCreated(logger *log.Logger, id, name, owner string, trackCount int) {
	rec := &models.PlaylistRecord{
		ID:         id,
		Name:       name,
		Owner:      owner,
		IsOwner:    true,
		TrackCount: trackCount,
		LastSynced: e.now(),
	}
	if err := e.cache.UpsertPlaylist(rec); err != nil {
		logger.Warn("failed to cache created playlist", "playlist", id, "error", err)
	}
}
