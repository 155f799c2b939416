package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"movienight/internal/chat"
	"movienight/internal/i18n"
	"movienight/pkg/movielink"
)

// Metrics receives counters from message processing. The HTTP server
// implements it; a nil recorder disables instrumentation.
type Metrics interface {
	RecordMessage(msgType, status string)
	RecordAdd(source string)
	RecordDuplicate()
	RecordLookupError(source string)
	RecordProcessingTime(msgType string, duration time.Duration)
}

// Dispatcher handles messages from any chat frontend: it gates on the cheap
// link test, extracts and resolves movie links, deduplicates against the
// collection and answers the bot commands.
type Dispatcher struct {
	config    *Config
	frontend  chat.Frontend
	resolver  Resolver
	store     MovieStore
	dedup     DedupCache
	metrics   Metrics
	logger    *zap.Logger
	localizer *i18n.Localizer
}

// NewDispatcher creates a dispatcher wired to the given collaborators.
func NewDispatcher(
	config *Config,
	frontend chat.Frontend,
	resolver Resolver,
	store MovieStore,
	dedup DedupCache,
	metrics Metrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		frontend:  frontend,
		resolver:  resolver,
		store:     store,
		dedup:     dedup,
		metrics:   metrics,
		logger:    logger,
		localizer: i18n.NewLocalizer(config.App.Language),
	}
}

// Start initializes the dispatcher, preloads the dedup cache from the store
// and begins processing messages. It blocks until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting message dispatcher")

	if err := d.loadCollectionSnapshot(ctx); err != nil {
		d.logger.Warn("Failed to preload dedup cache", zap.Error(err))
	}

	if err := d.frontend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chat frontend: %w", err)
	}

	return d.frontend.Listen(ctx, d.handleMessage)
}

// loadCollectionSnapshot fills the in-memory dedup cache with every TMDB ID
// already in the collection.
func (d *Dispatcher) loadCollectionSnapshot(ctx context.Context) error {
	ids, err := d.store.AllTMDBIDs(ctx)
	if err != nil {
		return err
	}

	d.dedup.Load(ids)
	d.logger.Info("Preloaded dedup cache", zap.Int("movies", len(ids)))
	return nil
}

// handleMessage processes one incoming chat message.
func (d *Dispatcher) handleMessage(msg *chat.Message) {
	ctx := context.Background()

	if msg.IsCommand {
		go d.handleCommand(ctx, msg)
		return
	}

	if !movielink.Contains(msg.Text) {
		return
	}

	go d.processLinkMessage(ctx, msg)
}

// processLinkMessage runs the link pipeline for a live message.
func (d *Dispatcher) processLinkMessage(ctx context.Context, msg *chat.Message) {
	start := time.Now()

	d.logger.Debug("Movie link detected",
		zap.String("messageID", msg.ID),
		zap.String("sender", msg.Sender))

	added, skipped, failed := d.processLinks(ctx, msg, false)

	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	d.recordMessage("link", status)
	d.recordProcessingTime("link", time.Since(start))

	d.logger.Info("Processed movie links",
		zap.String("messageID", msg.ID),
		zap.Int("added", added),
		zap.Int("duplicates", skipped),
		zap.Int("failed", failed))
}

// processLinks extracts and resolves every movie link in msg, sequentially
// and independently: one failed lookup never aborts its siblings. The
// fromScan flag suppresses per-link chat replies and backdates additions to
// the original message timestamp.
func (d *Dispatcher) processLinks(ctx context.Context, msg *chat.Message, fromScan bool) (added, skipped, failed int) {
	for _, link := range movielink.Extract(msg.Text) {
		if link.Source == movielink.SourceNetflix {
			// No identifier-to-title path exists; skip silently.
			continue
		}

		movie, ok := d.resolver.Resolve(ctx, link)
		if !ok {
			failed++
			d.recordLookupError(string(link.Source))
			if !fromScan {
				d.replyNotFound(ctx, msg, link.OriginalURL)
			}
			continue
		}

		duplicate, err := d.isDuplicate(ctx, movie.TMDBID)
		if err != nil {
			failed++
			d.logger.Error("Failed to check for duplicate",
				zap.Int64("tmdb_id", movie.TMDBID), zap.Error(err))
			continue
		}
		if duplicate {
			skipped++
			d.recordDuplicate()
			if !fromScan {
				d.react(ctx, msg, chat.ReactionCheckmark)
			}
			continue
		}

		movie.AddedBy = msg.Sender
		movie.AvatarURL = msg.AvatarURL
		movie.SourceURL = link.OriginalURL
		if fromScan {
			movie.AddedAt = msg.Timestamp
		}

		if err := d.store.Add(ctx, movie); err != nil {
			failed++
			d.logger.Error("Failed to save movie",
				zap.Int64("tmdb_id", movie.TMDBID),
				zap.String("title", movie.Title),
				zap.Error(err))
			continue
		}

		d.dedup.Add(movie.TMDBID)
		added++
		d.recordAdd(string(link.Source))
		d.react(ctx, msg, chat.ReactionEyes)

		d.logger.Info("Movie added to collection",
			zap.Int64("tmdb_id", movie.TMDBID),
			zap.String("title", movie.Title),
			zap.String("added_by", movie.AddedBy))
	}

	return added, skipped, failed
}

// isDuplicate consults the in-memory cache before falling back to the
// store's existence check.
func (d *Dispatcher) isDuplicate(ctx context.Context, tmdbID int64) (bool, error) {
	if d.dedup.Has(tmdbID) {
		return true, nil
	}
	return d.store.Exists(ctx, tmdbID)
}

// handleCommand answers the bot commands.
func (d *Dispatcher) handleCommand(ctx context.Context, msg *chat.Message) {
	start := time.Now()

	switch msg.Command {
	case "stats":
		d.handleStats(ctx, msg)
	case "recent":
		d.handleRecent(ctx, msg)
	case "scan":
		d.handleScan(ctx, msg)
	default:
		return
	}

	d.recordMessage("command", "ok")
	d.recordProcessingTime("command", time.Since(start))
}

func (d *Dispatcher) handleStats(ctx context.Context, msg *chat.Message) {
	count, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Error("Failed to count movies", zap.Error(err))
		d.reply(ctx, msg, d.localizer.T("error.generic"))
		return
	}

	d.reply(ctx, msg, d.localizer.T("stats.count", count))
}

func (d *Dispatcher) handleRecent(ctx context.Context, msg *chat.Message) {
	limit := d.parseLimit(msg.Args, d.config.App.RecentDefaultLimit, d.config.App.RecentMaxLimit)

	movies, err := d.store.Recent(ctx, limit)
	if err != nil {
		d.logger.Error("Failed to load recent movies", zap.Error(err))
		d.reply(ctx, msg, d.localizer.T("error.generic"))
		return
	}

	if len(movies) == 0 {
		d.reply(ctx, msg, d.localizer.T("recent.empty"))
		return
	}

	var b strings.Builder
	b.WriteString(d.localizer.T("recent.title"))
	for _, movie := range movies {
		b.WriteString("\n")
		if movie.Year > 0 {
			b.WriteString(d.localizer.T("recent.line", movie.Title, movie.Year, movie.AddedBy))
		} else {
			b.WriteString(d.localizer.T("recent.line_no_year", movie.Title, movie.AddedBy))
		}
	}

	d.reply(ctx, msg, b.String())
}

// handleScan walks the chat history through the frontend and runs every old
// message through the same link pipeline.
func (d *Dispatcher) handleScan(ctx context.Context, msg *chat.Message) {
	limit := d.parseLimit(msg.Args, d.config.App.ScanDefaultLimit, d.config.App.ScanMaxLimit)

	d.reply(ctx, msg, d.localizer.T("scan.start", limit))

	history, err := d.frontend.History(ctx, msg.ChatID, limit)
	if errors.Is(err, chat.ErrHistoryUnsupported) {
		d.reply(ctx, msg, d.localizer.T("scan.unsupported"))
		return
	}
	if err != nil {
		d.logger.Error("Failed to fetch chat history", zap.Error(err))
		d.reply(ctx, msg, d.localizer.T("scan.failed"))
		return
	}

	var added, skipped, failed int
	for i := range history {
		old := &history[i]
		if old.IsCommand || !movielink.Contains(old.Text) {
			continue
		}

		a, s, f := d.processLinks(ctx, old, true)
		added += a
		skipped += s
		failed += f
	}

	d.reply(ctx, msg, d.localizer.T("scan.done", added, skipped, failed))
}

// parseLimit reads an optional numeric argument, clamped to [1, max].
func (d *Dispatcher) parseLimit(args []string, def, max int) int {
	limit := def
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func (d *Dispatcher) reply(ctx context.Context, msg *chat.Message, text string) {
	if _, err := d.frontend.SendText(ctx, msg.ChatID, msg.ID, text); err != nil {
		d.logger.Error("Failed to send reply", zap.Error(err))
	}
}

func (d *Dispatcher) replyNotFound(ctx context.Context, msg *chat.Message, url string) {
	if _, err := d.frontend.SendText(ctx, msg.ChatID, msg.ID,
		d.localizer.T("error.resolve.not_found", url)); err != nil {
		d.logger.Error("Failed to send not-found reply", zap.Error(err))
	}
}

func (d *Dispatcher) react(ctx context.Context, msg *chat.Message, r chat.Reaction) {
	if err := d.frontend.React(ctx, msg.ChatID, msg.ID, r); err != nil {
		// Reactions can fail on old messages; not worth surfacing.
		d.logger.Debug("Failed to react to message", zap.Error(err))
	}
}

func (d *Dispatcher) recordMessage(msgType, status string) {
	if d.metrics != nil {
		d.metrics.RecordMessage(msgType, status)
	}
}

func (d *Dispatcher) recordAdd(source string) {
	if d.metrics != nil {
		d.metrics.RecordAdd(source)
	}
}

func (d *Dispatcher) recordDuplicate() {
	if d.metrics != nil {
		d.metrics.RecordDuplicate()
	}
}

func (d *Dispatcher) recordLookupError(source string) {
	if d.metrics != nil {
		d.metrics.RecordLookupError(source)
	}
}

func (d *Dispatcher) recordProcessingTime(msgType string, duration time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordProcessingTime(msgType, duration)
	}
}
