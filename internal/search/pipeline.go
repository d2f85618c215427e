// Package search is the query side of the bot: it turns group messages into
// ranked, cached, paginated result sets and serves the follow-up page flips
// without re-deriving the query.
package search

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"moviedex-tg-bot/internal/cache"
	"moviedex-tg-bot/internal/storage"
)

// Store is the document-store collaborator. *storage.Mongo satisfies it;
// tests swap in fakes.
type Store interface {
	SearchMovies(ctx context.Context, scope int64, query string, limit int) ([]storage.MovieRecord, error)
	DeleteScope(ctx context.Context, scope int64) (int64, error)
}

// Options bound the pipeline. Zero values fall back to defaults.
type Options struct {
	PageSize       int           // results per rendered page (default 10)
	MaxResults     int           // result-set snapshot cap per search (default 200)
	MinQueryLength int           // shorter queries are not searches (default 3)
	TTL            time.Duration // session lifetime in the cache (default 1h)
}

func (o *Options) applyDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 200
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = 3
	}
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
}

// Session is the cached snapshot of one search: the full ranked result set,
// the requester who owns the pagination buttons, the current page pointer
// and the rendered message (so the command layer can edit it later). Losing
// a session loses nothing durable; the next search rebuilds it.
type Session struct {
	Key         string                `json:"key"`
	Scope       int64                 `json:"scope"`
	Query       string                `json:"query"`
	RequesterID int64                 `json:"requester_id"`
	Items       []storage.MovieRecord `json:"items"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	MessageID   int                   `json:"message_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Page is one slice of a session's result set, plain data for the
// presentation layer.
type Page struct {
	Items        []storage.MovieRecord
	TotalResults int
	PageNumber   int
	TotalPages   int
	Offset       int // index of Items[0] within the full result set
	SessionKey   string
	Query        string
}

const lockStripes = 64

type Pipeline struct {
	store Store
	cache cache.Cache
	log   *zap.Logger
	opts  Options

	// Striped per-session locks: pagination of one session serializes its
	// own pointer update without blocking unrelated sessions.
	locks [lockStripes]sync.Mutex
}

func NewPipeline(store Store, c cache.Cache, log *zap.Logger, opts Options) *Pipeline {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts.applyDefaults()
	return &Pipeline{store: store, cache: c, log: log, opts: opts}
}

func (p *Pipeline) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &p.locks[h.Sum32()%lockStripes]
}

// SessionKey derives the deterministic cache key for a scope and query. The
// query is case-folded and space-normalized for the key only; display keeps
// the original casing. The scope prefix is what ClearScope purges by.
func SessionKey(scope int64, query string) string {
	folded := normalizeQuery(query)
	return fmt.Sprintf("search:%d:%x", scope, md5.Sum([]byte(folded)))
}

func scopePrefix(scope int64) string {
	return fmt.Sprintf("search:%d:", scope)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

var commandPrefixes = "/.!,"

// looksLikeCommand filters text that is addressed at bots, not at the
// index: command prefixes and leading emoji.
func looksLikeCommand(q string) bool {
	r, _ := utf8.DecodeRuneInString(q)
	if strings.ContainsRune(commandPrefixes, r) {
		return true
	}
	return r >= 0x1F300 && r <= 0xE007F
}

// Search resolves a free-text query for a scope: cache first, store on a
// miss, ranked and snapshotted into a session, page 1 back to the caller.
// An empty result set is still page 1 of 1, not an error.
func (p *Pipeline) Search(ctx context.Context, scope int64, rawQuery string, requesterID int64) (*Page, error) {
	query := strings.TrimSpace(rawQuery)
	if utf8.RuneCountInString(query) < p.opts.MinQueryLength || looksLikeCommand(query) {
		return nil, ErrNotASearch
	}

	key := SessionKey(scope, query)
	if sess, err := p.loadSession(ctx, key); err == nil {
		if sess.RequesterID != requesterID {
			// Last writer wins: the fresh searcher takes over the session.
			sess.RequesterID = requesterID
			sess.Page = 1
			sess.MessageID = 0
			p.storeSession(ctx, sess)
		}
		return p.pageOf(sess, 1), nil
	}

	records, err := p.store.SearchMovies(ctx, scope, query, p.opts.MaxResults)
	if err != nil {
		// Nothing is cached on a failed or cancelled fetch.
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	Rank(query, records)

	sess := &Session{
		Key:         key,
		Scope:       scope,
		Query:       query,
		RequesterID: requesterID,
		Items:       records,
		Total:       len(records),
		Page:        1,
		CreatedAt:   time.Now().UTC(),
	}
	p.storeSession(ctx, sess)
	return p.pageOf(sess, 1), nil
}

// Paginate serves a page flip against a live session. The session state is
// untouched on every error path.
func (p *Pipeline) Paginate(ctx context.Context, sessionKey string, page int, requesterID int64) (*Page, error) {
	mu := p.lock(sessionKey)
	mu.Lock()
	defer mu.Unlock()

	sess, err := p.loadSession(ctx, sessionKey)
	if err != nil {
		return nil, ErrSessionExpired
	}
	if sess.RequesterID != requesterID {
		return nil, ErrNotAuthorized
	}
	if page < 1 || page > totalPages(sess.Total, p.opts.PageSize) {
		return nil, ErrPageOutOfRange
	}
	if page != sess.Page {
		sess.Page = page
		p.storeSession(ctx, sess)
	}
	return p.pageOf(sess, page), nil
}

// BindMessage records the rendered message id on a session so later page
// flips can edit it in place.
func (p *Pipeline) BindMessage(ctx context.Context, sessionKey string, messageID int) {
	mu := p.lock(sessionKey)
	mu.Lock()
	defer mu.Unlock()

	sess, err := p.loadSession(ctx, sessionKey)
	if err != nil {
		return
	}
	sess.MessageID = messageID
	p.storeSession(ctx, sess)
}

// ClearScope purges the cached sessions and the stored records for a scope,
// returning both counts. Used when a scope is re-indexed.
func (p *Pipeline) ClearScope(ctx context.Context, scope int64) (cacheKeys, storeRows int64, err error) {
	cacheKeys, cerr := p.cache.DeleteByPrefix(ctx, scopePrefix(scope))
	if cerr != nil {
		p.log.Warn("cache purge failed", zap.Int64("scope", scope), zap.Error(cerr))
	}
	storeRows, serr := p.store.DeleteScope(ctx, scope)
	if serr != nil {
		return cacheKeys, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, serr)
	}
	return cacheKeys, storeRows, nil
}

func (p *Pipeline) loadSession(ctx context.Context, key string) (*Session, error) {
	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			p.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		p.log.Warn("dropping undecodable session", zap.String("key", key), zap.Error(err))
		return nil, cache.ErrCacheMiss
	}
	return &sess, nil
}

// storeSession is best effort: a write failure only costs the cache hit.
func (p *Pipeline) storeSession(ctx context.Context, sess *Session) {
	raw, err := json.Marshal(sess)
	if err != nil {
		p.log.Warn("session marshal failed", zap.String("key", sess.Key), zap.Error(err))
		return
	}
	if err := p.cache.Set(ctx, sess.Key, raw, p.opts.TTL); err != nil {
		p.log.Warn("cache set failed", zap.String("key", sess.Key), zap.Error(err))
	}
}

func totalPages(total, pageSize int) int {
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (p *Pipeline) pageOf(sess *Session, page int) *Page {
	pages := totalPages(sess.Total, p.opts.PageSize)
	start := (page - 1) * p.opts.PageSize
	end := start + p.opts.PageSize
	if start > len(sess.Items) {
		start = len(sess.Items)
	}
	if end > len(sess.Items) {
		end = len(sess.Items)
	}
	return &Page{
		Items:        sess.Items[start:end],
		TotalResults: sess.Total,
		PageNumber:   page,
		TotalPages:   pages,
		Offset:       start,
		SessionKey:   sess.Key,
		Query:        sess.Query,
	}
}
