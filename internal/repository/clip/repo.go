// Package clip persists catalog rows as RedisJSON documents under one FT index.
package clip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kura-media/clipdex/internal/db"
	"github.com/kura-media/clipdex/internal/domain"
	domclip "github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
)

// store is the consumer interface for clip persistence (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchTag(ctx context.Context, index, field, value string, limit int, returnFields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/catalog.Repository and the clip fetch side of the
// search usecases.
type Repo struct {
	store store
	dims  domclip.Dims
	hnsw  HNSWConfig
}

// New creates a clip repository.
func New(s store, dims domclip.Dims) *Repo {
	return &Repo{store: s, dims: dims, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the clip FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateIndex(ctx, buildIndex(r.dims, r.hnsw)); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Put stores a clip document. Returns true if the key did not exist before.
func (r *Repo) Put(ctx context.Context, c *domclip.Clip) (bool, error) {
	key := clipKey(c.ID())

	data, err := json.Marshal(buildDoc(c))
	if err != nil {
		return false, fmt.Errorf("marshal clip: %w", err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}

	return !exists, nil
}

// FindByChecksum resolves the stored identity of a clip by content checksum.
// Re-ingesting the same file must land on the same row with its original
// created_at, so ingest looks the checksum up before assigning an id.
func (r *Repo) FindByChecksum(ctx context.Context, checksum string) (id string, createdAt int64, err error) {
	sr, err := r.store.SearchTag(ctx, IndexName, "checksum", checksum, 1, []string{"id", "created_at"})
	if err != nil {
		return "", 0, fmt.Errorf("search checksum: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return "", 0, domain.ErrClipNotFound
	}

	entry := sr.Entries[0]
	id = entry.Fields["id"]
	if id == "" {
		return "", 0, domain.ErrClipNotFound
	}
	if v := entry.Fields["created_at"]; v != "" {
		if ts, parseErr := strconv.ParseInt(v, 10, 64); parseErr == nil {
			createdAt = ts
		}
	}
	return id, createdAt, nil
}

// Get returns a clip by id.
func (r *Repo) Get(ctx context.Context, id string) (domclip.Clip, error) {
	raw, err := r.store.JSONGet(ctx, clipKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domclip.Clip{}, domain.ErrClipNotFound
		}
		return domclip.Clip{}, fmt.Errorf("json.get %s: %w", id, err)
	}
	return parseJSONGetResult(raw)
}

// GetByIDs fetches several clips in one pipelined round trip, preserving the
// order of ids. Missing rows are skipped, not errors: a clip deleted between
// a search probe and this fetch should shrink the result, not break it.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]domclip.Clip, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = clipKey(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	clips := make([]domclip.Clip, 0, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		c, err := parseJSONGetResult(raw)
		if err != nil {
			return nil, fmt.Errorf("parse clip %s: %w", ids[i], err)
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// Delete removes a clip.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := clipKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrClipNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// List returns clips matching the filters, sorted by the given numeric
// column, with the total match count for pagination.
func (r *Repo) List(ctx context.Context, f filter.Filters, sortBy string, ascending bool, offset, limit int) ([]domclip.Clip, int, error) {
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    IndexName,
		Filters:      f,
		SortBy:       sortBy,
		Ascending:    ascending,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search list: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, 0, nil
	}

	clips := make([]domclip.Clip, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		raw := entry.Fields["$"]
		if raw == "" {
			continue
		}
		var d clipDoc
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, 0, fmt.Errorf("parse clip %s: %w", entry.Key, err)
		}
		clips = append(clips, d.toClip())
	}

	return clips, sr.Total, nil
}

// Count returns the number of clips in the catalog.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}
