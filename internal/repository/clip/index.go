package clip

import (
	"github.com/kura-media/clipdex/internal/db"
	"github.com/kura-media/clipdex/internal/domain"
	domclip "github.com/kura-media/clipdex/internal/domain/clip"
)

// Redis key patterns: clipdex:clip:{id}, clipdex:clips:idx

// IndexName is the FT index covering all clip documents.
const IndexName = domain.KeyPrefix + "clips:idx"

// DocPrefix is the key prefix of clip documents; the id follows it.
const DocPrefix = domain.KeyPrefix + "clip:"

// Index attribute aliases shared with the search repository.
const (
	FieldSearchableContent = "searchable_content"
	FieldSummaryEmbedding  = "summary_embedding"
	FieldKeywordEmbedding  = "keyword_embedding"
)

func clipKey(id string) string {
	return DocPrefix + id
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex defines the clip FT index: TAG attributes for filtering and
// checksum lookup, one TEXT attribute for BM25, NUMERIC sort keys, and five
// HNSW vector attributes. A document missing a vector attribute is simply
// absent from that vector index, which is what keeps partially-embedded
// clips searchable through the signals they do carry.
func buildIndex(dims domclip.Dims, hnsw HNSWConfig) *db.IndexDefinition {
	b := db.NewIndex(IndexName).
		Prefix(DocPrefix).
		Tag("$.id", "id").
		Tag("$.checksum", "checksum").
		Tag("$.category", "category").
		Tag("$.camera_make", "camera_make").
		Tag("$.camera_model", "camera_model").
		Tag("$.tags[*]", "tags").
		Text("$.searchable_content", FieldSearchableContent).
		SortableNumeric("$.created_at", "created_at").
		SortableNumeric("$.updated_at", "updated_at").
		SortableNumeric("$.duration_sec", "duration_sec").
		SortableNumeric("$.size_bytes", "size_bytes").
		VectorHNSW("$.summary_embedding", FieldSummaryEmbedding, dims.Text, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		VectorHNSW("$.keyword_embedding", FieldKeywordEmbedding, dims.Text, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)

	for slot := 1; slot <= domclip.ThumbnailSlots; slot++ {
		path, alias := thumbnailField(slot)
		b = b.VectorHNSW(path, alias, dims.Visual, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)
	}

	return b.MustBuild()
}

// ThumbnailEmbeddingField returns the vector attribute alias for slot 1..3.
func ThumbnailEmbeddingField(slot int) string {
	_, alias := thumbnailField(slot)
	return alias
}
