package clip

import (
	"encoding/json"
	"fmt"

	domclip "github.com/kura-media/clipdex/internal/domain/clip"
)

// clipDoc is the RedisJSON document shape. Vector fields carry omitempty so
// a clip without an embedding produces a document without that attribute,
// keeping the row out of the corresponding vector index instead of storing
// a zero vector that would match everything poorly.
type clipDoc struct {
	ID       string `json:"id"`
	Checksum string `json:"checksum"`

	FileName    string  `json:"file_name"`
	FilePath    string  `json:"file_path,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	DurationSec float64 `json:"duration_sec"`
	CameraMake  string  `json:"camera_make,omitempty"`
	CameraModel string  `json:"camera_model,omitempty"`
	Category    string  `json:"category,omitempty"`

	ContentSummary    string              `json:"content_summary,omitempty"`
	SearchableContent string              `json:"searchable_content"`
	TranscriptPreview string              `json:"transcript_preview,omitempty"`
	Tags              []string            `json:"tags,omitempty"`
	Thumbnails        []domclip.Thumbnail `json:"thumbnails,omitempty"`

	SummaryEmbedding    []float32 `json:"summary_embedding,omitempty"`
	KeywordEmbedding    []float32 `json:"keyword_embedding,omitempty"`
	Thumbnail1Embedding []float32 `json:"thumbnail_1_embedding,omitempty"`
	Thumbnail2Embedding []float32 `json:"thumbnail_2_embedding,omitempty"`
	Thumbnail3Embedding []float32 `json:"thumbnail_3_embedding,omitempty"`

	CreatedAt   int64 `json:"created_at"`
	ProcessedAt int64 `json:"processed_at,omitempty"`
	UpdatedAt   int64 `json:"updated_at"`
}

// thumbnailField maps a 1-based slot to its JSON path and index alias.
func thumbnailField(slot int) (path, alias string) {
	alias = fmt.Sprintf("thumbnail_%d_embedding", slot)
	return "$." + alias, alias
}

func buildDoc(c *domclip.Clip) *clipDoc {
	return &clipDoc{
		ID:                  c.ID(),
		Checksum:            c.Checksum(),
		FileName:            c.FileName(),
		FilePath:            c.FilePath(),
		SizeBytes:           c.SizeBytes(),
		DurationSec:         c.DurationSec(),
		CameraMake:          c.CameraMake(),
		CameraModel:         c.CameraModel(),
		Category:            c.Category(),
		ContentSummary:      c.ContentSummary(),
		SearchableContent:   c.SearchableContent(),
		TranscriptPreview:   c.TranscriptPreview(),
		Tags:                c.Tags(),
		Thumbnails:          c.Thumbnails(),
		SummaryEmbedding:    c.SummaryEmbedding(),
		KeywordEmbedding:    c.KeywordEmbedding(),
		Thumbnail1Embedding: c.ThumbnailEmbedding(1),
		Thumbnail2Embedding: c.ThumbnailEmbedding(2),
		Thumbnail3Embedding: c.ThumbnailEmbedding(3),
		CreatedAt:           c.CreatedAt(),
		ProcessedAt:         c.ProcessedAt(),
		UpdatedAt:           c.UpdatedAt(),
	}
}

func (d *clipDoc) toClip() domclip.Clip {
	return domclip.Reconstruct(domclip.Params{
		ID:                d.ID,
		Checksum:          d.Checksum,
		FileName:          d.FileName,
		FilePath:          d.FilePath,
		SizeBytes:         d.SizeBytes,
		DurationSec:       d.DurationSec,
		CameraMake:        d.CameraMake,
		CameraModel:       d.CameraModel,
		Category:          d.Category,
		ContentSummary:    d.ContentSummary,
		SearchableContent: d.SearchableContent,
		TranscriptPreview: d.TranscriptPreview,
		Tags:              d.Tags,
		Thumbnails:        d.Thumbnails,
		SummaryEmbedding:  d.SummaryEmbedding,
		KeywordEmbedding:  d.KeywordEmbedding,
		ThumbEmbeddings: [domclip.ThumbnailSlots][]float32{
			d.Thumbnail1Embedding,
			d.Thumbnail2Embedding,
			d.Thumbnail3Embedding,
		},
		CreatedAt:   d.CreatedAt,
		ProcessedAt: d.ProcessedAt,
		UpdatedAt:   d.UpdatedAt,
	})
}

// parseJSONGetResult unwraps a JSONPath "$" reply (an array of one document).
func parseJSONGetResult(raw []byte) (domclip.Clip, error) {
	var docs []clipDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		// plain JSON.GET without a path returns the bare object
		var d clipDoc
		if err2 := json.Unmarshal(raw, &d); err2 != nil {
			return domclip.Clip{}, fmt.Errorf("unmarshal clip: %w", err)
		}
		return d.toClip(), nil
	}
	if len(docs) == 0 {
		return domclip.Clip{}, fmt.Errorf("unmarshal clip: empty result")
	}
	return docs[0].toClip(), nil
}
