// Package clip defines the catalog entity: one record per ingested video.
package clip

import (
	"fmt"
	"strings"

	"github.com/kura-media/clipdex/internal/domain"
)

// ThumbnailSlots is the number of per-clip thumbnail embedding slots.
// Slots are storage positions (1 = best per the analysis ranking); slot n of
// one clip is not semantically aligned with slot n of another, which is why
// visual similarity cross-compares all slots.
const ThumbnailSlots = 3

// Thumbnail is the metadata of one AI-selected representative frame.
type Thumbnail struct {
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
	Rank      int     `json:"rank"`
	Reason    string  `json:"reason,omitempty"`
}

// Dims pins the per-space vector dimensions a catalog is deployed with.
type Dims struct {
	Text   int
	Visual int
}

// Params carries every stored clip field for construction.
type Params struct {
	ID       string
	Checksum string

	FileName    string
	FilePath    string
	SizeBytes   int64
	DurationSec float64
	CameraMake  string
	CameraModel string
	Category    string

	ContentSummary    string
	SearchableContent string // derived; recomputed by New, trusted by Reconstruct
	TranscriptPreview string
	Tags              []string
	Thumbnails        []Thumbnail

	SummaryEmbedding []float32
	KeywordEmbedding []float32
	ThumbEmbeddings  [ThumbnailSlots][]float32

	CreatedAt   int64 // ms epoch, set once at first ingest of the checksum
	ProcessedAt int64
	UpdatedAt   int64
}

// Clip is one catalog row. Embedding fields are independently optional: a
// clip may carry some vectors and lack others, and every scoring path must
// branch on presence explicitly.
type Clip struct {
	p Params
}

// New validates and builds a clip. ID and checksum are required; every
// supplied embedding must match the dimension of its space exactly.
func New(p Params, dims Dims) (Clip, error) {
	if p.ID == "" {
		return Clip{}, fmt.Errorf("%w: clip id is required", domain.ErrInvalidArgument)
	}
	if p.Checksum == "" {
		return Clip{}, fmt.Errorf("%w: checksum is required", domain.ErrInvalidArgument)
	}

	if err := checkDim("summary_embedding", p.SummaryEmbedding, dims.Text); err != nil {
		return Clip{}, err
	}
	if err := checkDim("keyword_embedding", p.KeywordEmbedding, dims.Text); err != nil {
		return Clip{}, err
	}
	for i, v := range p.ThumbEmbeddings {
		name := fmt.Sprintf("thumbnail_%d_embedding", i+1)
		if err := checkDim(name, v, dims.Visual); err != nil {
			return Clip{}, err
		}
	}

	p.SearchableContent = BuildSearchableContent(
		p.FileName, p.ContentSummary, p.Tags, p.TranscriptPreview,
	)
	return Clip{p: p}, nil
}

// Reconstruct rebuilds a clip from storage without re-validation.
func Reconstruct(p Params) Clip {
	return Clip{p: p}
}

// BuildSearchableContent concatenates the full-text-indexed fields in a fixed
// order: name, summary, tags, transcript.
func BuildSearchableContent(fileName, summary string, tags []string, transcript string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{fileName, summary, strings.Join(tags, " "), transcript} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func checkDim(field string, v []float32, dim int) error {
	if len(v) == 0 {
		return nil
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: %s has %d dims, want %d", domain.ErrVectorDimMismatch, field, len(v), dim)
	}
	return nil
}

// ID returns the stable clip identifier.
func (c *Clip) ID() string { return c.p.ID }

// Checksum returns the content checksum (natural key for idempotent ingest).
func (c *Clip) Checksum() string { return c.p.Checksum }

// FileName returns the original file name.
func (c *Clip) FileName() string { return c.p.FileName }

// FilePath returns the local path the file was ingested from.
func (c *Clip) FilePath() string { return c.p.FilePath }

// SizeBytes returns the file size.
func (c *Clip) SizeBytes() int64 { return c.p.SizeBytes }

// DurationSec returns the video duration in seconds.
func (c *Clip) DurationSec() float64 { return c.p.DurationSec }

// CameraMake returns the camera make.
func (c *Clip) CameraMake() string { return c.p.CameraMake }

// CameraModel returns the camera model.
func (c *Clip) CameraModel() string { return c.p.CameraModel }

// Category returns the content category.
func (c *Clip) Category() string { return c.p.Category }

// ContentSummary returns the AI content summary.
func (c *Clip) ContentSummary() string { return c.p.ContentSummary }

// SearchableContent returns the concatenated full-text field.
func (c *Clip) SearchableContent() string { return c.p.SearchableContent }

// TranscriptPreview returns the transcript preview text.
func (c *Clip) TranscriptPreview() string { return c.p.TranscriptPreview }

// Tags returns the content tags.
func (c *Clip) Tags() []string { return c.p.Tags }

// Thumbnails returns the AI-selected thumbnail metadata, ordered by rank.
func (c *Clip) Thumbnails() []Thumbnail { return c.p.Thumbnails }

// SummaryEmbedding returns the text-space summary vector, or nil.
func (c *Clip) SummaryEmbedding() []float32 { return c.p.SummaryEmbedding }

// KeywordEmbedding returns the text-space keyword vector, or nil.
func (c *Clip) KeywordEmbedding() []float32 { return c.p.KeywordEmbedding }

// ThumbnailEmbedding returns the visual-space vector for slot 1..3, or nil.
func (c *Clip) ThumbnailEmbedding(slot int) []float32 {
	if slot < 1 || slot > ThumbnailSlots {
		return nil
	}
	return c.p.ThumbEmbeddings[slot-1]
}

// HasTextEmbedding reports whether any text-space vector is present.
func (c *Clip) HasTextEmbedding() bool {
	return len(c.p.SummaryEmbedding) > 0 || len(c.p.KeywordEmbedding) > 0
}

// HasVisualEmbedding reports whether any thumbnail vector is present.
func (c *Clip) HasVisualEmbedding() bool {
	for _, v := range c.p.ThumbEmbeddings {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// CreatedAt returns the first-ingest time (ms epoch). Preserved on re-ingest.
func (c *Clip) CreatedAt() int64 { return c.p.CreatedAt }

// ProcessedAt returns the last AI-processing time (ms epoch).
func (c *Clip) ProcessedAt() int64 { return c.p.ProcessedAt }

// UpdatedAt returns the last mutation time (ms epoch).
func (c *Clip) UpdatedAt() int64 { return c.p.UpdatedAt }
