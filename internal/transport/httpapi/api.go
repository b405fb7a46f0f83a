package httpapi

// ErrorCode is the machine-readable error discriminator in error responses.
type ErrorCode string

// Error response codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeClipNotFound           ErrorCode = "clip_not_found"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeSearchUnavailable      ErrorCode = "search_unavailable"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Thumbnail is one AI-selected representative frame.
type Thumbnail struct {
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
	Rank      int     `json:"rank"`
	Reason    string  `json:"reason,omitempty"`
}

// IngestRequest is the body of PUT /api/v1/clips. The checksum decides row
// identity; embeddings are optional and computed server-side when absent.
type IngestRequest struct {
	Checksum string `json:"checksum"`

	FileName    string  `json:"file_name"`
	FilePath    string  `json:"file_path,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	CameraMake  string  `json:"camera_make,omitempty"`
	CameraModel string  `json:"camera_model,omitempty"`
	Category    string  `json:"category,omitempty"`

	ContentSummary    string      `json:"content_summary,omitempty"`
	TranscriptPreview string      `json:"transcript_preview,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
	Thumbnails        []Thumbnail `json:"thumbnails,omitempty"`

	SummaryEmbedding    []float32   `json:"summary_embedding,omitempty"`
	KeywordEmbedding    []float32   `json:"keyword_embedding,omitempty"`
	ThumbnailEmbeddings [][]float32 `json:"thumbnail_embeddings,omitempty"`
	// ThumbnailImages are base64 data URIs aligned by slot, used to compute
	// thumbnail embeddings server-side when the pipeline did not supply them.
	ThumbnailImages []string `json:"thumbnail_images,omitempty"`

	ProcessedAt int64 `json:"processed_at,omitempty"`
}

// Clip is the catalog row as returned by the API. Raw vectors are never
// exposed; the has_*_embedding flags report which spaces are populated.
type Clip struct {
	ID       string `json:"id"`
	Checksum string `json:"checksum"`

	FileName    string  `json:"file_name"`
	FilePath    string  `json:"file_path,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	CameraMake  string  `json:"camera_make,omitempty"`
	CameraModel string  `json:"camera_model,omitempty"`
	Category    string  `json:"category,omitempty"`

	ContentSummary    string      `json:"content_summary,omitempty"`
	TranscriptPreview string      `json:"transcript_preview,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
	Thumbnails        []Thumbnail `json:"thumbnails,omitempty"`

	HasTextEmbedding   bool `json:"has_text_embedding"`
	HasVisualEmbedding bool `json:"has_visual_embedding"`

	CreatedAt   int64 `json:"created_at"`
	UpdatedAt   int64 `json:"updated_at"`
	ProcessedAt int64 `json:"processed_at,omitempty"`
}

// ClipListResponse is the body of GET /api/v1/clips.
type ClipListResponse struct {
	Items  []Clip `json:"items"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// Filters restricts a query to clips matching every set field.
type Filters struct {
	Category    string   `json:"category,omitempty"`
	CameraMake  string   `json:"camera_make,omitempty"`
	CameraModel string   `json:"camera_model,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// HybridWeights overrides the fusion weights of POST /api/v1/search.
// Omitted fields keep their deployment defaults.
type HybridWeights struct {
	FullText *float64 `json:"fulltext,omitempty"`
	Summary  *float64 `json:"summary,omitempty"`
	Keyword  *float64 `json:"keyword,omitempty"`
	RRFK     *int     `json:"rrf_k,omitempty"`
}

// SearchRequest is the body of POST /api/v1/search.
// MinScore applies to semantic mode only; fulltext (BM25) and hybrid (RRF)
// scores are on unrelated scales and ignore it.
type SearchRequest struct {
	Query    string         `json:"query"`
	Mode     string         `json:"mode,omitempty"`
	Filters  *Filters       `json:"filters,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	MinScore float64        `json:"min_score,omitempty"`
	Weights  *HybridWeights `json:"weights,omitempty"`
}

// SimilarWeights overrides the scoring weights of the similar endpoint.
// Omitted fields keep their deployment defaults.
type SimilarWeights struct {
	Summary      *float64  `json:"summary,omitempty"`
	Keyword      *float64  `json:"keyword,omitempty"`
	Thumbnails   []float64 `json:"thumbnails,omitempty"`
	TextFactor   *float64  `json:"text_factor,omitempty"`
	VisualFactor *float64  `json:"visual_factor,omitempty"`
}

// SimilarRequest is the body of POST /api/v1/clips/{id}/similar.
type SimilarRequest struct {
	Mode     string          `json:"mode,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	MinScore float64         `json:"min_score,omitempty"`
	Weights  *SimilarWeights `json:"weights,omitempty"`
}

// Scores is the mode-tagged score block of one search hit. Only the fields
// produced by the executed mode are present.
type Scores struct {
	FTSScore           *float64 `json:"fts_score,omitempty"`
	SummarySimilarity  *float64 `json:"summary_similarity,omitempty"`
	KeywordSimilarity  *float64 `json:"keyword_similarity,omitempty"`
	CombinedSimilarity *float64 `json:"combined_similarity,omitempty"`
	SimilarityScore    *float64 `json:"similarity_score,omitempty"`
	SearchRank         *int     `json:"search_rank,omitempty"`
}

// SearchResultItem is one scored hit.
type SearchResultItem struct {
	ID string `json:"id"`

	FileName          string   `json:"file_name"`
	ContentSummary    string   `json:"content_summary,omitempty"`
	TranscriptPreview string   `json:"transcript_preview,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	DurationSec       float64  `json:"duration_sec,omitempty"`
	SizeBytes         int64    `json:"size_bytes,omitempty"`
	CameraMake        string   `json:"camera_make,omitempty"`
	CameraModel       string   `json:"camera_model,omitempty"`
	Category          string   `json:"category,omitempty"`
	CreatedAt         int64    `json:"created_at"`
	UpdatedAt         int64    `json:"updated_at"`

	Scores Scores `json:"scores"`
}

// SearchResponse is the body returned by the search and similar endpoints.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Limit int                `json:"limit"`
	Total int                `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
