package clip

import (
	"errors"
	"testing"

	"github.com/kura-media/clipdex/internal/domain"
)

var testDims = Dims{Text: 2, Visual: 3}

func validParams() Params {
	return Params{
		ID:       "clip-1",
		Checksum: "abc123",
		FileName: "beach.mp4",
	}
}

func TestNew_RequiredFields(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		p := validParams()
		p.ID = ""
		if _, err := New(p, testDims); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("missing checksum", func(t *testing.T) {
		p := validParams()
		p.Checksum = ""
		if _, err := New(p, testDims); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNew_DimValidation(t *testing.T) {
	t.Run("summary wrong dims", func(t *testing.T) {
		p := validParams()
		p.SummaryEmbedding = []float32{0.1, 0.2, 0.3}
		if _, err := New(p, testDims); !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
		}
	})

	t.Run("keyword wrong dims", func(t *testing.T) {
		p := validParams()
		p.KeywordEmbedding = []float32{0.1}
		if _, err := New(p, testDims); !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
		}
	})

	t.Run("thumbnail uses visual dims", func(t *testing.T) {
		p := validParams()
		p.ThumbEmbeddings[1] = []float32{0.1, 0.2} // visual space is 3-dim
		if _, err := New(p, testDims); !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
		}
	})

	t.Run("absent vectors pass", func(t *testing.T) {
		if _, err := New(validParams(), testDims); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unpinned dims accept any length", func(t *testing.T) {
		p := validParams()
		p.SummaryEmbedding = []float32{0.1, 0.2, 0.3, 0.4}
		if _, err := New(p, Dims{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNew_BuildsSearchableContent(t *testing.T) {
	p := validParams()
	p.ContentSummary = "waves at sunset"
	p.Tags = []string{"beach", "sunset"}
	p.TranscriptPreview = "listen to the waves"

	c, err := New(p, testDims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "beach.mp4 waves at sunset beach sunset listen to the waves"
	if c.SearchableContent() != want {
		t.Errorf("searchable content mismatch:\n got %q\nwant %q", c.SearchableContent(), want)
	}
}

func TestBuildSearchableContent_SkipsBlankParts(t *testing.T) {
	got := BuildSearchableContent("clip.mp4", "", nil, "transcript")
	if got != "clip.mp4 transcript" {
		t.Errorf("expected blank parts skipped, got %q", got)
	}
}

func TestThumbnailEmbedding_SlotBounds(t *testing.T) {
	p := validParams()
	p.ThumbEmbeddings[0] = []float32{0.1, 0.2, 0.3}
	c := Reconstruct(p)

	if len(c.ThumbnailEmbedding(1)) != 3 {
		t.Error("expected slot 1 vector")
	}
	if c.ThumbnailEmbedding(0) != nil {
		t.Error("expected nil for slot 0")
	}
	if c.ThumbnailEmbedding(4) != nil {
		t.Error("expected nil for slot out of range")
	}
}

func TestEmbeddingPresence(t *testing.T) {
	t.Run("no vectors", func(t *testing.T) {
		c := Reconstruct(validParams())
		if c.HasTextEmbedding() || c.HasVisualEmbedding() {
			t.Error("expected no embeddings present")
		}
	})

	t.Run("keyword only counts as text", func(t *testing.T) {
		p := validParams()
		p.KeywordEmbedding = []float32{0.1, 0.2}
		c := Reconstruct(p)
		if !c.HasTextEmbedding() {
			t.Error("expected HasTextEmbedding=true")
		}
		if c.HasVisualEmbedding() {
			t.Error("expected HasVisualEmbedding=false")
		}
	})

	t.Run("any thumbnail slot counts as visual", func(t *testing.T) {
		p := validParams()
		p.ThumbEmbeddings[2] = []float32{0.1, 0.2, 0.3}
		c := Reconstruct(p)
		if !c.HasVisualEmbedding() {
			t.Error("expected HasVisualEmbedding=true")
		}
	})
}
