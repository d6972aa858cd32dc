package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"medscribe/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAssignsStatusByQuality(t *testing.T) {
	tests := []struct {
		name    string
		article types.FinalArticle
		want    string
	}{
		{
			name:    "above threshold publishes",
			article: types.FinalArticle{Title: "A", Slug: "a", Body: "b", QualityScore: 8.2},
			want:    StatusPublished,
		},
		{
			name:    "below threshold goes to review",
			article: types.FinalArticle{Title: "B", Slug: "b", Body: "b", QualityScore: 5.0},
			want:    StatusReview,
		},
		{
			name:    "degraded goes to review regardless of score",
			article: types.FinalArticle{Title: "C", Slug: "c", Body: "b", QualityScore: 9.0, Degraded: true},
			want:    StatusReview,
		},
	}

	s := testStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.Save(context.Background(), "kw", tt.article, "")
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if rec.Status != tt.want {
				t.Fatalf("status = %q; want %q", rec.Status, tt.want)
			}
		})
	}
}

func TestBySlugRoundTrip(t *testing.T) {
	s := testStore(t)

	article := types.FinalArticle{
		Title:           "Semaglutide Side Effects",
		MetaDescription: "what to expect",
		Slug:            "semaglutide-side-effects",
		Body:            "body text",
		QualityScore:    8.5,
		Iterations:      2,
		TokensUsed:      12345,
	}
	if _, err := s.Save(context.Background(), "semaglutide side effects", article, "cms-42"); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := s.BySlug(context.Background(), "semaglutide-side-effects")
	if err != nil {
		t.Fatalf("by slug: %v", err)
	}
	if rec.Title != article.Title || rec.TokensUsed != 12345 || rec.ExternalID != "cms-42" {
		t.Fatalf("round trip mismatch: %+v", rec)
	}

	_, err = s.BySlug(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for missing slug, got %v", err)
	}
}

func TestCatalogOnlyListsPublished(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Save(ctx, "k1", types.FinalArticle{Title: "Good", Slug: "good", Body: "b", QualityScore: 9}, "")
	s.Save(ctx, "k2", types.FinalArticle{Title: "Weak", Slug: "weak", Body: "b", QualityScore: 4}, "")

	entries, err := s.Catalog(ctx, 10)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(entries) != 1 || entries[0].Slug != "good" {
		t.Fatalf("catalog = %+v; want only the published article", entries)
	}
}

func TestExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Save(ctx, "k", types.FinalArticle{Title: "T", Slug: "taken", Body: "b", QualityScore: 9}, "")

	if ok, err := s.Exists(ctx, "taken"); err != nil || !ok {
		t.Fatalf("Exists(taken) = %v, %v; want true", ok, err)
	}
	if ok, err := s.Exists(ctx, "free"); err != nil || ok {
		t.Fatalf("Exists(free) = %v, %v; want false", ok, err)
	}
}
