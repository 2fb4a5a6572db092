package homepage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

type fakeCreator struct {
	errs  map[string]error
	calls []string
}

func (f *fakeCreator) Create(ctx context.Context, url, title, category string) (*domain.Bookmark, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return &domain.Bookmark{URL: url, Title: title, Category: category}, nil
}

func TestImport(t *testing.T) {
	creator := &fakeCreator{errs: map[string]error{
		"https://b.example": fmt.Errorf("https://b.example: %w", domain.ErrDuplicate),
		"notaurl":           fmt.Errorf("%w: bad url", domain.ErrValidation),
	}}

	res, err := NewImporter(creator, logger.Nop()).Import(context.Background(), []Entry{
		{URL: "https://a.example"},
		{URL: "https://b.example"},
		{URL: "notaurl"},
		{URL: "https://c.example"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	want := Result{Created: 2, Duplicates: 1, Invalid: 1}
	if res != want {
		t.Fatalf("Import() = %+v, want %+v", res, want)
	}
}

func TestImportStopsOnTransient(t *testing.T) {
	creator := &fakeCreator{errs: map[string]error{
		"https://b.example": fmt.Errorf("failed to insert: %w", domain.ErrTransient),
	}}

	res, err := NewImporter(creator, logger.Nop()).Import(context.Background(), []Entry{
		{URL: "https://a.example"},
		{URL: "https://b.example"},
		{URL: "https://c.example"},
	})
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("expected 1 created before the failure, got %d", res.Created)
	}
	if len(creator.calls) != 2 {
		t.Fatalf("expected import to stop after the failure, got calls %v", creator.calls)
	}
}
