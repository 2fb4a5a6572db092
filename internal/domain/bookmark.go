package domain

import (
	"strings"
	"time"
)

// DefaultCategory is applied when a bookmark is created without a category.
const DefaultCategory = "general"

// Bookmark represents a saved URL owned by a single user.
//
// Rows live in the backing store; the reconciliation store only ever holds
// a mirror of the rows of the active owner.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the backing store at creation.
	ID string `json:"id"`

	// OwnerID is the user id of the session that created the bookmark.
	// It is never user-editable.
	OwnerID string `json:"user_id"`

	// ─────────────────────────────
	// User-editable fields
	// ─────────────────────────────

	// URL is an absolute http(s) URI.
	// Example: https://go.dev/doc/
	URL string `json:"url"`

	// Title defaults to URL when left blank.
	Title string `json:"title"`

	// Category is a free-text label, "general" by default.
	Category string `json:"category"`

	// IsFavorite pins the bookmark at the top of the favorites sort.
	IsFavorite bool `json:"is_favorite"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned at insert and never changes.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy that can be handed out without sharing the row.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Patch holds the fields of an update request. Nil fields are left untouched.
type Patch struct {
	URL        *string `json:"url,omitempty"`
	Title      *string `json:"title,omitempty"`
	Category   *string `json:"category,omitempty"`
	IsFavorite *bool   `json:"is_favorite,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.URL == nil && p.Title == nil && p.Category == nil && p.IsFavorite == nil
}

// Apply writes the patch onto b. Blank titles and categories fall back to
// their creation defaults so a row never ends up with an empty label.
func (p Patch) Apply(b *Bookmark) {
	if p.URL != nil {
		b.URL = strings.TrimSpace(*p.URL)
	}
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if b.Title == "" {
		b.Title = b.URL
	}
	if p.Category != nil {
		b.Category = NormalizeCategory(*p.Category)
	}
	if p.IsFavorite != nil {
		b.IsFavorite = *p.IsFavorite
	}
}

// NormalizeCategory trims the label and falls back to DefaultCategory.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}
