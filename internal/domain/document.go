// Package domain provides domain models used across the application.
package domain

import "time"

// CachedDocument represents a previously fetched and stored article.
// Exactly one exists per (AccountID, URL); it is created on the first
// successful fetch and never mutated afterwards.
type CachedDocument struct {
	// Unique identifier for the cached document
	ID string `db:"id" json:"id"`
	// Account that owns the stored copy
	AccountID string `db:"account_id" json:"account_id"`
	// Key of the upstream source account the article belongs to
	SourceKey string `db:"source_key" json:"source_key"`
	// Canonical remote URL of the article; dedup key within the account
	URL string `db:"url" json:"url"`
	// Extracted article title
	Title string `db:"title" json:"title"`
	// Identifier of the upstream comment thread, when the page embeds one
	CommentID string `db:"comment_id" json:"comment_id,omitempty"`
	// Path of the stored (rewritten) document relative to the storage root
	LocalPath string `db:"local_path" json:"local_path"`
	// Size of the stored document in bytes
	ByteSize int64 `db:"byte_size" json:"byte_size"`
	// Record creation timestamp
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CachedResource represents one harvested remote asset, typically an image.
// Keyed by (AccountID, SourceURL); fetched over the network at most once and
// reused by every article that references the same asset.
type CachedResource struct {
	ID string `db:"id" json:"id"`
	// Account that owns the stored copy
	AccountID string `db:"account_id" json:"account_id"`
	// Remote URL the asset was harvested from
	SourceURL string `db:"source_url" json:"source_url"`
	// Path of the stored asset relative to the storage root
	LocalPath string `db:"local_path" json:"local_path"`
	// Size of the stored asset in bytes
	ByteSize int64 `db:"byte_size" json:"byte_size"`
	// MIME type reported by the upstream, when available
	MimeType string `db:"mime_type" json:"mime_type,omitempty"`
	// Record creation timestamp
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ResourceMap records, per article, which remote asset URLs were rewritten to
// which local relative paths. Persisted alongside the document so rewritten
// references can be explained or re-applied later.
type ResourceMap struct {
	AccountID string `json:"account_id"`
	// URL of the article the mapping belongs to
	ArticleURL string `json:"article_url"`
	// Remote asset URL -> local relative path
	Mapping URLPathMap `json:"mapping"`
}

// QuotaLedger tracks per-account storage consumption.
type QuotaLedger struct {
	AccountID     string    `db:"account_id" json:"account_id"`
	CapacityBytes int64     `db:"capacity_bytes" json:"capacity_bytes"`
	UsedBytes     int64     `db:"used_bytes" json:"used_bytes"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingBytes returns the unused portion of the quota.
func (q *QuotaLedger) RemainingBytes() int64 {
	remaining := q.CapacityBytes - q.UsedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}
