// Package record provides read access to content records and their
// attachments.
//
// The indexing core only reads records. FSStore is the bundled
// implementation: one directory per record holding a record.yaml and the
// attachment files.
package record

import (
	"context"
	"time"
)

// Record is a content entity that owns zero or more attachments.
// Record IDs are always positive.
type Record struct {
	ID       int64
	Title    string
	Template string
	// AuthorRef is the author reference id. Zero means the record has none.
	AuthorRef   int64
	Fields      map[string]string
	Attachments []Attachment
}

// Attachment is a file belonging to exactly one record.
type Attachment struct {
	// Name is the attachment's basename.
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// HasAuthor reports whether the record carries an author reference.
func (r Record) HasAuthor() bool {
	return r.AuthorRef > 0
}

// Attachment returns the attachment named name.
func (r Record) Attachment(name string) (Attachment, bool) {
	for _, a := range r.Attachments {
		if a.Name == name {
			return a, true
		}
	}
	return Attachment{}, false
}

// Store looks records up by id or by selector.
type Store interface {
	// Get returns the record with id, including its attachments.
	Get(ctx context.Context, id int64) (*Record, error)

	// FindIDs returns the ids of all records matching sel in ascending order.
	FindIDs(ctx context.Context, sel Selector) ([]int64, error)
}
