package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// EventArchiveStore provides the read access the archiver needs from the
// journal store. The Postgres EventStore satisfies it.
type EventArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Event, error)
}

// Archiver exports journal entries older than a cutoff to object storage as
// JSONL. Deletion of archived rows from the primary store is intentionally
// NOT performed here -- the journal is append-only and trimming it is a
// separate, explicit operator step after the export has been verified.
type Archiver struct {
	writer domain.BlobWriter
	events EventArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, events EventArchiveStore) *Archiver {
	return &Archiver{writer: writer, events: events}
}

// ArchiveEvents queries all journal entries before the cutoff, serializes
// them to JSONL, and uploads the file to archive/events/YYYY-MM.jsonl. It
// returns the number of archived entries; zero entries is not an error and
// uploads nothing.
func (a *Archiver) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.events.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	return int64(len(events)), nil
}

// marshalJSONL encodes a slice of events as newline-delimited JSON.
func marshalJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// archivePath builds the object key for an export with the given cutoff.
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/events/%s.jsonl", before.UTC().Format("2006-01"))
}
