package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// RoundArchiveStore is the slice of the round store the archiver reads from.
type RoundArchiveStore interface {
	ListSettledBefore(ctx context.Context, before time.Time, limit int) ([]domain.AuctionRound, error)
}

// Archiver uploads settled auction rounds as JSONL objects, one file per
// calendar month of the cutoff.
//
// Deletion of archived rounds from the primary store is intentionally NOT
// performed here; that is a separate, explicit step after the archive has
// been verified.
type Archiver struct {
	client *Client
	rounds RoundArchiveStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver over an established S3 client.
func NewArchiver(client *Client, rounds RoundArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		client: client,
		rounds: rounds,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveRounds queries all rounds settled before the cutoff, serializes
// them to JSONL, and uploads the file to archive/rounds/YYYY-MM.jsonl.
// Returns the number of archived rounds.
func (a *Archiver) ArchiveRounds(ctx context.Context, before time.Time) (int64, error) {
	rounds, err := a.rounds.ListSettledBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive rounds query: %w", err)
	}
	if len(rounds) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rounds)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive rounds marshal: %w", err)
	}

	path := archivePath("rounds", before)
	if err := a.put(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive rounds upload: %w", err)
	}

	a.logger.InfoContext(ctx, "rounds archived",
		slog.String("path", path),
		slog.Int("count", len(rounds)),
	)
	return int64(len(rounds)), nil
}

// put uploads one object to the configured bucket.
func (a *Archiver) put(ctx context.Context, path string, data []byte) error {
	_, err := a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", path, err)
	}
	return nil
}

// archivePath builds the object key for an archive of the given kind,
// bucketed by the cutoff month.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
