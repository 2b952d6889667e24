package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"

	"github.com/ryanwaits/openblocks-sub000/internal/database"
)

// SnapshotStore writes a room's full serialized CRDT tree to a MinIO blob
// and indexes it with a Postgres row pointing at that blob, grounded on the
// teacher's asset-bucket usage pattern (internal/service/asset_service.go):
// Postgres holds the pointer, the object store holds the opaque bytes.
type SnapshotStore struct {
	db     *pgxpool.Pool
	blobs  *minio.Client
	bucket string
}

// NewSnapshotStore returns a store writing blobs to bucket in blobs,
// indexed in db's room_snapshots table.
func NewSnapshotStore(db *pgxpool.Pool, blobs *minio.Client, bucket string) *SnapshotStore {
	return &SnapshotStore{db: db, blobs: blobs, bucket: bucket}
}

// Save serializes root, uploads it as a new blob, and records a pointer
// row at clock.
func (s *SnapshotStore) Save(ctx context.Context, roomID string, clock int64, root any) error {
	data, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	blobKey := fmt.Sprintf("room-snapshots/%s/%d-%s.json", roomID, clock, uuid.NewString())
	_, err = s.blobs.PutObject(ctx, s.bucket, blobKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot blob: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO room_snapshots (id, room_id, clock, blob_key) VALUES ($1, $2, $3, $4)`,
		uuid.New(), roomID, clock, blobKey,
	)
	if err != nil {
		return fmt.Errorf("failed to record snapshot pointer: %w", err)
	}
	return nil
}

// Load fetches the most recent snapshot for roomID and deserializes its
// blob, returning (nil, false, nil) if the room has never been snapshotted.
func (s *SnapshotStore) Load(ctx context.Context, roomID string) (any, bool, error) {
	var blobKey string
	err := s.db.QueryRow(ctx,
		`SELECT blob_key FROM room_snapshots WHERE room_id = $1 ORDER BY created_at DESC LIMIT 1`,
		roomID,
	).Scan(&blobKey)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up latest snapshot: %w", err)
	}

	obj, err := s.blobs.GetObject(ctx, s.bucket, blobKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch snapshot blob: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot blob: %w", err)
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot blob: %w", err)
	}
	return root, true, nil
}

// EnsureBucket creates the snapshot bucket if it does not already exist.
func (s *SnapshotStore) EnsureBucket(ctx context.Context) error {
	return database.EnsureBucket(ctx, s.blobs, s.bucket)
}
