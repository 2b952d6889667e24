// Package persistence backs the room server's initialStorage/onStorageChange
// hooks (SPEC_FULL §4.2's "Expansion: persisted operation/snapshot schema")
// with a Postgres operation log plus MinIO-backed snapshot blobs. Grounded
// on the teacher's internal/repository/{operation,snapshot}_repository.go,
// generalized from a single canvas document to arbitrary rooms.
package persistence

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryanwaits/openblocks-sub000/internal/crdt"
)

// OperationLog appends every applied storage op to room_operations, purely
// for audit/analytics — room load time never replays it, since
// SnapshotStore always keeps a fresh full snapshot within
// Hooks' re-snapshot thresholds (DefaultSnapshotIntervalOps/
// DefaultSnapshotIntervalMs unless NewHooks is given others) of the most
// recent op.
type OperationLog struct {
	db *pgxpool.Pool
}

// NewOperationLog returns a log backed by db.
func NewOperationLog(db *pgxpool.Pool) *OperationLog {
	return &OperationLog{db: db}
}

// Append records each op in ops against roomID.
func (l *OperationLog) Append(ctx context.Context, roomID string, ops []crdt.Op) error {
	for _, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		_, err = l.db.Exec(ctx,
			`INSERT INTO room_operations (id, room_id, clock, op) VALUES ($1, $2, $3, $4)`,
			uuid.New(), roomID, op.Clock, data,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
