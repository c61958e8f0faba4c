// Package archive writes a JSON snapshot of every committed approval decision to object
// storage so the decision history survives outside the database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/salesops/workflow/internal/metrics"
	"github.com/salesops/workflow/internal/workflow/model"
)

const snapshotVersion = 1

// Snapshot is the archived form of a decision.
type Snapshot struct {
	Version    int                        `json:"version"`
	ArchivedAt time.Time                  `json:"archivedAt"`
	Decision   model.DecisionNotification `json:"decision"`
}

// Archiver stores decision snapshots under <prefix>/<yyyy-mm-dd>/<woId>/<stageId>.json.
type Archiver struct {
	driver     StorageDriver
	driverName string
	prefix     string
	now        func() time.Time
}

// NewArchiver wraps a storage driver. driverName labels the archive metrics.
func NewArchiver(driver StorageDriver, driverName, prefix string) *Archiver {
	return &Archiver{
		driver:     driver,
		driverName: driverName,
		prefix:     prefix,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Key returns the object key for a decision.
func (a *Archiver) Key(n model.DecisionNotification) string {
	return path.Join(a.prefix,
		n.DecidedAt.UTC().Format("2006-01-02"),
		n.WorkOrderID.String(),
		n.StageID.String()+".json")
}

// Archive writes the snapshot for n. Re-archiving the same decision overwrites it.
func (a *Archiver) Archive(ctx context.Context, n model.DecisionNotification) error {
	body, err := json.Marshal(Snapshot{
		Version:    snapshotVersion,
		ArchivedAt: a.now(),
		Decision:   n,
	})
	if err != nil {
		metrics.RecordArchiveWrite(a.driverName, 0, err)
		return fmt.Errorf("failed to encode decision snapshot: %w", err)
	}

	key := a.Key(n)
	err = a.driver.Save(ctx, key, bytes.NewReader(body), "application/json")
	metrics.RecordArchiveWrite(a.driverName, len(body), err)
	if err != nil {
		return fmt.Errorf("failed to archive decision %s: %w", key, err)
	}
	return nil
}

// Load reads a snapshot back by key.
func (a *Archiver) Load(ctx context.Context, key string) (*Snapshot, error) {
	body, _, err := a.driver.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read decision snapshot %s: %w", key, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read decision snapshot %s: %w", key, err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode decision snapshot %s: %w", key, err)
	}
	return &snapshot, nil
}
