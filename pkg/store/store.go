package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/cutover/cutover/pkg/types"
)

var (
	// Bucket names
	bucketRuns   = []byte("runs")
	bucketActive = []byte("active")

	activeKey = []byte("current")
)

// Store indexes finalized deployment runs and holds the active-run marker
// used to reject concurrent migrations. Backed by a BoltDB file in the
// configured output directory.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the run store under dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "cutover.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketActive} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun claims the active-run marker for run. Returns
// ErrMigrationInProgress when another run holds it; the marker check and
// claim happen in one transaction, so two concurrent deploys cannot both
// proceed.
func (s *Store) BeginRun(run *types.DeploymentRun) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		active := tx.Bucket(bucketActive)
		if holder := active.Get(activeKey); holder != nil {
			return fmt.Errorf("%w: run %s", types.ErrMigrationInProgress, holder)
		}
		return active.Put(activeKey, []byte(run.ID))
	})
}

// FinishRun persists the finalized run and releases the active marker
func (s *Store) FinishRun(run *types.DeploymentRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(run.ID), data); err != nil {
			return err
		}

		active := tx.Bucket(bucketActive)
		if holder := active.Get(activeKey); string(holder) == run.ID {
			return active.Delete(activeKey)
		}
		return nil
	})
}

// ActiveRun returns the ID of the run holding the marker, or "" if none
func (s *Store) ActiveRun() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(bucketActive).Get(activeKey))
		return nil
	})
	return id, err
}

// ClearActive force-releases the active marker. Only for operator use
// after a crashed run left a stale marker behind.
func (s *Store) ClearActive() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketActive).Delete(activeKey)
	})
}

// GetRun loads one finalized run by ID
func (s *Store) GetRun(id string) (*types.DeploymentRun, error) {
	var run types.DeploymentRun
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run %s not found", id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all finalized runs, most recent first
func (s *Store) ListRuns() ([]*types.DeploymentRun, error) {
	var runs []*types.DeploymentRun
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, data []byte) error {
			var run types.DeploymentRun
			if err := json.Unmarshal(data, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}
