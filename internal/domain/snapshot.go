package domain

import "time"

// SnapshotStatus is the loading state of the in-memory dataset
type SnapshotStatus string

const (
	SnapshotLoading SnapshotStatus = "loading"
	SnapshotReady   SnapshotStatus = "ready"
	SnapshotError   SnapshotStatus = "error"
)

// Snapshot is an immutable canonical dataset produced by one fetch.
// A refetch builds a new Snapshot and swaps it in whole.
type Snapshot struct {
	Status     SnapshotStatus
	Records    []Record
	Categories []string
	Channels   []string
	Error      string
	LoadedAt   time.Time
}

// Err returns the error a reader gets when the snapshot cannot serve views
func (s *Snapshot) Err() error {
	switch {
	case s == nil || s.Status == SnapshotLoading:
		return ErrDataLoading
	case s.Status == SnapshotError:
		return ErrDataUnavailable
	}
	return nil
}
