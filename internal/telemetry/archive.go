// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jeranaias/tidedesk/internal/util"
)

// snapshotCounter keeps IDs unique when snapshots are taken rapidly.
var snapshotCounter uint64

const snapshotLayout = "20060102-150405"

// Snapshot is a saved pair of reports.
type Snapshot struct {
	ID          string            `json:"id"`
	Taken       time.Time         `json:"taken"`
	Errors      ErrorReport       `json:"errors"`
	Performance PerformanceReport `json:"performance"`
}

// TakeSnapshot builds a snapshot from the two logs.
func TakeSnapshot(ctx context.Context, errs *ErrorLog, perf *PerformanceLog) *Snapshot {
	now := time.Now()
	s := &Snapshot{
		ID:    now.Format(snapshotLayout) + "-" + fmt.Sprint(atomic.AddUint64(&snapshotCounter, 1)),
		Taken: now,
	}
	if errs != nil {
		s.Errors = errs.Report(ctx)
	}
	if perf != nil {
		s.Performance = perf.Report(ctx)
	}
	return s
}

// =============================================================================
// REPORT ARCHIVE
// =============================================================================

// ReportArchive persists snapshots as JSON files in a directory.
type ReportArchive struct {
	dir string
}

// NewReportArchive opens dir, creating it if needed.
func NewReportArchive(dir string) (*ReportArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("report archive directory required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &ReportArchive{dir: dir}, nil
}

// Dir returns the archive directory.
func (a *ReportArchive) Dir() string { return a.dir }

// Save writes s to disk and returns the file path.
func (a *ReportArchive) Save(s *Snapshot) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, s.ID+".json")
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the snapshot with id.
func (a *ReportArchive) Load(id string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(a.dir, id+".json"))
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &s, nil
}

// List returns snapshot IDs taken within [from, to], oldest first.
func (a *ReportArchive) List(from, to time.Time) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		id, taken, ok := parseSnapshotName(entry)
		if !ok {
			continue
		}
		if taken.Before(from) || taken.After(to) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteBefore removes snapshots taken before cutoff and returns how many.
func (a *ReportArchive) DeleteBefore(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		_, taken, ok := parseSnapshotName(entry)
		if !ok || !taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored snapshots.
func (a *ReportArchive) Count() (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, entry := range entries {
		if _, _, ok := parseSnapshotName(entry); ok {
			n++
		}
	}
	return n, nil
}

// parseSnapshotName extracts the ID and local time from names like
// 20240301-080000-3.json.
func parseSnapshotName(entry os.DirEntry) (string, time.Time, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
		return "", time.Time{}, false
	}
	id := strings.TrimSuffix(entry.Name(), ".json")
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return "", time.Time{}, false
	}
	taken, err := time.ParseInLocation(snapshotLayout, parts[0]+"-"+parts[1], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return id, taken, true
}
