package storage

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jasmine-z2a/studio/internal/feed"
)

const snapSuffix = ".snap"

// snapshotFilename builds panel_{encodedTopic}_{minTs}_{maxTs}.snap.
// Topic names carry '/' so they are base64url-encoded in filenames.
func snapshotFilename(topic string, minTs, maxTs int64) string {
	enc := base64.RawURLEncoding.EncodeToString([]byte(topic))
	return fmt.Sprintf("panel_%s_%d_%d%s", enc, minTs, maxTs, snapSuffix)
}

// parseSnapshotFilename extracts the topic and timestamp bounds.
func parseSnapshotFilename(name string) (topic string, minTs, maxTs int64, err error) {
	base := strings.TrimSuffix(name, snapSuffix)
	if !strings.HasPrefix(base, "panel_") || base == name {
		return "", 0, 0, fmt.Errorf("invalid snapshot name")
	}
	parts := strings.Split(strings.TrimPrefix(base, "panel_"), "_")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("invalid snapshot name")
	}
	topicBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", 0, 0, err
	}
	minTs, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, err
	}
	maxTs, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, err
	}
	return string(topicBytes), minTs, maxTs, nil
}

// SaveAll writes one snapshot per non-empty topic history, replacing any
// previous snapshot for the same topic. Each snapshot is written to a
// temp file and renamed into place, and the previous snapshot is removed
// only after the new one exists, so a failed write never costs the topic
// its persisted history.
func SaveAll(dir string, store *feed.Store) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	writer, err := NewSnapshotWriter()
	if err != nil {
		return err
	}

	for _, t := range store.Topics() {
		recs := store.Records(t.Name)
		if len(recs) == 0 {
			continue
		}

		name := snapshotFilename(t.Name, recs[0].Timestamp, recs[len(recs)-1].Timestamp)
		path := filepath.Join(dir, name)
		tmp := path + ".tmp"
		if err := writer.WriteSnapshot(tmp, t.Name, t.Datatype, recs); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("snapshot %s: %w", t.Name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("snapshot %s: %w", t.Name, err)
		}
		removeTopicSnapshots(dir, t.Name, name)
	}
	return nil
}

// LoadAll restores every snapshot in dir into the store. Unreadable files
// are skipped with a log line rather than failing startup.
func LoadAll(dir string, store *feed.Store) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	reader, err := NewSnapshotReader()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapSuffix) {
			continue
		}
		topic, datatype, recs, err := reader.ReadSnapshot(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Skipping unreadable snapshot %s: %v", entry.Name(), err)
			continue
		}
		store.Restore(topic, datatype, recs)
	}
	return nil
}

// PurgeExpired removes snapshot files whose newest record is older than
// the retention window. Zero or negative retention disables purging.
func PurgeExpired(dir string, retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Snapshot purge: failed to read %s: %v", dir, err)
		}
		return 0
	}

	threshold := time.Now().Add(-retention).UnixNano()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapSuffix) {
			continue
		}
		_, _, maxTs, err := parseSnapshotFilename(entry.Name())
		if err != nil {
			continue // unexpected name, leave it alone
		}
		if maxTs < threshold {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Snapshot purge: failed to delete %s: %v", entry.Name(), err)
				continue
			}
			log.Printf("Expired snapshot deleted: %s", entry.Name())
			removed++
		}
	}
	return removed
}

// RunCleaner purges expired snapshots on a ticker until ctx-free shutdown;
// it is started as a background goroutine from main.
func RunCleaner(dir string, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Snapshot cleaner started. Retention: %v, Interval: %v", retention, interval)
	for range ticker.C {
		PurgeExpired(dir, retention)
	}
}

// removeTopicSnapshots deletes the topic's snapshot files except keep.
func removeTopicSnapshots(dir, topic, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == keep || !strings.HasSuffix(entry.Name(), snapSuffix) {
			continue
		}
		t, _, _, err := parseSnapshotFilename(entry.Name())
		if err == nil && t == topic {
			os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}
