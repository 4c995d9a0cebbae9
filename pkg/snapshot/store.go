// Package snapshot persists processed digest batches in Pebble so a GET
// can read back the most recent digest for a channel without re-running
// generation. One snapshot is kept per channel; a slug alias allows
// lookup by topic.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"chatforum/pkg/logger"
	"chatforum/pkg/models"
)

var db *pebble.DB

// ErrNotFound is returned when no snapshot exists for the given key.
var ErrNotFound = errors.New("snapshot not found")

const (
	channelPrefix = "snap:channel:"
	slugPrefix    = "snap:slug:"
)

// Open opens (or creates) the Pebble database at path and keeps a
// package handle.
func Open(path string) error {
	var err error
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened database if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened.
func Ready() bool {
	return db != nil
}

func channelKey(channelID string) []byte { return []byte(channelPrefix + channelID) }
func slugKey(slug string) []byte         { return []byte(slugPrefix + slug) }

// Save stores the snapshot under its channel id and writes the slug
// alias. maxBytes caps the marshalled size; zero means no cap.
func Save(snap models.Snapshot, ttl time.Duration, maxBytes uint64) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call snapshot.Open first")
	}
	if snap.ChannelID == "" {
		return fmt.Errorf("snapshot missing channel id")
	}
	if ttl > 0 {
		snap.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if maxBytes > 0 && uint64(len(data)) > maxBytes {
		return fmt.Errorf("snapshot for %s is %d bytes, cap is %d", snap.ChannelID, len(data), maxBytes)
	}
	if err := db.Set(channelKey(snap.ChannelID), data, pebble.Sync); err != nil {
		return err
	}
	if snap.Slug != "" {
		if err := db.Set(slugKey(snap.Slug), []byte(snap.ChannelID), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func get(key []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if db == nil {
		return snap, fmt.Errorf("pebble not opened; call snapshot.Open first")
	}
	val, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return snap, ErrNotFound
		}
		return snap, err
	}
	defer closer.Close()
	if err := json.Unmarshal(val, &snap); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.ExpiresAt > 0 && snap.ExpiresAt <= time.Now().Unix() {
		return models.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// GetByChannel returns the live snapshot for a channel id. Expired
// snapshots behave as missing.
func GetByChannel(channelID string) (models.Snapshot, error) {
	return get(channelKey(channelID))
}

// GetBySlug resolves a topic slug to its channel and returns that
// channel's snapshot.
func GetBySlug(slug string) (models.Snapshot, error) {
	if db == nil {
		return models.Snapshot{}, fmt.Errorf("pebble not opened; call snapshot.Open first")
	}
	val, closer, err := db.Get(slugKey(slug))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return models.Snapshot{}, ErrNotFound
		}
		return models.Snapshot{}, err
	}
	channelID := string(val)
	closer.Close()
	return GetByChannel(channelID)
}

// SweepExpired deletes every snapshot whose expiry has passed, along
// with its slug alias, and returns the number removed.
func SweepExpired(now time.Time) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call snapshot.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(channelPrefix),
		UpperBound: []byte(channelPrefix + "\xff"),
	})
	if err != nil {
		return 0, err
	}
	type victim struct {
		key  []byte
		slug string
	}
	var victims []victim
	for iter.First(); iter.Valid(); iter.Next() {
		var snap models.Snapshot
		if err := json.Unmarshal(iter.Value(), &snap); err != nil {
			continue
		}
		if snap.ExpiresAt > 0 && snap.ExpiresAt <= now.Unix() {
			k := append([]byte(nil), iter.Key()...)
			victims = append(victims, victim{key: k, slug: snap.Slug})
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, v := range victims {
		if err := db.Delete(v.key, pebble.Sync); err != nil {
			return 0, err
		}
		if v.slug != "" {
			if err := db.Delete(slugKey(v.slug), pebble.Sync); err != nil {
				return 0, err
			}
		}
	}
	return len(victims), nil
}
