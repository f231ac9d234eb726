package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// Store owns the date-key -> event-bucket collection and its JSON file
// slot. Every mutation runs the same pipeline: change the in-memory
// collection, re-sort the touched bucket, persist the full snapshot. The
// in-memory collection stays authoritative even when a persist fails.
type Store struct {
	mu     sync.RWMutex
	path   string
	events model.Collection
}

// Open loads the collection from path. A missing file starts empty; a
// corrupt file is logged and also starts empty. Open never fails on bad
// store content.
func Open(path string) *Store {
	s := &Store{
		path:   path,
		events: make(model.Collection),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			appLog.Error("store read failed, starting empty", err, "path", path)
		}
		return s
	}

	var loaded model.Collection
	if err := json.Unmarshal(data, &loaded); err != nil {
		appLog.Error("store content corrupt, starting empty", err, "path", path)
		return s
	}
	if loaded == nil {
		loaded = make(model.Collection)
	}
	// Drop empty buckets that a previous writer may have left behind and
	// make sure every bucket is ordered.
	for key, bucket := range loaded {
		if len(bucket) == 0 {
			delete(loaded, key)
			continue
		}
		sortBucket(bucket)
	}
	s.events = loaded

	appLog.Info("store loaded", "path", path, "days", len(loaded))
	return s
}

// Path returns the file slot backing this store.
func (s *Store) Path() string {
	return s.path
}

// Add creates an event from the draft under dateKey with a freshly
// generated unique id, keeps the bucket sorted, and persists. Title
// validation is the editor's job, not the store's.
func (s *Store) Add(dateKey string, draft model.Draft) model.Event {
	ev := model.Event{
		ID:    uuid.NewString(),
		Title: draft.Title,
		Time:  draft.Time,
		Notes: draft.Notes,
	}

	s.mu.Lock()
	s.insertLocked(dateKey, ev)
	s.persistLocked()
	s.mu.Unlock()

	appLog.Debug("event added", "date", dateKey, "id", ev.ID)
	return ev
}

// Update replaces the bucket entry with a matching id, or appends when the
// id is not present (defensive fallback). The bucket is re-sorted and the
// collection persisted.
func (s *Store) Update(dateKey string, ev model.Event) {
	s.mu.Lock()
	bucket := s.events[dateKey]
	replaced := false
	for i := range bucket {
		if bucket[i].ID == ev.ID {
			bucket[i] = ev
			replaced = true
			break
		}
	}
	if replaced {
		sortBucket(bucket)
	} else {
		s.insertLocked(dateKey, ev)
	}
	s.persistLocked()
	s.mu.Unlock()

	appLog.Debug("event updated", "date", dateKey, "id", ev.ID, "replaced", replaced)
}

// Delete removes the event with the given id from dateKey's bucket. An
// emptied bucket's key is removed from the collection entirely.
func (s *Store) Delete(dateKey, id string) {
	s.mu.Lock()
	bucket := s.events[dateKey]
	kept := bucket[:0]
	for _, ev := range bucket {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	if len(kept) == 0 {
		delete(s.events, dateKey)
	} else {
		s.events[dateKey] = kept
	}
	s.persistLocked()
	s.mu.Unlock()

	appLog.Debug("event deleted", "date", dateKey, "id", id)
}

// Move reassigns an event to a different date key: removed from fromKey,
// inserted into toKey, persisted once. Editing an event's date goes
// through here so the old bucket never keeps a stale duplicate.
func (s *Store) Move(fromKey, toKey string, ev model.Event) {
	if fromKey == toKey {
		s.Update(fromKey, ev)
		return
	}

	s.mu.Lock()
	bucket := s.events[fromKey]
	kept := bucket[:0]
	for _, e := range bucket {
		if e.ID != ev.ID {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(s.events, fromKey)
	} else {
		s.events[fromKey] = kept
	}
	s.insertLocked(toKey, ev)
	s.persistLocked()
	s.mu.Unlock()

	appLog.Debug("event moved", "from", fromKey, "to", toKey, "id", ev.ID)
}

// EventsOn returns a copy of the bucket for dateKey, in time order.
func (s *Store) EventsOn(dateKey string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.events[dateKey]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]model.Event, len(bucket))
	copy(out, bucket)
	return out
}

// Find returns the event with the given id under dateKey.
func (s *Store) Find(dateKey, id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events[dateKey] {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Has reports whether dateKey currently holds a non-empty bucket.
func (s *Store) Has(dateKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[dateKey]
	return ok
}

// Snapshot returns a deep copy of the whole collection.
func (s *Store) Snapshot() model.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Clone()
}

// Keys returns all date keys with events, sorted (which is chronological
// for canonical keys).
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.events))
	for key := range s.events {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (s *Store) insertLocked(dateKey string, ev model.Event) {
	bucket := append(s.events[dateKey], ev)
	sortBucket(bucket)
	s.events[dateKey] = bucket
}

// persistLocked writes the full collection snapshot to the file slot.
// Failures are logged and swallowed: persistence is best-effort and the
// session keeps running on the in-memory state.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		appLog.Error("store marshal failed", err, "path", s.path)
		return
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		appLog.Error("store dir create failed", err, "dir", dir)
		return
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, ".schedcal-events-*.tmp")
	if err != nil {
		appLog.Error("store temp create failed", err, "dir", dir)
		return
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		appLog.Error("store write failed", err, "path", s.path)
		return
	}
	if err := tmp.Close(); err != nil {
		appLog.Error("store close failed", err, "path", s.path)
		return
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		appLog.Error("store rename failed", err, "path", s.path)
	}
}

// sortBucket orders a bucket ascending by time-of-day. The sort is stable
// so events with equal times keep their insertion order.
func sortBucket(bucket []model.Event) {
	sort.SliceStable(bucket, func(i, j int) bool {
		return model.TimeToMinutes(bucket[i].Time) < model.TimeToMinutes(bucket[j].Time)
	})
}
