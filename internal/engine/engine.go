// Package engine implements the bitcask-style storage engine: recovery,
// the set/get/remove protocol, and the trigger for log compaction. It is
// the public face of the store; callers never touch internal/storage or
// internal/format directly.
package engine

import (
	"errors"
	"io"
	"log/slog"

	"github.com/nandanvikas/kvs/internal/format"
	"github.com/nandanvikas/kvs/internal/kverrors"
	"github.com/nandanvikas/kvs/internal/storage"
)

// DefaultCompactThreshold is COMPACT_MODIFICATION_CT from the spec: the
// modification counter value at which maybeCompact stops being a no-op.
const DefaultCompactThreshold = 20

// Options configures an Engine at Open time.
type Options struct {
	// Safe forces a sync after every mutation. Default false: a crash may
	// lose the tail of unsynced appends, but the OS has already accepted
	// them into its page cache.
	Safe bool
	// CompactThreshold overrides DefaultCompactThreshold; zero means use
	// the default.
	CompactThreshold uint64
	// LockDir takes an advisory lock on the directory for the engine's
	// lifetime, guarding against a second engine opening the same log.
	LockDir bool
}

// Engine owns the log file and the in-memory index, and enforces the
// store's invariants across Set/Get/Remove.
type Engine struct {
	log              *storage.Log
	index            *KeyDir
	safe             bool
	compactThreshold uint64
	modCt            uint64
	poisoned         error
}

// Open creates dir/kvs.db if absent, recovers the index from it, may
// immediately compact, and returns a ready Engine.
func Open(dir string, opts Options) (*Engine, error) {
	log, err := storage.Open(dir, opts.LockDir)
	if err != nil {
		return nil, err
	}

	threshold := opts.CompactThreshold
	if threshold == 0 {
		threshold = DefaultCompactThreshold
	}

	e := &Engine{
		log:              log,
		index:            NewKeyDir(),
		safe:             opts.Safe,
		compactThreshold: threshold,
	}

	if err := e.recover(); err != nil {
		log.Close()
		return nil, err
	}

	if err := e.maybeCompact(); err != nil {
		log.Close()
		return nil, err
	}

	slog.Info("engine: opened", "dir", dir, "keys", e.index.Len(), "safe", e.safe)
	return e, nil
}

// recover rebuilds the index by scanning the log from byte 0, stopping at
// the first record that fails to decode cleanly via end-of-input (which
// includes a crash-truncated tail record, per the codec's tolerant EOF
// policy). A genuine parse failure aborts recovery with an error.
func (e *Engine) recover() error {
	f, err := e.log.Reader()
	if err != nil {
		return err
	}
	defer f.Close()

	entryNumber := 0
	for {
		offset, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return &kverrors.GetPosition{Filename: e.log.Path(), Cause: err}
		}

		entry, err := format.Decode(f)
		if errors.Is(err, format.ErrEndOfInput) {
			break
		}
		if err != nil {
			return &kverrors.LogParse{EntryNumber: entryNumber, Cause: err}
		}

		switch entry.Kind {
		case format.KindSet:
			if _, ok := e.index.Lookup(entry.Key); ok {
				e.modCt++
			}
			e.index.Set(entry.Key, uint64(offset))
		case format.KindRemove:
			if _, ok := e.index.Lookup(entry.Key); ok {
				e.modCt++
			}
			e.index.Remove(entry.Key)
		}
		entryNumber++
	}

	slog.Info("engine: recovery complete", "entries", entryNumber, "keys", e.index.Len(), "mod_ct", e.modCt)
	return nil
}

// Set stores value under key, appending a Set record and updating the
// index to point at it.
func (e *Engine) Set(key, value string) error {
	if e.poisoned != nil {
		return &kverrors.EnginePoisoned{Cause: e.poisoned}
	}

	_, existed := e.index.Lookup(key)

	offset, err := e.log.AppendRecord(format.LogEntry{Kind: format.KindSet, Key: key, Value: value})
	if err != nil {
		return &kverrors.LogAppendSet{Key: key, Value: value, Cause: err}
	}

	if existed {
		e.modCt++
	}
	e.index.Set(key, offset)

	if err := e.maybeCompact(); err != nil {
		return err
	}

	if e.safe {
		if err := e.log.Sync(); err != nil {
			return &kverrors.LogSync{Key: key, Cause: err}
		}
	}

	slog.Debug("engine: set", "key", key, "offset", offset)
	return nil
}

// Get returns the value stored under key, or ok=false if key is not live.
// A non-nil error indicates the index pointed at a record the log can no
// longer reconstruct: an index/log inconsistency, treated as corruption.
func (e *Engine) Get(key string) (value string, ok bool, err error) {
	if e.poisoned != nil {
		return "", false, &kverrors.EnginePoisoned{Cause: e.poisoned}
	}

	offset, ok := e.index.Lookup(key)
	if !ok {
		return "", false, nil
	}

	entry, err := e.log.ReadRecordAt(offset)
	if err != nil {
		wrapped := &kverrors.LogLookup{Key: key, Filename: e.log.Path(), Offset: offset, Cause: err}
		e.poison(wrapped)
		return "", false, wrapped
	}

	if entry.Kind != format.KindSet {
		wrapped := &kverrors.LogEntryKindInvalid{Key: key, FoundKey: entry.Key, Filename: e.log.Path(), Offset: offset}
		e.poison(wrapped)
		return "", false, wrapped
	}
	if entry.Key != key {
		wrapped := &kverrors.LogEntryKeyMismatch{Key: key, FoundKey: entry.Key, Filename: e.log.Path(), Offset: offset}
		e.poison(wrapped)
		return "", false, wrapped
	}

	slog.Debug("engine: get", "key", key, "offset", offset)
	return entry.Value, true, nil
}

// Remove deletes key from the store, appending a Remove record. It fails
// with kverrors.RemoveNonexistentKey if key is not live.
func (e *Engine) Remove(key string) error {
	if e.poisoned != nil {
		return &kverrors.EnginePoisoned{Cause: e.poisoned}
	}

	if _, ok := e.index.Lookup(key); !ok {
		return &kverrors.RemoveNonexistentKey{Key: key}
	}

	e.modCt++
	e.index.Remove(key)

	if _, err := e.log.AppendRecord(format.LogEntry{Kind: format.KindRemove, Key: key}); err != nil {
		return &kverrors.LogAppendRemove{Key: key, Cause: err}
	}

	if err := e.maybeCompact(); err != nil {
		return err
	}

	if e.safe {
		if err := e.log.Sync(); err != nil {
			return &kverrors.LogSync{Key: key, Cause: err}
		}
	}

	slog.Debug("engine: remove", "key", key)
	return nil
}

// Len returns the number of live keys in the index.
func (e *Engine) Len() int {
	return e.index.Len()
}

// Close releases the engine's file handle and advisory lock.
func (e *Engine) Close() error {
	return e.log.Close()
}

// poison marks the engine unusable after a corruption error: per spec,
// the engine's internal state may no longer reflect durable state once an
// invariant has been violated, so subsequent calls are refused outright
// instead of risking further damage.
func (e *Engine) poison(cause error) {
	if e.poisoned == nil {
		e.poisoned = cause
		slog.Error("engine: poisoned by corruption", "error", cause)
	}
}
