package engine

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/nandanvikas/kvs/internal/format"
	"github.com/nandanvikas/kvs/internal/kverrors"
	"github.com/nandanvikas/kvs/internal/storage"
)

// maybeCompact triggers a compaction once the modification counter reaches
// compactThreshold; otherwise it is a no-op.
func (e *Engine) maybeCompact() error {
	if e.modCt < e.compactThreshold {
		return nil
	}
	return e.compact()
}

// compact rewrites the log to contain exactly one Set record per live key,
// in disk order (the order recommended by the spec, since it makes this a
// single linear scan of the old file), then atomically replaces the old
// log with the rewritten one.
func (e *Engine) compact() error {
	tmpPath := filepath.Join(e.log.Dir(), storage.LogFileName+".tmp")
	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return &kverrors.OpenLog{Filename: tmpPath, Cause: err}
	}

	entries := e.index.Snapshot()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	newIndex := NewKeyDir()
	writer := bufio.NewWriter(tmpFile)
	var writeOffset uint64

	abort := func(err error) error {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}

	for _, live := range entries {
		record, err := e.log.ReadRecordAt(live.Offset)
		var corrupt error
		if err != nil {
			corrupt = &kverrors.LogLookup{Key: live.Key, Filename: e.log.Path(), Offset: live.Offset, Cause: err}
		} else if record.Kind != format.KindSet {
			corrupt = &kverrors.LogEntryKindInvalid{Key: live.Key, FoundKey: record.Key, Filename: e.log.Path(), Offset: live.Offset}
		} else if record.Key != live.Key {
			corrupt = &kverrors.LogEntryKeyMismatch{Key: live.Key, FoundKey: record.Key, Filename: e.log.Path(), Offset: live.Offset}
		}
		if corrupt != nil {
			e.poison(corrupt)
			return abort(corrupt)
		}

		data := format.Encode(record)
		if _, err := writer.Write(data); err != nil {
			return abort(&kverrors.CompactionFlushFailed{Cause: err})
		}
		newIndex.Set(live.Key, writeOffset)
		writeOffset += uint64(len(data))
	}

	if err := writer.Flush(); err != nil {
		return abort(&kverrors.CompactionFlushFailed{Cause: err})
	}
	if err := tmpFile.Sync(); err != nil {
		return abort(&kverrors.CompactionSyncFailed{Cause: err})
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return &kverrors.CompactionSyncFailed{Cause: err}
	}

	if err := e.log.ReplaceWith(tmpPath); err != nil {
		os.Remove(tmpPath)
		return &kverrors.CompactionRenameFailed{Cause: err}
	}

	e.index = newIndex
	e.modCt = 0

	slog.Info("engine: compaction complete", "keys", newIndex.Len())
	return nil
}
