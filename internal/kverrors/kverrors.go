// Package kverrors defines the closed error taxonomy for the storage engine.
// Every failure mode the engine can produce is one of the exported kinds
// below; callers that need to distinguish corruption from a routine miss
// should use errors.As against these types rather than matching strings.
package kverrors

import "fmt"

// OpenLog reports that opening or creating the log file failed.
type OpenLog struct {
	Filename string
	Cause    error
}

func (e *OpenLog) Error() string {
	return fmt.Sprintf("could not open log file at %s: %v", e.Filename, e.Cause)
}

func (e *OpenLog) Unwrap() error { return e.Cause }

// LogParse reports that a record in the log could not be decoded during
// recovery.
type LogParse struct {
	EntryNumber int
	Cause       error
}

func (e *LogParse) Error() string {
	return fmt.Sprintf("could not read entry %d: %v", e.EntryNumber, e.Cause)
}

func (e *LogParse) Unwrap() error { return e.Cause }

// LogAppendSet reports that encoding or writing a Set record failed.
type LogAppendSet struct {
	Key, Value string
	Cause      error
}

func (e *LogAppendSet) Error() string {
	return fmt.Sprintf("could not append Set(%s,%s) to log: %v", e.Key, e.Value, e.Cause)
}

func (e *LogAppendSet) Unwrap() error { return e.Cause }

// LogAppendRemove reports that encoding or writing a Remove record failed.
type LogAppendRemove struct {
	Key   string
	Cause error
}

func (e *LogAppendRemove) Error() string {
	return fmt.Sprintf("could not append Rm(%s) to log: %v", e.Key, e.Cause)
}

func (e *LogAppendRemove) Unwrap() error { return e.Cause }

// RemoveNonexistentKey reports that the caller tried to remove a key that is
// not live. This is a semantic error, not corruption.
type RemoveNonexistentKey struct {
	Key string
}

func (e *RemoveNonexistentKey) Error() string {
	return fmt.Sprintf("Key not found: %s", e.Key)
}

// LogSync reports that an explicit sync in safe mode failed.
type LogSync struct {
	Key   string
	Cause error
}

func (e *LogSync) Error() string {
	return fmt.Sprintf("log sync failed for %s: %v", e.Key, e.Cause)
}

func (e *LogSync) Unwrap() error { return e.Cause }

// GetPosition reports that seeking to learn the current file offset failed.
type GetPosition struct {
	Filename string
	Cause    error
}

func (e *GetPosition) Error() string {
	return fmt.Sprintf("could not determine offset in %s: %v", e.Filename, e.Cause)
}

func (e *GetPosition) Unwrap() error { return e.Cause }

// LogLookup reports that decoding the record the index pointed at failed.
type LogLookup struct {
	Key      string
	Filename string
	Offset   uint64
	Cause    error
}

func (e *LogLookup) Error() string {
	return fmt.Sprintf("log lookup of %s in %s at offset %d failed: %v", e.Key, e.Filename, e.Offset, e.Cause)
}

func (e *LogLookup) Unwrap() error { return e.Cause }

// LogEntryKindInvalid reports that the index pointed at a non-Set record.
type LogEntryKindInvalid struct {
	Key, FoundKey string
	Filename      string
	Offset        uint64
}

func (e *LogEntryKindInvalid) Error() string {
	return fmt.Sprintf("log entry for %s in %s at offset %d invalid (found key %s)", e.Key, e.Filename, e.Offset, e.FoundKey)
}

// LogEntryKeyMismatch reports that the index pointed at a Set for a
// different key.
type LogEntryKeyMismatch struct {
	Key, FoundKey string
	Filename      string
	Offset        uint64
}

func (e *LogEntryKeyMismatch) Error() string {
	return fmt.Sprintf("log entry contains key %s instead of %s at offset %d in %s", e.FoundKey, e.Key, e.Offset, e.Filename)
}

// CompactionFlushFailed reports that flushing the compaction temp file
// failed.
type CompactionFlushFailed struct {
	Cause error
}

func (e *CompactionFlushFailed) Error() string {
	return fmt.Sprintf("compaction flush failed: %v", e.Cause)
}

func (e *CompactionFlushFailed) Unwrap() error { return e.Cause }

// CompactionSyncFailed reports that syncing the compaction temp file failed.
type CompactionSyncFailed struct {
	Cause error
}

func (e *CompactionSyncFailed) Error() string {
	return fmt.Sprintf("compaction sync failed: %v", e.Cause)
}

func (e *CompactionSyncFailed) Unwrap() error { return e.Cause }

// CompactionRenameFailed reports that replacing the old log with the
// compacted temp file failed.
type CompactionRenameFailed struct {
	Cause error
}

func (e *CompactionRenameFailed) Error() string {
	return fmt.Sprintf("compaction rename failed: %v", e.Cause)
}

func (e *CompactionRenameFailed) Unwrap() error { return e.Cause }

// DirLocked reports that another process already holds the advisory lock on
// the engine's directory.
type DirLocked struct {
	Dir   string
	Cause error
}

func (e *DirLocked) Error() string {
	return fmt.Sprintf("directory %s is locked by another kvs engine: %v", e.Dir, e.Cause)
}

func (e *DirLocked) Unwrap() error { return e.Cause }

// EnginePoisoned reports that a prior corruption error left the engine in
// an unusable state; per spec, subsequent operations after a corruption
// error are undefined, so the engine refuses further calls outright.
type EnginePoisoned struct {
	Cause error
}

func (e *EnginePoisoned) Error() string {
	return fmt.Sprintf("engine is poisoned by a prior corruption error: %v", e.Cause)
}

func (e *EnginePoisoned) Unwrap() error { return e.Cause }
