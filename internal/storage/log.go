// Package storage provides the append-only, seekable log file that backs
// the key-value engine: kvs.db inside a caller-supplied directory.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/nandanvikas/kvs/internal/format"
	"github.com/nandanvikas/kvs/internal/kverrors"
)

// LogFileName is the name of the log file within the engine's directory.
const LogFileName = "kvs.db"

// lockFileName is the advisory lock file guarding the directory against a
// second engine opening the same log concurrently.
const lockFileName = "kvs.db.lock"

// Log is the append-only log file. Every append goes through a buffered
// writer that is flushed before the write returns, so reads and the end
// offset always see durable-to-the-OS bytes.
type Log struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	dir     string
	path    string
	lock    *flock.Flock
	hasLock bool
}

// Open creates dir/kvs.db if it does not already exist and opens it
// read-write. If lockDir is true it also attempts to take an advisory lock
// on the directory via kvs.db.lock; failure to acquire the lock returns
// kverrors.DirLocked.
func Open(dir string, lockDir bool) (*Log, error) {
	path := filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &kverrors.OpenLog{Filename: path, Cause: err}
	}

	l := &Log{
		file: f,
		buf:  bufio.NewWriter(f),
		dir:  dir,
		path: path,
	}

	if lockDir {
		fl := flock.New(filepath.Join(dir, lockFileName))
		locked, err := fl.TryLock()
		if err != nil {
			f.Close()
			return nil, &kverrors.DirLocked{Dir: dir, Cause: err}
		}
		if !locked {
			f.Close()
			return nil, &kverrors.DirLocked{Dir: dir, Cause: fmt.Errorf("lock already held")}
		}
		l.lock = fl
		l.hasLock = true
	}

	slog.Debug("storage: opened log file", "path", path)
	return l, nil
}

// AppendRecord encodes entry, appends it to the end of the log and returns
// the byte offset of the first byte written.
func (l *Log) AppendRecord(entry format.LogEntry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset, err := l.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &kverrors.GetPosition{Filename: l.path, Cause: err}
	}

	data := format.Encode(entry)
	if _, err := l.buf.Write(data); err != nil {
		return 0, err
	}
	if err := l.buf.Flush(); err != nil {
		return 0, err
	}

	return uint64(offset), nil
}

// ReadRecordAt seeks to offset and decodes exactly one record.
func (l *Log) ReadRecordAt(offset uint64) (format.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Seek(int64(offset), io.SeekStart); err != nil {
		return format.LogEntry{}, &kverrors.GetPosition{Filename: l.path, Cause: err}
	}
	return format.Decode(l.file)
}

// CurrentEndOffset returns the current length of the log file.
func (l *Log) CurrentEndOffset() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset, err := l.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &kverrors.GetPosition{Filename: l.path, Cause: err}
	}
	return uint64(offset), nil
}

// Reader returns a fresh read-only file handle positioned at the start of
// the log, for use by the recovery loop. It operates on an independent file
// descriptor so the recovery scan can proceed without fighting the shared
// seek position used by AppendRecord/ReadRecordAt.
func (l *Log) Reader() (*os.File, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &kverrors.OpenLog{Filename: l.path, Cause: err}
	}
	return f, nil
}

// Sync durably persists all appended bytes to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// ReplaceWith atomically replaces this log's underlying file with the file
// at tmpPath (the product of a compaction run), then reopens the log
// against the replaced path. tmpPath is removed as a side effect of the
// rename; callers are responsible for removing it on any earlier failure
// path.
func (l *Log) ReplaceWith(tmpPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return &kverrors.OpenLog{Filename: l.path, Cause: err}
	}
	l.file = f
	l.buf = bufio.NewWriter(f)
	return nil
}

// Path returns the log file's path, for error reporting.
func (l *Log) Path() string { return l.path }

// Dir returns the directory the log lives in.
func (l *Log) Dir() string { return l.dir }

// Close releases the file handle and, if held, the advisory directory lock.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if err := l.buf.Flush(); err != nil {
		firstErr = err
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if l.hasLock {
		if err := l.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
