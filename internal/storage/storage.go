// Package storage implements the Env-shaped ambient collaborator the
// durable writers go through: an append-only aligned writer (used by the
// WAL) backed by direct I/O so log bytes
// don't double-buffer through the kernel page cache on top of keelson's own
// memtable and block cache, a plain read-only file for sstable.Reader's
// io.ReaderAt, and the directory-fsync a caller needs before it can treat a
// freshly created file as durable.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ncw/directio"
	"keelson/internal/status"
)

// DirectIOBlockSize is the direct I/O alignment boundary every AlignedWriter
// pads a Write call's bytes up to; callers that need to skip that padding
// back out on read (walog) size their skip against this constant.
var DirectIOBlockSize = directio.BlockSize

// WritableFile is the append-only output a WAL segment or an sstable
// builder writes through.
type WritableFile interface {
	io.Writer
	Sync() error
	Close() error
}

// RandomAccessFile is what an already-closed sstable is read back through.
type RandomAccessFile interface {
	io.ReaderAt
	Close() error
}

// AlignedWriter is a WritableFile backed by an O_DIRECT file, padding each
// Write call up to the direct I/O block size the way the retrieved
// boulder writer does. Padding independently per call (rather than
// buffering a partial tail across calls) trades a few wasted bytes per
// call for not having to track cross-call alignment state; walog frames
// its own record lengths so a reader never mistakes trailing pad for
// record data.
type AlignedWriter struct {
	file  *os.File
	block int
}

// NewAlignedWriter opens name for direct-I/O append, creating it if it does
// not exist.
func NewAlignedWriter(name string) (*AlignedWriter, error) {
	file, err := directio.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	return &AlignedWriter{file: file, block: directio.BlockSize}, nil
}

var _ WritableFile = (*AlignedWriter)(nil)

// Write pads buf up to a multiple of the direct I/O block size before
// issuing the underlying write. The return value is the number of
// caller-supplied bytes accepted, not the padded byte count written.
func (w *AlignedWriter) Write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	rem := len(buf) % w.block
	if rem == 0 {
		if _, err := w.file.Write(buf); err != nil {
			return 0, status.Wrap(status.IOError, err)
		}
		return len(buf), nil
	}

	aligned := directio.AlignedBlock(len(buf) - rem + w.block)
	copy(aligned, buf)
	if _, err := w.file.Write(aligned); err != nil {
		return 0, status.Wrap(status.IOError, err)
	}
	return len(buf), nil
}

// Sync flushes the file to stable storage.
func (w *AlignedWriter) Sync() error {
	if err := w.file.Sync(); err != nil {
		return status.Wrap(status.IOError, err)
	}
	return nil
}

// Close closes the underlying file.
func (w *AlignedWriter) Close() error {
	if err := w.file.Close(); err != nil {
		return status.Wrap(status.IOError, err)
	}
	return nil
}

// OpenRandomAccess opens name for read-only random access, as
// sstable.Reader's io.ReaderAt.
func OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	return f, nil
}

// MkdirAll creates dir and any missing parents.
func MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return status.Wrap(status.IOError, err)
	}
	return nil
}

// SyncDir fsyncs a directory's own inode, which POSIX requires for a
// freshly created file's directory entry to be considered durable
// independently of the file's own Sync.
func SyncDir(dir string) error {
	f, err := os.Open(filepath.Clean(dir))
	if err != nil {
		return status.Wrap(status.IOError, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return status.Wrap(status.IOError, err)
	}
	return nil
}
