// Package mmregion provides platform-specific helpers for obtaining the
// memory that backs an allocator address space: anonymous read-write
// mappings and file-backed shared mappings.
package mmregion

import (
	"errors"
	"fmt"
	"os"
)

// ErrClosed is returned by operations on a Mapping after Close.
var ErrClosed = errors.New("mmregion: mapping closed")

// Mapping is a contiguous, writable byte range. File-backed mappings persist
// writes to the file on Sync.
type Mapping struct {
	data []byte
	f    *os.File
}

// Bytes returns the mapped memory. The slice stays valid until Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the mapping length in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// FileBacked reports whether writes can be persisted with Sync.
func (m *Mapping) FileBacked() bool { return m.f != nil }

// Sync persists data[off:off+n] to the backing file. It is a no-op for
// anonymous mappings.
func (m *Mapping) Sync(off, n int) error {
	if m.data == nil {
		return ErrClosed
	}
	if off < 0 || n < 0 || n > len(m.data)-off {
		return fmt.Errorf("mmregion: sync range [%d,+%d) outside mapping of %d bytes", off, n, len(m.data))
	}
	if m.f == nil || n == 0 {
		return nil
	}
	return m.syncRange(off, n)
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("mmregion: invalid mapping size %d", size)
	}
	if int64(size) > int64(^uint(0)>>1) {
		return fmt.Errorf("mmregion: mapping too large (%d bytes)", size)
	}
	return nil
}

// openSized opens (creating if needed) path and makes sure it is at least
// size bytes long. A size of 0 keeps the current file length.
func openSized(path string, size int) (*os.File, int, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if size == 0 {
		size = int(st.Size())
	}
	if err := checkSize(size); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if st.Size() < int64(size) {
		// Extends with zeros.
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, 0, fmt.Errorf("mmregion: grow %s: %w", path, err)
		}
	}
	return f, size, nil
}
