//go:build unix

package mmregion

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Anonymous maps size bytes of zeroed private memory.
func Anonymous(size int) (*Mapping, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmregion: mmap anonymous: %w", err)
	}
	return &Mapping{data: data}, nil
}

// MapFile maps the file at path read-write and shared. The file is created if
// missing and grown to size bytes when shorter; size 0 maps the whole file.
func MapFile(path string, size int) (*Mapping, error) {
	f, size, err := openSized(path, size)
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmregion: mmap %s: %w", path, err)
	}
	return &Mapping{data: data, f: f}, nil
}

// syncRange msyncs the pages covering [off, off+n).
func (m *Mapping) syncRange(off, n int) error {
	pageSize := unix.Getpagesize()
	start := off &^ (pageSize - 1)
	return unix.Msync(m.data[start:off+n], unix.MS_SYNC)
}

// Close unmaps the memory and closes the backing file, if any.
func (m *Mapping) Close() error {
	var errs []error
	if m.data != nil {
		err := unix.Munmap(m.data)
		// Treat double-unmap as no-op for callers.
		if err != nil && !errors.Is(err, unix.EINVAL) {
			errs = append(errs, err)
		}
		m.data = nil
	}
	if m.f != nil {
		errs = append(errs, m.f.Close())
		m.f = nil
	}
	return errors.Join(errs...)
}
