//go:build !unix

package mmregion

import "io"

// Anonymous allocates size bytes of zeroed heap memory when mmap is not available.
func Anonymous(size int) (*Mapping, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	return &Mapping{data: make([]byte, size)}, nil
}

// MapFile reads the file at path into memory (growing it to size bytes when
// shorter). Sync writes ranges back with WriteAt.
func MapFile(path string, size int) (*Mapping, error) {
	f, size, err := openSized(path, size)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Mapping{data: data, f: f}, nil
}

func (m *Mapping) syncRange(off, n int) error {
	if _, err := m.f.WriteAt(m.data[off:off+n], int64(off)); err != nil {
		return err
	}
	return m.f.Sync()
}

// Close releases the buffer and closes the backing file, if any.
func (m *Mapping) Close() error {
	m.data = nil
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}
