package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
	"github.com/joshuapare/unitalloc/mem/dirty"
)

// regionFile is an allocator attached to a file-backed Space. Mutations are
// recorded by the tracker and written back by commit.
type regionFile struct {
	path    string
	space   *mem.Space
	tracker *dirty.Tracker
	alloc   *alloc.UnitAllocator
}

func newRegionFile(path string, size int) (*regionFile, error) {
	sp, err := mem.OpenSpace(path, mem.Addr(baseAddr), size)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	tr := dirty.NewTracker(sp)
	a := alloc.New(&alloc.Options{Logger: appLog, Tracker: tr})
	return &regionFile{path: path, space: sp, tracker: tr, alloc: a}, nil
}

// openRegionFile maps an existing region file and rebuilds the allocator
// from its bitmap.
func openRegionFile(path string) (*regionFile, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	rf, err := newRegionFile(path, 0)
	if err != nil {
		return nil, err
	}
	if err := rf.alloc.Attach(rf.space.All()); err != nil {
		_ = rf.space.Close()
		return nil, fmt.Errorf("failed to attach %s: %w", path, err)
	}
	printVerbose("Attached %s at %s (%s units)\n", path, rf.space.Base(), formatNumber(rf.alloc.Stats().Units))
	return rf, nil
}

// withRegionFile opens path, runs fn and unmaps the file. A failed unmap is
// reported with fn's error.
func withRegionFile(path string, fn func(rf *regionFile) error) (err error) {
	rf, err := openRegionFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rf.close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to unmap %s: %w", path, cerr))
		}
	}()
	return fn(rf)
}

// write copies p to addr and records the bytes for the next commit.
func (rf *regionFile) write(addr mem.Addr, p []byte) error {
	dst, err := rf.alloc.Bytes(addr, uint64(len(p)))
	if err != nil {
		return err
	}
	copy(dst, p)
	off, _ := rf.space.Offset(addr)
	rf.tracker.Add(off, len(p))
	return nil
}

// commit flushes pending changes to the file.
func (rf *regionFile) commit(ctx context.Context) error {
	printVerbose("Flushing %d dirty ranges\n", rf.tracker.Pending())
	if err := rf.alloc.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync %s: %w", rf.path, err)
	}
	return nil
}

func (rf *regionFile) close() error {
	return rf.space.Close()
}

// commitAndClose flushes and unmaps, reporting the first failure.
func (rf *regionFile) commitAndClose(ctx context.Context) error {
	return errors.Join(rf.commit(ctx), rf.close())
}
