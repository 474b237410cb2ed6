//go:build linux || darwin || freebsd

package geo

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only into memory. With force set the kernel is asked
// to page the whole file in ahead of the first query.
func mapFile(path string, force bool) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, nil, nil
	}
	if int64(int(size)) != size {
		return nil, nil, fmt.Errorf("%s: size %d does not fit in memory", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	if force {
		if err := unix.Madvise(data, unix.MADV_WILLNEED); err != nil {
			slog.Warn("geodata madvise failed", "file", path, "err", err)
		}
	}

	return data, func() error { return unix.Munmap(data) }, nil
}
