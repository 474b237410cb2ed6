//go:build !(linux || darwin || freebsd)

package geo

import "os"

// mapFile reads path into the heap on platforms without mmap support.
func mapFile(path string, _ bool) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
