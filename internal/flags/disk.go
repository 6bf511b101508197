package flags

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// Disk stores each flag as a small file under a base directory.
type Disk struct {
	d *diskv.Diskv
}

// NewDisk opens (creating on first write) a flag directory at basePath.
func NewDisk(basePath string) (*Disk, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("open flag store: %w", ErrUnavailable)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create flag dir: %w", err)
	}
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 64 * 1024,
	})}, nil
}

func (s *Disk) Get(key string) (string, bool, error) {
	if !s.d.Has(key) {
		return "", false, nil
	}
	val, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read flag %q: %w", key, err)
	}
	return string(val), true, nil
}

func (s *Disk) Set(key, value string) error {
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("write flag %q: %w", key, err)
	}
	return nil
}

func (s *Disk) Remove(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("erase flag %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored flag keys.
func (s *Disk) Keys() []string {
	var keys []string
	for k := range s.d.Keys(nil) {
		keys = append(keys, k)
	}
	return keys
}
