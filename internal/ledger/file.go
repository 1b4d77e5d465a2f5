package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cltracker/internal/core"
)

// CanonicalPath returns the absolute, cleaned form of path. Processes started
// in different directories agree on it, so it names a ledger in the mirror and
// in notifications.
func CanonicalPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// LoadFile opens path, loads it and closes it again on every path.
func (c *Codec) LoadFile(path string) (*core.YearIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	x, err := c.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return x, nil
}

// SaveFile writes x next to path and renames it into place, so a failed save
// never truncates the previous ledger.
func (c *Codec) SaveFile(path string, x *core.YearIndex) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := c.Save(x, tmp); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync ledger: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
