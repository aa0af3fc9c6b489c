package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredsFile is the credential blob written inside every session directory
const CredsFile = "creds.json"

// StoreFile is the protocol library's per-attempt SQLite store
const StoreFile = "session.db"

const qrNamePrefix = "session_"

// EnsureRoot creates the parent directory that holds session directories
func EnsureRoot(root string) error {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("create session root %s: %w", root, err)
	}
	return nil
}

// Prepare removes whatever is at path and creates an empty directory there
func Prepare(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("reset session directory %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("create session directory %s: %w", path, err)
	}
	return nil
}

// Remove deletes the session directory and reports whether anything was there.
// Missing directories are not an error.
func Remove(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("remove session directory %s: %w", path, err)
	}
	return true, nil
}

// ReadCreds returns the credential blob stored in the session directory
func ReadCreds(path string) ([]byte, error) {
	blob, err := os.ReadFile(filepath.Join(path, CredsFile))
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return blob, nil
}

// WriteCreds replaces the credential blob atomically
func WriteCreds(path string, blob []byte) error {
	tmp, err := os.CreateTemp(path, CredsFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err = os.Rename(tmpName, filepath.Join(path, CredsFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// NewQRName builds a directory name from the current time and a random suffix
func NewQRName(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return qrNamePrefix + strconv.FormatInt(now.UnixMilli(), 10) + suffix
}

// Sweep removes directories directly under root that were last modified
// before now-maxAge. Entries listed in keep are left alone.
func Sweep(root string, maxAge time.Duration, now time.Time, keep func(path string) bool) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	var errs []error
	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if keep != nil && keep(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
