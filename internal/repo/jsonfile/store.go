package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// load reads the JSON document at path into v. A missing file leaves v
// untouched. A corrupt file is logged loudly and reported so the caller
// discards any partially-decoded state and rewrites an empty valid file
// instead of wedging the bot. Recover from a backup copy if one exists.
func load(path string, logger *slog.Logger, v any) (corrupt bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		if logger != nil {
			logger.Error("store file is corrupt, reinitializing", "path", path, "err", err)
		}
		return true, nil
	}
	return false, nil
}

// persist writes v atomically: marshal, write a sibling temp file, rename.
func persist(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
