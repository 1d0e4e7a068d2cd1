// Package export writes run artifacts atomically: a temp file in the target
// directory is filled, synced and renamed over the destination, so readers
// never see a truncated file.
package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Indents used by the artifacts.
const (
	IndentSets  = "    "
	IndentCards = "  "
)

// WriteFile atomically replaces path with the bytes produced by write.
// Missing parent directories are created.
func WriteFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "export: create temp for %s", path)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrapf(err, "export: sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return eris.Wrapf(err, "export: chmod %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrapf(err, "export: rename into %s", path)
	}
	committed = true
	return nil
}

// WriteJSON atomically writes v as indented JSON. HTML characters and
// non-ASCII text are written literally.
func WriteJSON(path string, v any, indent string) error {
	return WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", indent)
		return enc.Encode(v)
	})
}

// ReadJSON decodes the JSON file at path into v. A missing file returns
// an error matching os.ErrNotExist.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "export: decode %s", path)
	}
	return nil
}
