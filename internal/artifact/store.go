// Package artifact persists rendered reports. Files are published
// atomically to a local directory and optionally mirrored to Supabase
// Storage.
package artifact

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
)

// Mirror receives a copy of each saved artifact.
type Mirror interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
}

// Info describes a saved artifact.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Store writes artifacts under a directory.
type Store struct {
	dir    string
	mirror Mirror
}

// NewStore creates a Store rooted at dir. mirror may be nil.
func NewStore(dir string, mirror Mirror) *Store {
	return &Store{dir: dir, mirror: mirror}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Save writes data to dir/name via a temp file, fsync and rename, so a
// reader never sees a partial file. It returns the final path. Write
// failures are *model.PersistenceError; a mirror failure is only logged.
func (s *Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", &model.PersistenceError{Op: "save artifact", Err: eris.Errorf("artifact: invalid name %q", name)}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &model.PersistenceError{Op: "save artifact", Err: eris.Wrap(err, "artifact: create dir")}
	}

	final := filepath.Join(s.dir, name)
	if err := writeAtomic(s.dir, final, data); err != nil {
		return "", &model.PersistenceError{Op: "save artifact", Err: err}
	}

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, name, data, ContentType(name)); err != nil {
			zap.L().Warn("artifact: mirror upload failed", zap.String("name", name), zap.Error(err))
		}
	}

	zap.L().Info("artifact: saved", zap.String("path", final), zap.Int("bytes", len(data)))
	return final, nil
}

func writeAtomic(dir, final string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(final)+"-*.tmp")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "artifact: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "artifact: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "artifact: close temp file")
	}
	if err := os.Rename(tmpName, final); err != nil {
		return eris.Wrap(err, "artifact: rename into place")
	}
	return nil
}

// List returns published artifacts, newest first. Temp files are skipped.
// A missing directory is an empty list.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, eris.Wrap(err, "artifact: read dir")
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name < out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// ContentType returns the MIME type for an artifact name.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
