package repository

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/domain/repository"
)

// FileArtifactStore keeps artifacts as files in one directory. Every binary
// artifact is a gob stream: an ArtifactHeader followed by the payload.
type FileArtifactStore struct {
	dir string
}

var _ repository.ArtifactStore = (*FileArtifactStore)(nil)

func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

func (s *FileArtifactStore) Dir() string { return s.dir }

func (s *FileArtifactStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FileArtifactStore) Save(_ context.Context, name string, hdr models.ArtifactHeader, payload interface{}) error {
	if hdr.Format == "" {
		hdr.Format = models.ArtifactFormat
	}
	if hdr.Version == 0 {
		hdr.Version = models.ArtifactVersion
	}
	return s.writeAtomic(name, func(w io.Writer) error {
		enc := gob.NewEncoder(w)
		if err := enc.Encode(hdr); err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		return nil
	})
}

func (s *FileArtifactStore) Load(_ context.Context, name string, payload interface{}) (models.ArtifactHeader, error) {
	f, err := s.open(name)
	if err != nil {
		return models.ArtifactHeader{}, err
	}
	defer f.Close()

	dec := gob.NewDecoder(bufio.NewReader(f))
	hdr, err := decodeHeader(dec, name)
	if err != nil {
		return hdr, err
	}
	if err := dec.Decode(payload); err != nil {
		return hdr, fmt.Errorf("decode %s: %w", name, err)
	}
	return hdr, nil
}

func (s *FileArtifactStore) Header(_ context.Context, name string) (models.ArtifactHeader, error) {
	f, err := s.open(name)
	if err != nil {
		return models.ArtifactHeader{}, err
	}
	defer f.Close()
	return decodeHeader(gob.NewDecoder(bufio.NewReader(f)), name)
}

func decodeHeader(dec *gob.Decoder, name string) (models.ArtifactHeader, error) {
	var hdr models.ArtifactHeader
	if err := dec.Decode(&hdr); err != nil {
		return hdr, fmt.Errorf("decode %s header: %w", name, err)
	}
	if hdr.Format != models.ArtifactFormat {
		return hdr, fmt.Errorf("%s: unexpected artifact format %q", name, hdr.Format)
	}
	if hdr.Version > models.ArtifactVersion {
		return hdr, fmt.Errorf("%s: artifact version %d is newer than supported %d", name, hdr.Version, models.ArtifactVersion)
	}
	return hdr, nil
}

func (s *FileArtifactStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileArtifactStore) Size(_ context.Context, name string) (int64, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", models.ErrModelNotFound, name)
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (s *FileArtifactStore) SaveJSON(_ context.Context, name string, v interface{}) error {
	return s.writeAtomic(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func (s *FileArtifactStore) LoadJSON(_ context.Context, name string, v interface{}) error {
	f, err := s.open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *FileArtifactStore) open(name string) (*os.File, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, s.path(name))
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// writeAtomic writes to a temp file in the same directory and renames it
// over the target, so readers never observe a partial artifact.
func (s *FileArtifactStore) writeAtomic(name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
