package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"scriptdex/internal/application/common"
	"scriptdex/internal/domain/errors/domain"
	"scriptdex/internal/port/outbound"
)

// MarshalStable encodes doc with sorted map keys, two-space indentation and a trailing
// newline. HTML characters are left unescaped.
func MarshalStable(doc interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON atomically writes doc to path as stable JSON.
func WriteJSON(path string, doc interface{}) error {
	data, err := MarshalStable(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data next to path and renames it into place, so readers never
// observe a partially written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Store reads and writes artifacts in one index directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

// Path implements outbound.ArtifactStore.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the artifact file is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// WriteJSON implements outbound.ArtifactStore.
func (s *Store) WriteJSON(ctx context.Context, name string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(name)
	if err := WriteJSON(path, doc); err != nil {
		return common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

// ReadBytes returns the raw artifact. A missing file is reported as
// domain.ErrArtifactMissing.
func (s *Store) ReadBytes(name string) ([]byte, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing))
		}
		return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return data, nil
}

// ReadJSON decodes the artifact into v. Undecodable content is reported as
// domain.ErrArtifactInvalid.
func (s *Store) ReadJSON(name string, v interface{}) error {
	data, err := s.ReadBytes(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return common.WrapServiceError(common.OpReadArtifact,
			fmt.Errorf("%s: %w: %w", s.Path(name), domain.ErrArtifactInvalid, err))
	}
	return nil
}

// PeekMeta implements outbound.ArtifactStore. Only the stamp fields of the meta block are
// read.
func (s *Store) PeekMeta(name string) (outbound.MetaStamp, bool) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil || !gjson.ValidBytes(data) {
		return outbound.MetaStamp{}, false
	}
	res := gjson.GetManyBytes(data, "meta.generated", "meta.scripts_sha256_12", "meta."+InputsMetaKey)
	if !res[0].Exists() && !res[1].Exists() {
		return outbound.MetaStamp{}, false
	}
	return outbound.MetaStamp{
		Generated: res[0].String(),
		SHA256_12: res[1].String(),
		Inputs:    res[2].String(),
	}, true
}
