package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/gjson"

	"scriptdex/internal/domain/entity"
)

// manifestMetaKeys are the meta fields copied into manifest entries.
var manifestMetaKeys = []string{"schema", "generated", "tool", "scripts_sha256_12"}

// ManifestEntry describes one artifact on disk.
type ManifestEntry struct {
	Spec
	Path            string                 `json:"path"`
	Exists          bool                   `json:"exists"`
	Size            int64                  `json:"size"`
	SHA256_12       string                 `json:"sha256_12,omitempty"`
	SchemaVersion   *int                   `json:"schema_version,omitempty"`
	DBSchemaVersion *int                   `json:"db_schema_version,omitempty"`
	Meta            map[string]interface{} `json:"meta,omitempty"`
}

// Manifest lists every artifact of an index directory.
type Manifest struct {
	SchemaVersion int              `json:"schema_version"`
	Meta          entity.BuildMeta `json:"meta"`
	Artifacts     []ManifestEntry  `json:"artifacts"`
	Warnings      []string         `json:"warnings"`
}

// FileSHA256_12 returns the first 12 hex digits of the file's sha256.
func FileSHA256_12(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}

// BuildManifest inspects every known artifact in store. The manifest itself is listed
// by name only.
func BuildManifest(ctx context.Context, store *Store) *Manifest {
	m := &Manifest{
		SchemaVersion: entity.ManifestSchemaVersion,
		Artifacts:     []ManifestEntry{},
		Warnings:      []string{},
	}
	for _, spec := range Specs() {
		path := store.Path(spec.Name)
		entry := ManifestEntry{Spec: spec, Path: path}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			m.Warnings = append(m.Warnings, "missing:"+path)
			m.Artifacts = append(m.Artifacts, entry)
			continue
		}
		entry.Exists = true
		entry.Size = info.Size()
		if sha, err := FileSHA256_12(path); err == nil {
			entry.SHA256_12 = sha
		}

		switch spec.Format {
		case FormatSQLite:
			meta, err := ReadSQLiteMeta(ctx, path)
			if err != nil {
				m.Warnings = append(m.Warnings, "unreadable:"+path)
				break
			}
			entry.SchemaVersion = atoiPtr(meta["schema_version"])
			entry.DBSchemaVersion = atoiPtr(meta["db_schema_version"])
			if raw, ok := meta["meta"]; ok {
				entry.Meta = pickMeta(gjson.Parse(raw))
			}
		default:
			data, err := os.ReadFile(path)
			if err != nil || !gjson.ValidBytes(data) {
				m.Warnings = append(m.Warnings, "invalid_json:"+path)
				break
			}
			res := gjson.GetManyBytes(data, "schema_version", "meta")
			if res[0].Exists() {
				v := int(res[0].Int())
				entry.SchemaVersion = &v
			}
			if res[1].IsObject() {
				entry.Meta = pickMeta(res[1])
			}
		}
		m.Artifacts = append(m.Artifacts, entry)
	}
	return m
}

func pickMeta(meta gjson.Result) map[string]interface{} {
	out := map[string]interface{}{}
	for _, key := range manifestMetaKeys {
		if v := meta.Get(key); v.Exists() {
			out[key] = v.Value()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func atoiPtr(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// Entry returns the manifest entry with the given artifact id.
func (m *Manifest) Entry(id string) (ManifestEntry, bool) {
	for _, e := range m.Artifacts {
		if e.ID == id {
			return e, true
		}
	}
	return ManifestEntry{}, false
}
