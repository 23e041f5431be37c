package artifact

import (
	"os"
	"strconv"
	"strings"
	"time"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/port/outbound"
)

// SourceDateEpochEnv pins the generated timestamp for reproducible builds.
const SourceDateEpochEnv = "SOURCE_DATE_EPOCH"

// InputsMetaKey is the meta key holding the signature of an artifact's non-script inputs.
const InputsMetaKey = "inputs_sha256_12"

// MetaFactory stamps artifact meta blocks for one build.
type MetaFactory struct {
	store     outbound.ArtifactStore
	sha12     string
	sources   map[string]string
	inputs    map[string]string
	now       func() time.Time
	lookupEnv func(string) (string, bool)
}

// NewMetaFactory creates a factory for a corpus with content hash sha12.
func NewMetaFactory(store outbound.ArtifactStore, sha12 string, sources map[string]string) *MetaFactory {
	return &MetaFactory{
		store:     store,
		sha12:     sha12,
		sources:   sources,
		now:       time.Now,
		lookupEnv: os.LookupEnv,
	}
}

// WithClock replaces the clock and environment lookup. It is used by tests.
func (f *MetaFactory) WithClock(now func() time.Time, lookupEnv func(string) (string, bool)) *MetaFactory {
	out := *f
	if now != nil {
		out.now = now
	}
	if lookupEnv != nil {
		out.lookupEnv = lookupEnv
	}
	return &out
}

// WithInputs sets the per-artifact input signatures. An artifact with a signature is only
// up to date when both the corpus hash and the signature match.
func (f *MetaFactory) WithInputs(inputs map[string]string) *MetaFactory {
	out := *f
	out.inputs = make(map[string]string, len(inputs))
	for k, v := range inputs {
		out.inputs[k] = v
	}
	return &out
}

// Inputs returns the input signature of artifact name.
func (f *MetaFactory) Inputs(name string) string { return f.inputs[name] }

// SHA256_12 returns the corpus hash the factory stamps.
func (f *MetaFactory) SHA256_12() string { return f.sha12 }

// Generated picks the timestamp for artifact name: SOURCE_DATE_EPOCH when set, else the
// previous artifact's timestamp when it is up to date, else the current UTC time.
func (f *MetaFactory) Generated(name string) string {
	if v, ok := f.lookupEnv(SourceDateEpochEnv); ok {
		if secs, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Unix(secs, 0).UTC().Format(time.RFC3339)
		}
	}
	if stamp, ok := f.peek(name); ok && stamp.Generated != "" {
		return stamp.Generated
	}
	return f.now().UTC().Format(time.RFC3339)
}

// Meta returns the meta block of artifact name.
func (f *MetaFactory) Meta(name string, schema int) entity.BuildMeta {
	sources := make(map[string]string, len(f.sources))
	for k, v := range f.sources {
		sources[k] = v
	}
	meta := entity.BuildMeta{
		Schema:           schema,
		Generated:        f.Generated(name),
		Tool:             entity.ToolName,
		Sources:          sources,
		ScriptsSHA256_12: f.sha12,
	}
	if sig := f.inputs[name]; sig != "" {
		meta = meta.WithExtra(InputsMetaKey, sig)
	}
	return meta
}

// UpToDate reports whether artifact name was already built from the same corpus and the
// same non-script inputs.
func (f *MetaFactory) UpToDate(name string) bool {
	_, ok := f.peek(name)
	return ok
}

// peek returns the stamp of artifact name when it matches this build.
func (f *MetaFactory) peek(name string) (outbound.MetaStamp, bool) {
	if f.store == nil || f.sha12 == "" {
		return outbound.MetaStamp{}, false
	}
	stamp, ok := f.store.PeekMeta(name)
	if !ok || stamp.SHA256_12 != f.sha12 || stamp.Inputs != f.inputs[name] {
		return outbound.MetaStamp{}, false
	}
	return stamp, true
}
