package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/application/linker"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
	"scriptdex/internal/domain/valueobject"
	"scriptdex/internal/testfixtures"
)

func fixtureGraph(t *testing.T) *entity.Graph {
	t.Helper()
	results, err := testfixtures.Extract(context.Background(), testfixtures.Files())
	require.NoError(t, err)
	g, err := linker.Link(context.Background(), results, linker.Options{})
	require.NoError(t, err)
	return g
}

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		v, _ := time.Parse(time.RFC3339, ts)
		return v
	}
}

func noEnv(string) (string, bool) { return "", false }

func newTestWriter(t *testing.T, dir, sha, now string) *Writer {
	t.Helper()
	store := NewStore(dir)
	meta := NewMetaFactory(store, sha, map[string]string{"scripts_fixture": "memory"}).
		WithClock(fixedClock(now), noEnv)
	return NewWriter(store, meta)
}

// writeAll runs every writer in build order.
func writeAll(t *testing.T, w *Writer, g *entity.Graph) {
	t.Helper()
	ctx := context.Background()
	_, err := w.ResourceIndex(ctx, testfixtures.Corpus().Files(), g)
	require.NoError(t, err)
	_, err = w.Catalog(ctx, g)
	require.NoError(t, err)
	_, err = w.CatalogIndex(ctx, g)
	require.NoError(t, err)
	_, err = w.Traces(ctx, g)
	require.NoError(t, err)
	_, err = w.I18n(ctx, g)
	require.NoError(t, err)
	_, err = w.Icons(ctx, g)
	require.NoError(t, err)
	_, err = w.Farming(ctx, g)
	require.NoError(t, err)
	_, err = w.Gaps(ctx, g)
	require.NoError(t, err)
	idx, _, err := w.MechanismIndex(ctx, g, 1)
	require.NoError(t, err)
	_, err = w.MechanismSQLite(ctx, idx)
	require.NoError(t, err)
	_, err = w.CatalogSQLite(ctx, g)
	require.NoError(t, err)
	_, _, err = w.Quality(ctx, DefaultQualityThresholds())
	require.NoError(t, err)
	_, _, err = w.Manifest(ctx)
	require.NoError(t, err)
}

func TestMarshalStable(t *testing.T) {
	data, err := MarshalStable(map[string]interface{}{"b": 1, "a": "<x>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"<x>\",\n  \"b\": 1\n}\n", string(data))
}

func TestStore_WriteAndRead(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.WriteJSON(ctx, "doc.json", map[string]interface{}{
		"meta": map[string]string{"generated": "2024-01-01T00:00:00Z", "scripts_sha256_12": "abc"},
	}))
	assert.True(t, store.Exists("doc.json"))

	stamp, ok := store.PeekMeta("doc.json")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01T00:00:00Z", stamp.Generated)
	assert.Equal(t, "abc", stamp.SHA256_12)
	assert.Empty(t, stamp.Inputs)

	_, ok = store.PeekMeta("absent.json")
	assert.False(t, ok)

	_, err := store.ReadBytes("absent.json")
	assert.True(t, errors.Is(err, domain.ErrArtifactMissing))

	require.NoError(t, os.WriteFile(store.Path("broken.json"), []byte("{"), 0o644))
	var v map[string]interface{}
	err = store.ReadJSON("broken.json", &v)
	assert.True(t, errors.Is(err, domain.ErrArtifactInvalid))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must not be left behind")
	}
}

func TestMetaFactory_Generated(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.WriteJSON(context.Background(), "doc.json", map[string]interface{}{
		"meta": map[string]string{"generated": "2020-05-05T00:00:00Z", "scripts_sha256_12": "aaaaaaaaaaaa"},
	}))

	tests := []struct {
		name string
		sha  string
		env  func(string) (string, bool)
		want string
	}{
		{
			name: "source date epoch wins",
			sha:  "aaaaaaaaaaaa",
			env: func(k string) (string, bool) {
				if k == SourceDateEpochEnv {
					return "0", true
				}
				return "", false
			},
			want: "1970-01-01T00:00:00Z",
		},
		{name: "unchanged hash reuses previous", sha: "aaaaaaaaaaaa", env: noEnv, want: "2020-05-05T00:00:00Z"},
		{name: "changed hash uses clock", sha: "bbbbbbbbbbbb", env: noEnv, want: "2030-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewMetaFactory(store, tt.sha, nil).WithClock(fixedClock("2030-01-02T03:04:05Z"), tt.env)
			assert.Equal(t, tt.want, f.Generated("doc.json"))
		})
	}

	f := NewMetaFactory(store, "aaaaaaaaaaaa", nil)
	assert.True(t, f.UpToDate("doc.json"))
	assert.False(t, NewMetaFactory(store, "cccccccccccc", nil).UpToDate("doc.json"))
	assert.False(t, f.UpToDate("absent.json"))
}

func TestMetaFactory_InputSignature(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	built := NewMetaFactory(store, "aaaaaaaaaaaa", nil).
		WithInputs(map[string]string{"icons.json": "111111111111"}).
		WithClock(fixedClock("2020-05-05T00:00:00Z"), noEnv)
	require.NoError(t, store.WriteJSON(ctx, "icons.json", map[string]interface{}{"meta": built.Meta("icons.json", 1)}))
	require.NoError(t, store.WriteJSON(ctx, "plain.json", map[string]interface{}{"meta": built.Meta("plain.json", 1)}))

	tests := []struct {
		name   string
		sha    string
		inputs map[string]string
		doc    string
		want   bool
	}{
		{name: "same hash and inputs", sha: "aaaaaaaaaaaa", inputs: map[string]string{"icons.json": "111111111111"}, doc: "icons.json", want: true},
		{name: "changed inputs", sha: "aaaaaaaaaaaa", inputs: map[string]string{"icons.json": "222222222222"}, doc: "icons.json", want: false},
		{name: "inputs dropped", sha: "aaaaaaaaaaaa", doc: "icons.json", want: false},
		{name: "changed hash", sha: "bbbbbbbbbbbb", inputs: map[string]string{"icons.json": "111111111111"}, doc: "icons.json", want: false},
		{name: "artifact without inputs", sha: "aaaaaaaaaaaa", inputs: map[string]string{"icons.json": "111111111111"}, doc: "plain.json", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewMetaFactory(store, tt.sha, nil).WithInputs(tt.inputs).WithClock(fixedClock("2030-01-02T03:04:05Z"), noEnv)
			assert.Equal(t, tt.want, f.UpToDate(tt.doc))
			if tt.want {
				assert.Equal(t, "2020-05-05T00:00:00Z", f.Generated(tt.doc))
			} else {
				assert.Equal(t, "2030-01-02T03:04:05Z", f.Generated(tt.doc))
			}
		})
	}

	stamp, ok := store.PeekMeta("icons.json")
	require.True(t, ok)
	assert.Equal(t, "111111111111", stamp.Inputs)
}

func TestWriter_Deterministic(t *testing.T) {
	g := fixtureGraph(t)
	dirA, dirB := t.TempDir(), t.TempDir()
	writeAll(t, newTestWriter(t, dirA, "0123456789ab", "2024-01-01T00:00:00Z"), g)
	writeAll(t, newTestWriter(t, dirB, "0123456789ab", "2024-01-01T00:00:00Z"), fixtureGraph(t))

	for _, name := range []string{
		ResourceIndexName, CatalogName, CatalogIndexName, TraceIndexName, I18nName,
		IconIndexName, FarmingDefsName, GapsName, MechanismIndexName,
	} {
		t.Run(name, func(t *testing.T) {
			a, err := os.ReadFile(filepath.Join(dirA, name))
			require.NoError(t, err)
			b, err := os.ReadFile(filepath.Join(dirB, name))
			require.NoError(t, err)
			assert.Equal(t, string(a), string(b))
			assert.Equal(t, byte('\n'), a[len(a)-1])
		})
	}

	ctx := context.Background()
	for _, table := range []string{"items", "item_stats", "craft_ingredients", "links", "catalog_index"} {
		na, err := CountRows(ctx, filepath.Join(dirA, CatalogSQLiteName), table)
		require.NoError(t, err)
		nb, err := CountRows(ctx, filepath.Join(dirB, CatalogSQLiteName), table)
		require.NoError(t, err)
		assert.Equal(t, na, nb, table)
	}
}

func TestWriter_RewriteKeepsGenerated(t *testing.T) {
	g := fixtureGraph(t)
	dir := t.TempDir()
	writeAll(t, newTestWriter(t, dir, "0123456789ab", "2024-01-01T00:00:00Z"), g)
	first, err := os.ReadFile(filepath.Join(dir, CatalogName))
	require.NoError(t, err)

	writeAll(t, newTestWriter(t, dir, "0123456789ab", "2025-06-01T00:00:00Z"), g)
	second, err := os.ReadFile(filepath.Join(dir, CatalogName))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestWriter_CatalogDocument(t *testing.T) {
	g := fixtureGraph(t)
	dir := t.TempDir()
	writeAll(t, newTestWriter(t, dir, "0123456789ab", "2024-01-01T00:00:00Z"), g)

	var doc map[string]json.RawMessage
	data, err := os.ReadFile(filepath.Join(dir, CatalogName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"schema_version", "meta", "items", "assets", "craft", "cooking", "cooking_ingredients", "stats"} {
		assert.Contains(t, doc, key)
	}

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(doc["meta"], &meta))
	assert.Equal(t, "scriptdex", meta["tool"])
	assert.Equal(t, "0123456789ab", meta["scripts_sha256_12"])
	assert.Equal(t, "2024-01-01T00:00:00Z", meta["generated"])

	var traces map[string]interface{}
	data, err = os.ReadFile(filepath.Join(dir, TraceIndexName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &traces))
	assert.NotContains(t, traces, "meta")
	assert.Contains(t, traces, "item:spear:stat:weapon_damage")
}

func TestCatalogSQLite(t *testing.T) {
	g := fixtureGraph(t)
	dir := t.TempDir()
	w := newTestWriter(t, dir, "0123456789ab", "2024-01-01T00:00:00Z")
	path, err := w.CatalogSQLite(context.Background(), g)
	require.NoError(t, err)

	ctx := context.Background()
	meta, err := ReadSQLiteMeta(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "2", meta["schema_version"])
	assert.Equal(t, "1", meta["db_schema_version"])
	assert.Contains(t, meta, "catalog_index_counts")

	n, err := CountRows(ctx, path, "items")
	require.NoError(t, err)
	assert.Equal(t, len(g.Catalog.Items), n)

	n, err = CountRows(ctx, path, "links")
	require.NoError(t, err)
	assert.Equal(t, len(g.Links), n)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	_, err = ReadSQLiteMeta(ctx, filepath.Join(dir, "absent.sqlite"))
	assert.True(t, errors.Is(err, domain.ErrArtifactMissing))
	_, err = os.Stat(filepath.Join(dir, "absent.sqlite"))
	assert.True(t, os.IsNotExist(err))
}

func TestClassifyScript(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scripts/prefabs/spear.lua", "prefab"},
		{"scripts/components/weapon.lua", "component"},
		{"scripts/strings.lua", "string"},
		{"scripts/tuning.lua", "tuning"},
		{"scripts/recipes.lua", "recipe"},
		{"scripts/languages/chinese_s.po", "language"},
		{"scripts/main.lua", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyScript(tt.path))
		})
	}
}

func TestBuildResourceIndex(t *testing.T) {
	g := fixtureGraph(t)
	files := testfixtures.Corpus().Files()
	idx := BuildResourceIndex(files, g)

	assert.Equal(t, len(files), idx.Scripts.TotalFiles)
	assert.Contains(t, idx.Scripts.ByKind["prefab"], "scripts/prefabs/spear.lua")
	assert.Equal(t, 1, idx.Scripts.Categories["tuning"])
	assert.Equal(t, len(g.Prefabs), idx.Prefabs.TotalPrefabs)
	assert.Contains(t, idx.Assets.InventoryIcons, "spear")
}

func TestMechanismIndex_BuildValidateDiff(t *testing.T) {
	g := fixtureGraph(t)
	idx := BuildMechanismIndex(g, 1)

	assert.Equal(t, len(idx.Links.PrefabComponent), idx.Counts.PrefabComponentEdges)
	assert.Contains(t, idx.ComponentUsage["weapon"], "spear")
	assert.Contains(t, idx.Components.Items, "weapon")

	data, err := MarshalStable(idx)
	require.NoError(t, err)
	res := ValidateMechanismIndex(data)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.True(t, res.OK(true))

	t.Run("invalid documents", func(t *testing.T) {
		assert.NotEmpty(t, ValidateMechanismIndex([]byte("not json")).Errors)
		assert.NotEmpty(t, ValidateMechanismIndex([]byte(`[]`)).Errors)
		assert.NotEmpty(t, ValidateMechanismIndex([]byte(`{"schema_version":1}`)).Errors)
	})

	t.Run("inconsistent counts and edges", func(t *testing.T) {
		broken := *idx
		broken.Counts.PrefabsTotal++
		broken.Links.PrefabComponent = append(append([]MechanismEdge{}, idx.Links.PrefabComponent...), MechanismEdge{
			Source: MechanismSourcePrefab, SourceID: "spear", Target: MechanismTargetComponent, TargetID: "health",
		})
		data, err := MarshalStable(&broken)
		require.NoError(t, err)
		res := ValidateMechanismIndex(data)
		assert.Empty(t, res.Errors)
		assert.NotEmpty(t, res.Warnings)
		assert.True(t, res.OK(false))
		assert.False(t, res.OK(true))
	})

	t.Run("diff", func(t *testing.T) {
		changed := BuildMechanismIndex(g, 1)
		delete(changed.Prefabs.Items, "twigs")
		changed.Prefabs.Items["newthing"] = MechanismPrefab{Components: []string{"inventoryitem"}}
		changed.Links.PrefabComponent = append(changed.Links.PrefabComponent, MechanismEdge{
			Source: MechanismSourcePrefab, SourceID: "newthing", Target: MechanismTargetComponent, TargetID: "inventoryitem",
		})
		a, err := MarshalStable(idx)
		require.NoError(t, err)
		b, err := MarshalStable(changed)
		require.NoError(t, err)

		d, err := DiffMechanismIndex(a, b)
		require.NoError(t, err)
		assert.Equal(t, []string{"newthing"}, d.PrefabsAdded)
		assert.Equal(t, []string{"twigs"}, d.PrefabsRemoved)
		assert.Contains(t, d.LinksAdded, "newthing -> inventoryitem")
		assert.False(t, d.Empty())

		same, err := DiffMechanismIndex(a, a)
		require.NoError(t, err)
		assert.True(t, same.Empty())

		_, err = DiffMechanismIndex([]byte("{"), a)
		assert.Error(t, err)
	})
}

func TestManifestAndQuality(t *testing.T) {
	g := fixtureGraph(t)
	dir := t.TempDir()
	w := newTestWriter(t, dir, "0123456789ab", "2024-01-01T00:00:00Z")
	writeAll(t, w, g)

	m, _, err := w.Manifest(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Artifacts, len(Specs()))
	assert.Empty(t, m.Warnings)

	catalog, ok := m.Entry("catalog")
	require.True(t, ok)
	assert.True(t, catalog.Exists)
	assert.Len(t, catalog.SHA256_12, 12)
	require.NotNil(t, catalog.SchemaVersion)
	assert.Equal(t, 2, *catalog.SchemaVersion)
	assert.Equal(t, "0123456789ab", catalog.Meta["scripts_sha256_12"])

	mirror, ok := m.Entry("catalog_sqlite")
	require.True(t, ok)
	require.NotNil(t, mirror.DBSchemaVersion)
	assert.Equal(t, 1, *mirror.DBSchemaVersion)

	t.Run("fixture is below production thresholds", func(t *testing.T) {
		r := RunQualityGate(context.Background(), w.Store(), DefaultQualityThresholds())
		assert.True(t, r.HasFail())
	})

	t.Run("relaxed thresholds pass", func(t *testing.T) {
		r := RunQualityGate(context.Background(), w.Store(), QualityThresholds{MinItems: 1, MinIcons: 1})
		assert.False(t, r.HasFail(), "%v", r.Issues)
	})

	t.Run("missing artifacts are reported", func(t *testing.T) {
		empty := NewStore(t.TempDir())
		m := BuildManifest(context.Background(), empty)
		assert.Len(t, m.Warnings, len(Specs()))
		r := RunQualityGate(context.Background(), empty, QualityThresholds{})
		assert.True(t, r.HasFail())
	})
}

func TestRunQualityGate_CardRuleConflicts(t *testing.T) {
	tests := []struct {
		name    string
		cooking map[string]interface{}
		want    string
	}{
		{
			name: "none",
			cooking: map[string]interface{}{
				"meatballs": map[string]interface{}{"rule": map[string]interface{}{}},
			},
		},
		{
			name: "counted and listed",
			cooking: map[string]interface{}{
				"meatballs":  map[string]interface{}{"rule": map[string]interface{}{}},
				"kabobs":     map[string]interface{}{"notes": []string{entity.NoteCardAndRuleConflict}},
				"baconeggs":  map[string]interface{}{"notes": []string{"other", entity.NoteCardAndRuleConflict}},
				"berrysalad": map[string]interface{}{"notes": []string{"other"}},
			},
			want: "2 cooking recipes declare both a card and a rule, card ingredients kept only in gaps: [baconeggs kabobs]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			require.NoError(t, store.WriteJSON(context.Background(), CatalogName, map[string]interface{}{
				"schema_version": entity.CatalogSchemaVersion,
				"items":          map[string]interface{}{"spear": map[string]interface{}{}},
				"cooking":        tt.cooking,
			}))

			r := RunQualityGate(context.Background(), store, QualityThresholds{})
			var got []QualityIssue
			for _, issue := range r.Issues {
				if issue.Check == "cooking" {
					got = append(got, issue)
				}
			}
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, valueobject.SeverityInfo, got[0].Level)
			assert.Equal(t, tt.want, got[0].Message)
		})
	}

	g := fixtureGraph(t)
	w := newTestWriter(t, t.TempDir(), "0123456789ab", "2024-01-01T00:00:00Z")
	writeAll(t, w, g)
	r := RunQualityGate(context.Background(), w.Store(), QualityThresholds{MinItems: 1, MinIcons: 1})
	var messages []string
	for _, issue := range r.Issues {
		if issue.Check == "cooking" {
			messages = append(messages, issue.Message)
		}
	}
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "[both]")
}

func TestSuggest(t *testing.T) {
	ids := []string{"spear", "spider", "twigs", "rope"}

	// Five and four letter ids allow two edits, eight letter ids three.
	tests := []struct {
		name  string
		id    string
		limit int
		want  []string
	}{
		{name: "ties ordered by id", id: "spaer", limit: 3, want: []string{"spear", "spider"}},
		{name: "limit keeps the closest", id: "spaer", limit: 1, want: []string{"spear"}},
		{name: "closest first", id: "spidr", limit: 3, want: []string{"spider", "spear"}},
		{name: "one edit", id: "twig", limit: 3, want: []string{"twigs"}},
		{name: "exact id excluded", id: "rope", limit: 3, want: []string{}},
		{name: "nothing close", id: "zzzzzzzz", limit: 3, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.id, ids, tt.limit))
		})
	}
}
