package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/adapter/outbound/corpus"
	"scriptdex/internal/config"
	"scriptdex/internal/domain/errors/domain"
	"scriptdex/internal/testfixtures"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Paths: config.PathsConfig{ProjectRoot: t.TempDir(), IndexDir: t.TempDir()},
		Build: config.BuildConfig{Concurrency: 2, IconBase: "static/icons/"},
		I18n:  config.I18nConfig{PreferredLang: "en", SecondaryLang: "zh"},
	}
}

func pinnedClock(f *artifact.MetaFactory) *artifact.MetaFactory {
	return f.WithClock(
		func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		func(string) (string, bool) { return "", false },
	)
}

func newTestContext(t *testing.T, cfg *config.Config, m *Metrics) *Context {
	t.Helper()
	bc, err := NewContext(context.Background(), cfg,
		WithCorpus(testfixtures.Corpus()),
		WithMetaFactory(pinnedClock),
		WithMetrics(m),
	)
	require.NoError(t, err)
	return bc
}

func relaxed() *artifact.QualityThresholds {
	return &artifact.QualityThresholds{MinItems: 1, MinIcons: 1, MinI18nRatio: 0}
}

func TestRun_AllSteps(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManualMetrics("test")
	require.NoError(t, err)
	bc := newTestContext(t, cfg, m)

	report, err := Run(context.Background(), bc, nil, RunOptions{Thresholds: relaxed()})
	require.NoError(t, err)

	assert.NotEmpty(t, report.BuildID)
	assert.True(t, report.Linked)
	require.Len(t, report.Steps, len(AllSteps()))
	for i, s := range report.Steps {
		assert.Equal(t, AllSteps()[i], s.ID)
		assert.False(t, s.Skipped, s.ID)
		for _, path := range s.Artifacts {
			assert.FileExists(t, path)
			assert.Equal(t, cfg.Paths.IndexDir, filepath.Dir(path))
		}
	}
	require.NotNil(t, report.Quality)
	assert.False(t, report.Quality.HasFail())

	collected, err := m.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, collected.Steps, len(AllSteps()))
	assert.Positive(t, collected.Files["prefab"])
	assert.Positive(t, collected.Files["tuning"])
}

func TestRun_DefaultThresholdsReportFailWithoutError(t *testing.T) {
	bc := newTestContext(t, testConfig(t), nil)

	report, err := Run(context.Background(), bc, []StepID{StepCatalog, StepCatalogIndex, StepQuality}, RunOptions{})
	require.NoError(t, err)
	require.NotNil(t, report.Quality)
	assert.True(t, report.Quality.HasFail())
}

func TestRun_SkipAndForce(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	_, err := Run(ctx, newTestContext(t, cfg, nil), nil, RunOptions{Thresholds: relaxed()})
	require.NoError(t, err)
	catalog, err := os.ReadFile(filepath.Join(cfg.Paths.IndexDir, artifact.CatalogName))
	require.NoError(t, err)

	tests := []struct {
		name       string
		force      bool
		wantLinked bool
		wantSkip   map[StepID]bool
	}{
		{
			name:       "unchanged corpus skips hashed steps",
			wantLinked: false,
			wantSkip: map[StepID]bool{
				StepCatalog: true, StepCatalogIndex: true, StepTrace: true, StepCatalogSQLite: true,
				StepI18n: true, StepIcons: true, StepFarming: true, StepGaps: true,
				StepResourceIndex: true, StepMechanism: true,
				StepQuality: false, StepManifest: false,
			},
		},
		{
			name:       "force rebuilds everything",
			force:      true,
			wantLinked: true,
			wantSkip:   map[StepID]bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Run(ctx, newTestContext(t, cfg, nil), nil, RunOptions{Force: tt.force, Thresholds: relaxed()})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLinked, report.Linked)
			for _, s := range report.Steps {
				assert.Equal(t, tt.wantSkip[s.ID], s.Skipped, s.ID)
			}

			again, err := os.ReadFile(filepath.Join(cfg.Paths.IndexDir, artifact.CatalogName))
			require.NoError(t, err)
			assert.Equal(t, string(catalog), string(again))
		})
	}
}

func TestRun_NonScriptInputsInvalidateSteps(t *testing.T) {
	const ropeAtlas = `<Atlas><Texture filename="inventoryimages1.tex" /><Elements>
<Element name="spear.tex" u1="0.1" u2="0.2" v1="0.3" v2="0.4" />
<Element name="twigs.tex" u1="0" u2="0.1" v1="0" v2="0.1" />
<Element name="rope.tex" u1="0.2" u2="0.3" v1="0" v2="0.1" />
</Elements></Atlas>`
	const baseRules = "rules:\n  - match: \"spear*\"\n    add:\n      categories: [tool]\n"
	const changedRules = "rules:\n  - match: \"spear*\"\n    add:\n      categories: [weapon]\n"

	hashed := []StepID{
		StepCatalog, StepCatalogIndex, StepTrace, StepCatalogSQLite, StepI18n, StepIcons,
		StepFarming, StepGaps, StepResourceIndex, StepMechanism,
	}
	tests := []struct {
		name        string
		atlas       string
		rules       string
		toolVersion string
		rebuilt     []StepID
	}{
		{name: "nothing changed"},
		{
			name:  "atlas changed",
			atlas: ropeAtlas,
			rebuilt: []StepID{
				StepCatalog, StepCatalogIndex, StepTrace, StepCatalogSQLite, StepIcons, StepGaps, StepResourceIndex,
			},
		},
		{
			name:    "tag overrides changed",
			rules:   changedRules,
			rebuilt: []StepID{StepCatalog, StepCatalogIndex, StepTrace, StepCatalogSQLite, StepGaps},
		},
		{name: "tool version bumped", toolVersion: "v9.9.9", rebuilt: hashed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t)
			cfg.Build.TagOverrides = filepath.Join(t.TempDir(), "tags.yaml")
			require.NoError(t, os.WriteFile(cfg.Build.TagOverrides, []byte(baseRules), 0o644))

			open := func(files map[string]string, toolVersion string) *Context {
				bc, err := NewContext(ctx, cfg,
					WithCorpus(corpus.NewMemory(files, nil)),
					WithMetaFactory(pinnedClock),
					WithToolVersion(toolVersion),
				)
				require.NoError(t, err)
				return bc
			}

			_, err := Run(ctx, open(testfixtures.Files(), "v1.0.0"), nil, RunOptions{Thresholds: relaxed()})
			require.NoError(t, err)

			files := testfixtures.Files()
			if tt.atlas != "" {
				files["images/inventoryimages1.xml"] = tt.atlas
			}
			if tt.rules != "" {
				require.NoError(t, os.WriteFile(cfg.Build.TagOverrides, []byte(tt.rules), 0o644))
			}
			toolVersion := "v1.0.0"
			if tt.toolVersion != "" {
				toolVersion = tt.toolVersion
			}

			report, err := Run(ctx, open(files, toolVersion), nil, RunOptions{Thresholds: relaxed()})
			require.NoError(t, err)
			rebuilt := map[StepID]bool{}
			for _, id := range tt.rebuilt {
				rebuilt[id] = true
			}
			for _, s := range report.Steps {
				if s.ID == StepQuality || s.ID == StepManifest {
					continue
				}
				assert.Equal(t, !rebuilt[s.ID], s.Skipped, s.ID)
			}

			if tt.atlas != "" {
				icons, err := os.ReadFile(filepath.Join(cfg.Paths.IndexDir, artifact.IconIndexName))
				require.NoError(t, err)
				assert.Contains(t, string(icons), `"rope"`)
			}
		})
	}
}

func TestStepSignature(t *testing.T) {
	catalog, err := lookupStep(StepCatalog)
	require.NoError(t, err)
	farming, err := lookupStep(StepFarming)
	require.NoError(t, err)
	base := stepInputs{toolVersion: "v1", images: []byte("atlas"), tagOverrides: []byte("rules")}

	bumped := catalog
	bumped.Schema++

	tests := []struct {
		name   string
		step   Step
		inputs stepInputs
		same   bool
	}{
		{name: "identical inputs", step: catalog, inputs: base, same: true},
		{name: "schema bump", step: bumped, inputs: base},
		{name: "tool version", step: catalog, inputs: stepInputs{toolVersion: "v2", images: base.images, tagOverrides: base.tagOverrides}},
		{name: "images", step: catalog, inputs: stepInputs{toolVersion: "v1", images: []byte("other"), tagOverrides: base.tagOverrides}},
		{name: "tag overrides", step: catalog, inputs: stepInputs{toolVersion: "v1", images: base.images, tagOverrides: []byte("other")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, base.signature(catalog) == tt.inputs.signature(tt.step))
		})
	}

	other := stepInputs{toolVersion: "v1", images: []byte("other"), tagOverrides: []byte("other")}
	assert.Equal(t, base.signature(farming), other.signature(farming), "farming reads neither atlases nor tag overrides")
	assert.Len(t, base.signature(farming), 12)
}

func TestRun_MissingArtifactIsRebuilt(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	_, err := Run(ctx, newTestContext(t, cfg, nil), []StepID{StepMechanism}, RunOptions{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.IndexDir, artifact.MechanismSQLiteName)))

	report, err := Run(ctx, newTestContext(t, cfg, nil), []StepID{StepMechanism}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.False(t, report.Steps[0].Skipped)
	assert.FileExists(t, filepath.Join(cfg.Paths.IndexDir, artifact.MechanismSQLiteName))
}

func TestRun_SelectedStepsOnly(t *testing.T) {
	cfg := testConfig(t)

	report, err := Run(context.Background(), newTestContext(t, cfg, nil), []StepID{StepI18n, StepCatalog}, RunOptions{})
	require.NoError(t, err)

	require.Len(t, report.Steps, 2)
	assert.Equal(t, StepCatalog, report.Steps[0].ID)
	assert.Equal(t, StepI18n, report.Steps[1].ID)
	assert.FileExists(t, filepath.Join(cfg.Paths.IndexDir, artifact.I18nName))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.IndexDir, artifact.GapsName))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.IndexDir, artifact.ManifestName))
}

func TestRun_UnknownStep(t *testing.T) {
	_, err := Run(context.Background(), newTestContext(t, testConfig(t), nil), []StepID{"catalog3"}, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown build step "catalog3"`)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, newTestContext(t, testConfig(t), nil), []StepID{StepCatalog}, RunOptions{Force: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&StepError{Step: StepCatalog, Path: "/idx/scriptdex_catalog_v2.json", Err: cause})

	assert.Equal(t, "catalog2 /idx/scriptdex_catalog_v2.json: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestNewContext_NoCorpus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.DstRoot = t.TempDir()

	_, err := NewContext(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoSourceCorpus)

	entries, readErr := os.ReadDir(cfg.Paths.IndexDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestLoadTagOverrides(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "tags.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("rules:\n  - match: \"spear*\"\n    add:\n      categories: [tool]\n"), 0o644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("rules: [\n"), 0o644))

	tests := []struct {
		name      string
		path      string
		wantNil   bool
		wantErr   string
		wantRules int
	}{
		{name: "no path", path: "", wantNil: true},
		{name: "valid", path: valid},
		{name: "missing", path: filepath.Join(dir, "nope.yaml"), wantErr: "file not found"},
		{name: "broken", path: broken, wantErr: "load tag overrides"},
		{name: "shipped rules", path: filepath.Join("..", "..", "..", "configs", "tag_overrides.yaml"), wantRules: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadTagOverrides(tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			want := tt.wantRules
			if want == 0 {
				want = 1
			}
			assert.Len(t, got.Rules, want)
		})
	}
}
