package corpus

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/domain/errors/domain"
)

var fixtureFiles = map[string]string{
	"tuning.lua":           "TUNING = { SPEAR_DAMAGE = 34 }\n",
	"recipes.lua":          "Recipe(\"spear\", {Ingredient(\"twigs\", 2)}, RECIPETABS.WAR, TECH.SCIENCE_ONE)\n",
	"prefabs/spear.lua":    "return Prefab(\"spear\", fn, assets)\n",
	"prefabs/axe.lua":      "return Prefab(\"axe\", fn, assets)\n",
	"components/armor.lua": "local Armor = Class(function(self, inst) end)\n",
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create("scripts/" + name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeDir(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestOpen_Candidates(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(t *testing.T, project, dst string) Options
		expectedSource string
		expectError    error
	}{
		{
			name: "explicit zip",
			setup: func(t *testing.T, project, _ string) Options {
				zipPath := filepath.Join(project, "custom.zip")
				writeZip(t, zipPath, fixtureFiles)
				return Options{ScriptsZip: zipPath}
			},
			expectedSource: "scripts_zip",
		},
		{
			name: "explicit dir",
			setup: func(t *testing.T, project, _ string) Options {
				dir := filepath.Join(project, "unpacked")
				writeDir(t, dir, fixtureFiles)
				return Options{ScriptsDir: dir}
			},
			expectedSource: "scripts_dir",
		},
		{
			name: "archive preferred over directory",
			setup: func(t *testing.T, project, dst string) Options {
				writeDir(t, filepath.Join(project, "scripts"), fixtureFiles)
				writeZip(t, filepath.Join(dst, "data", "databundles", "scripts.zip"), fixtureFiles)
				return Options{ProjectRoot: project, DstRoot: dst}
			},
			expectedSource: "scripts_zip",
		},
		{
			name: "unreadable zip falls back",
			setup: func(t *testing.T, project, _ string) Options {
				zipPath := filepath.Join(project, "data", "scripts.zip")
				require.NoError(t, os.MkdirAll(filepath.Dir(zipPath), 0o755))
				require.NoError(t, os.WriteFile(zipPath, []byte("not a zip"), 0o644))
				writeDir(t, filepath.Join(project, "scripts"), fixtureFiles)
				return Options{ProjectRoot: project}
			},
			expectedSource: "scripts_dir",
		},
		{
			name: "no candidates",
			setup: func(t *testing.T, project, dst string) Options {
				return Options{ProjectRoot: project, DstRoot: dst}
			},
			expectError: domain.ErrNoSourceCorpus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, dst := t.TempDir(), t.TempDir()
			view, err := Open(context.Background(), tt.setup(t, project, dst))
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, view)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, view.Sources(), tt.expectedSource)
			assert.Equal(t, len(fixtureFiles), view.Len())
		})
	}
}

func TestOpen_HashIndependentOfContainer(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "scripts.zip")
	writeZip(t, zipPath, fixtureFiles)
	dir := filepath.Join(root, "scripts")
	writeDir(t, dir, fixtureFiles)

	fromZip, err := Open(context.Background(), Options{ScriptsZip: zipPath})
	require.NoError(t, err)
	fromDir, err := Open(context.Background(), Options{ScriptsDir: dir})
	require.NoError(t, err)

	assert.Len(t, fromZip.SHA256_12(), 12)
	assert.Equal(t, fromZip.SHA256_12(), fromDir.SHA256_12())
	assert.Equal(t, fromZip.Files(), fromDir.Files())
}

func TestOpen_HashChangesWithContent(t *testing.T) {
	a := NewMemory(map[string]string{"tuning.lua": "TUNING = {}"}, nil)
	b := NewMemory(map[string]string{"tuning.lua": "TUNING = { }"}, nil)
	assert.NotEqual(t, a.SHA256_12(), b.SHA256_12())
}

func TestOpen_MountsImages(t *testing.T) {
	dst := t.TempDir()
	writeZip(t, filepath.Join(dst, "data", "databundles", "scripts.zip"), fixtureFiles)
	writeDir(t, filepath.Join(dst, "data", "images"), map[string]string{
		"inventoryimages1.xml": `<Atlas><Texture filename="inventoryimages1.tex"/></Atlas>`,
		"readme.txt":           "skip",
	})

	view, err := Open(context.Background(), Options{DstRoot: dst})
	require.NoError(t, err)

	_, ok := view.Read("images/inventoryimages1.xml")
	assert.True(t, ok)
	_, ok = view.Read("images/readme.txt")
	assert.False(t, ok)
	assert.Contains(t, view.Sources(), "images_dir")

	scriptsOnly := NewMemory(fixtureFiles, nil)
	assert.Equal(t, scriptsOnly.SHA256_12(), view.SHA256_12(), "images must not change the scripts hash")
}

func TestOpen_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeDir(t, dir, fixtureFiles)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Options{ScriptsDir: dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestView_ReadAndGlob(t *testing.T) {
	view := NewMemory(fixtureFiles, map[string]string{"scripts_dir": "/tmp/x"})

	t.Run("read with and without prefix", func(t *testing.T) {
		a, ok := view.ReadString("scripts/tuning.lua")
		require.True(t, ok)
		b, ok := view.ReadString("tuning.lua")
		require.True(t, ok)
		assert.Equal(t, a, b)

		_, ok = view.Read("missing.lua")
		assert.False(t, ok)
	})

	t.Run("glob", func(t *testing.T) {
		got, err := view.Glob("scripts/prefabs/*.lua")
		require.NoError(t, err)
		assert.Equal(t, []string{"scripts/prefabs/axe.lua", "scripts/prefabs/spear.lua"}, got)

		got, err = view.Glob("scripts/**.lua")
		require.NoError(t, err)
		assert.Len(t, got, len(fixtureFiles))

		_, err = view.Glob("scripts/[")
		assert.Error(t, err)
	})

	t.Run("files are sorted copies", func(t *testing.T) {
		files := view.Files()
		assert.IsIncreasing(t, files)
		files[0] = "mutated"
		assert.NotEqual(t, "mutated", view.Files()[0])
	})
}
