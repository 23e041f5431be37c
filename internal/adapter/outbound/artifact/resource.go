package artifact

import (
	"path"
	"strings"

	"scriptdex/internal/domain/entity"
)

// scriptKinds classifies script paths by prefix. A prefix ending in .lua matches a
// path suffix instead.
var scriptKinds = []struct {
	kind   string
	prefix string
}{
	{"prefab", "scripts/prefabs/"},
	{"prefab_postinit", "scripts/prefabs_postinit/"},
	{"component", "scripts/components/"},
	{"stategraph", "scripts/stategraphs/"},
	{"brain", "scripts/brains/"},
	{"behaviour", "scripts/behaviours/"},
	{"widget", "scripts/widgets/"},
	{"screen", "scripts/screens/"},
	{"map", "scripts/map/"},
	{"scenario", "scripts/scenarios/"},
	{"string", "scripts/strings"},
	{"language", "scripts/languages/"},
	{"tuning", "scripts/tuning.lua"},
	{"recipe", "scripts/recipes"},
	{"tool", "scripts/tools/"},
	{"util", "scripts/util/"},
}

// ClassifyScript returns the resource kind of a corpus path, or "other".
func ClassifyScript(p string) string {
	for _, k := range scriptKinds {
		if strings.HasSuffix(k.prefix, ".lua") {
			if strings.HasSuffix(p, k.prefix) {
				return k.kind
			}
			continue
		}
		if strings.HasPrefix(p, k.prefix) {
			return k.kind
		}
	}
	return "other"
}

// ResourceScripts summarizes the script files of the corpus.
type ResourceScripts struct {
	TotalFiles int                 `json:"total_files"`
	LuaFiles   int                 `json:"lua_files"`
	Categories map[string]int      `json:"categories"`
	ByKind     map[string][]string `json:"by_kind"`
}

// ResourcePrefabs is the prefab scan summary.
type ResourcePrefabs struct {
	TotalFiles   int                             `json:"total_files"`
	TotalPrefabs int                             `json:"total_prefabs"`
	Items        map[string]*entity.PrefabRecord `json:"items"`
	Files        []entity.PrefabFile             `json:"files"`
}

// ResourceAssets lists the inventory icons found in atlases.
type ResourceAssets struct {
	InventoryIcons   []string `json:"inventory_icons"`
	InventoryAtlases []string `json:"inventory_atlases"`
}

// ResourceIndex is the inventory of scripts and resources in the corpus.
type ResourceIndex struct {
	SchemaVersion int              `json:"schema_version"`
	Meta          entity.BuildMeta `json:"meta"`
	Scripts       ResourceScripts  `json:"scripts"`
	Prefabs       ResourcePrefabs  `json:"prefabs"`
	Assets        ResourceAssets   `json:"assets"`
}

// BuildResourceIndex summarizes files (the corpus listing) and the linked prefab data.
func BuildResourceIndex(files []string, g *entity.Graph) *ResourceIndex {
	idx := &ResourceIndex{
		SchemaVersion: entity.ResourceIndexSchemaVersion,
		Scripts: ResourceScripts{
			TotalFiles: len(files),
			Categories: map[string]int{},
			ByKind:     map[string][]string{},
		},
	}
	for _, f := range files {
		if path.Ext(f) != ".lua" {
			continue
		}
		idx.Scripts.LuaFiles++
		kind := ClassifyScript(f)
		idx.Scripts.ByKind[kind] = append(idx.Scripts.ByKind[kind], f)
	}
	for kind, list := range idx.Scripts.ByKind {
		idx.Scripts.Categories[kind] = len(list)
	}

	prefabFiles := g.PrefabFiles
	if prefabFiles == nil {
		prefabFiles = []entity.PrefabFile{}
	}
	idx.Prefabs = ResourcePrefabs{
		TotalFiles:   len(prefabFiles),
		TotalPrefabs: len(g.Prefabs),
		Items:        g.Prefabs,
		Files:        prefabFiles,
	}

	idx.Assets = ResourceAssets{InventoryIcons: []string{}, InventoryAtlases: []string{}}
	if g.Icons != nil {
		idx.Assets.InventoryIcons = entity.SortedKeys(g.Icons.Icons)
		idx.Assets.InventoryAtlases = entity.SortedUnique(g.Icons.Atlases)
	}
	return idx
}
