package extractor

import (
	"context"
	"path"
	"regexp"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

var (
	brainPattern      = regexp.MustCompile(`SetBrain\s*\(\s*require\s*\(\s*['"](.*?)['"]\s*\)\s*\)`)
	stategraphPattern = regexp.MustCompile(`SetStateGraph\s*\(\s*['"](.*?)['"]\s*\)`)
	helperPattern     = regexp.MustCompile(`(?m)^\s*(Make[A-Za-z0-9_]+)\s*\(`)
)

// PrefabExtractor scans scripts/prefabs/*.lua for Prefab declarations and what they
// attach: components, tags, assets, brains, stategraphs and stat expressions.
type PrefabExtractor struct{}

// NewPrefabExtractor creates the prefab extractor.
func NewPrefabExtractor() *PrefabExtractor { return &PrefabExtractor{} }

// Kind implements Extractor.
func (e *PrefabExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorPrefab }

type prefabFileScan struct {
	file       entity.PrefabFile
	prefabs    []string
	components []string
	tags       []string
	assets     []entity.Asset
	brains     []string
	stategraph []string
	helpers    []string
	stats      map[string]string
	skipped    []string
}

// Extract implements Extractor.
func (e *PrefabExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	paths, err := selectFiles(in, "scripts/prefabs/*.lua")
	if err != nil {
		return nil, err
	}
	col, err := processFiles(ctx, in, e.Kind(), paths, func(p, content string) (*prefabFileScan, error) {
		return scanPrefabFile(p, content), nil
	})
	if err != nil {
		return nil, err
	}

	res.Prefabs = make(map[string]*entity.PrefabRecord)
	res.PrefabFiles = []entity.PrefabFile{}
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(p string, scan *prefabFileScan) {
		res.PrefabFiles = append(res.PrefabFiles, scan.file)
		for _, raw := range scan.skipped {
			res.unresolved(e.Kind(), p, "", entity.ReasonInvalidID, raw)
		}
		for _, id := range scan.prefabs {
			rec, ok := res.Prefabs[id]
			if !ok {
				rec = &entity.PrefabRecord{ID: id, StatExprs: map[string]string{}}
				res.Prefabs[id] = rec
			}
			mergePrefab(rec, p, scan)
		}
	}, paths)

	for _, rec := range res.Prefabs {
		rec.Files = entity.SortedUnique(rec.Files)
		rec.Components = entity.SortedUnique(rec.Components)
		rec.Tags = entity.SortedUnique(rec.Tags)
		rec.Brains = entity.SortedUnique(rec.Brains)
		rec.Stategraphs = entity.SortedUnique(rec.Stategraphs)
		rec.Helpers = entity.SortedUnique(rec.Helpers)
		if rec.Assets == nil {
			rec.Assets = []entity.Asset{}
		}
	}
	return res.finish(len(paths), len(res.Prefabs)), nil
}

func mergePrefab(rec *entity.PrefabRecord, p string, scan *prefabFileScan) {
	rec.Files = append(rec.Files, p)
	rec.Components = append(rec.Components, scan.components...)
	rec.Tags = append(rec.Tags, scan.tags...)
	rec.Brains = append(rec.Brains, scan.brains...)
	rec.Stategraphs = append(rec.Stategraphs, scan.stategraph...)
	rec.Helpers = append(rec.Helpers, scan.helpers...)

	seen := make(map[string]bool, len(rec.Assets))
	for _, a := range rec.Assets {
		seen[a.Type+":"+a.Path] = true
	}
	for _, a := range scan.assets {
		k := a.Type + ":" + a.Path
		if !seen[k] {
			seen[k] = true
			rec.Assets = append(rec.Assets, a)
		}
	}
	for _, k := range sortedStringKeys(scan.stats) {
		putStat(rec.StatExprs, k, scan.stats[k])
	}
}

// scanPrefabFile reads one prefab file. A file that declares no Prefab is indexed under
// its basename.
func scanPrefabFile(p, content string) *prefabFileScan {
	clean := luaparse.StripComments(content)
	scan := &prefabFileScan{}

	for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: []string{"Prefab"}}) {
		if len(call.ArgList) == 0 {
			continue
		}
		name, ok := luaparse.ParseString(call.ArgList[0])
		if !ok {
			scan.skipped = append(scan.skipped, call.ArgList[0])
			continue
		}
		id, ok := entity.CleanID(name)
		if !ok {
			scan.skipped = append(scan.skipped, name)
			continue
		}
		scan.prefabs = append(scan.prefabs, id)
	}

	for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: []string{"Asset"}}) {
		if len(call.ArgList) < 2 {
			continue
		}
		typ, ok1 := luaparse.ParseString(call.ArgList[0])
		ap, ok2 := luaparse.ParseString(call.ArgList[1])
		if ok1 && ok2 && ap != "" {
			scan.assets = append(scan.assets, entity.Asset{Type: typ, Path: ap})
		}
	}

	for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: []string{"AddTag", "AddComponent"}, MemberCalls: true}) {
		if len(call.ArgList) == 0 {
			continue
		}
		v, ok := luaparse.ParseString(call.ArgList[0])
		if !ok || v == "" {
			continue
		}
		v = strings.ToLower(v)
		if call.Name == "AddTag" {
			scan.tags = append(scan.tags, v)
		} else {
			scan.components = append(scan.components, v)
		}
	}

	for _, m := range brainPattern.FindAllStringSubmatch(clean, -1) {
		scan.brains = append(scan.brains, m[1])
	}
	for _, m := range stategraphPattern.FindAllStringSubmatch(clean, -1) {
		scan.stategraph = append(scan.stategraph, m[1])
	}
	for _, m := range helperPattern.FindAllStringSubmatch(content, -1) {
		scan.helpers = append(scan.helpers, m[1])
	}

	if len(scan.prefabs) == 0 {
		base := strings.TrimSuffix(path.Base(p), ".lua")
		if id, ok := entity.CleanID(base); ok {
			scan.prefabs = []string{id}
		}
	}
	scan.prefabs = entity.DedupPreserve(scan.prefabs)
	scan.components = entity.SortedUnique(scan.components)
	scan.tags = entity.SortedUnique(scan.tags)
	scan.stats = componentStatExprs(clean, scan.components)

	scan.file = entity.PrefabFile{
		Path:       p,
		Prefabs:    entity.SortedUnique(scan.prefabs),
		Components: scan.components,
		Tags:       scan.tags,
		Assets:     len(scan.assets),
	}
	return scan
}
