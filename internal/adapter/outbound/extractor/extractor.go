// Package extractor holds the domain extractors. Each one reads a fixed slice of the
// script corpus and returns normalized records plus everything it could not normalize.
package extractor

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"scriptdex/internal/adapter/outbound/tuning"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
	"scriptdex/internal/port/outbound"
)

// Extractor turns part of the corpus into domain records.
type Extractor interface {
	Kind() valueobject.ExtractorKind
	Extract(ctx context.Context, in Input) (*Result, error)
}

// Input is what every extractor reads from. Select narrows the candidate files when
// set; Concurrency bounds per-file workers and defaults to the CPU count.
type Input struct {
	Corpus      outbound.CorpusView
	Select      func(path string) bool
	Concurrency int
}

// CraftMeta carries the recipe filter definitions.
type CraftMeta struct {
	FilterDefs  []map[string]interface{}
	FilterOrder []string
}

// LangStrings are the localized names and UI labels of one language.
type LangStrings struct {
	Names map[string]string
	UI    map[string]string
	Path  string
}

// Result is the union of everything an extractor can produce. Only the fields of the
// extractor's own kind are set.
type Result struct {
	Kind              valueobject.ExtractorKind
	Prefabs           map[string]*entity.PrefabRecord
	PrefabFiles       []entity.PrefabFile
	Recipes           map[string]*entity.CraftRecipe
	CraftMeta         *CraftMeta
	Cooking           map[string]*entity.CookingRecipe
	Ingredients       map[string]*entity.CookingIngredient
	Components        map[string]*entity.Component
	ComponentDefaults map[string]map[string]string
	Tuning            *tuning.Table
	Farming           *FarmingRaw
	Strings           map[string]*LangStrings
	Icons             map[string]entity.Icon
	Atlases           []string
	Loot              []string
	Unresolved        []entity.UnresolvedRecord
	Summary           entity.ExtractSummary
}

func newResult(kind valueobject.ExtractorKind) *Result {
	return &Result{Kind: kind}
}

// finish sorts the unresolved records and fills the summary.
func (r *Result) finish(files, entities int) *Result {
	sort.SliceStable(r.Unresolved, func(i, j int) bool { return r.Unresolved[i].Less(r.Unresolved[j]) })
	if r.Unresolved == nil {
		r.Unresolved = []entity.UnresolvedRecord{}
	}
	r.Summary = entity.ExtractSummary{Files: files, Entities: entities, Unresolved: len(r.Unresolved)}
	return r
}

func (r *Result) unresolved(kind valueobject.ExtractorKind, path, ent, reason, raw string) {
	r.Unresolved = append(r.Unresolved, entity.UnresolvedRecord{
		Kind: kind.String(), Path: path, Entity: ent, Reason: reason, Raw: clip(raw),
	})
}

const maxRawLen = 240

func clip(raw string) string {
	if len(raw) <= maxRawLen {
		return raw
	}
	return raw[:maxRawLen] + "..."
}

// selectFiles returns the corpus paths matching pattern that also pass in.Select.
func selectFiles(in Input, patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := in.Corpus.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] || (in.Select != nil && !in.Select(m)) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fileCollector accumulates per-file outputs under a mutex. Outputs are kept by file
// position so that merging happens in sorted path order whatever order workers finish in.
type fileCollector[T any] struct {
	mu         sync.Mutex
	outs       []T
	done       []bool
	unresolved []entity.UnresolvedRecord
}

func newFileCollector[T any](n int) *fileCollector[T] {
	return &fileCollector[T]{outs: make([]T, n), done: make([]bool, n)}
}

func (c *fileCollector[T]) put(i int, out T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outs[i] = out
	c.done[i] = true
}

func (c *fileCollector[T]) fail(rec entity.UnresolvedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unresolved = append(c.unresolved, rec)
}

// each calls fn for every collected output in file order.
func (c *fileCollector[T]) each(fn func(path string, out T), paths []string) {
	for i, ok := range c.done {
		if ok {
			fn(paths[i], c.outs[i])
		}
	}
}

// processFiles runs parse over every path on a bounded worker pool. A parse error or a
// panic inside parse becomes an unresolved record for that file. Only cancellation of
// ctx is returned as an error.
func processFiles[T any](
	ctx context.Context,
	in Input,
	kind valueobject.ExtractorKind,
	paths []string,
	parse func(path, content string) (T, error),
) (*fileCollector[T], error) {
	col := newFileCollector[T](len(paths))
	limit := in.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, ok := in.Corpus.ReadString(p)
			if !ok {
				col.fail(entity.UnresolvedRecord{Kind: kind.String(), Path: p, Reason: entity.ReasonParseError, Raw: "unreadable"})
				return nil
			}
			out, err := safeParse(gctx, kind, p, content, parse)
			if err != nil {
				reason := entity.ReasonParseError
				if _, isPanic := err.(panicError); isPanic {
					reason = entity.ReasonPanic
				}
				col.fail(entity.UnresolvedRecord{Kind: kind.String(), Path: p, Reason: reason, Raw: clip(err.Error())})
				return nil
			}
			col.put(i, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return col, nil
}

type panicError struct{ value interface{} }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func safeParse[T any](
	ctx context.Context,
	kind valueobject.ExtractorKind,
	path, content string,
	parse func(path, content string) (T, error),
) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slogger.Error(ctx, "Recovered panic in extractor file handler", slogger.Fields{
				"kind":  kind.String(),
				"path":  path,
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			err = panicError{value: r}
		}
	}()
	return parse(path, content)
}

// readOptional reads a single file when it exists and passes the selector.
func readOptional(in Input, path string) (string, bool) {
	if in.Select != nil && !in.Select(path) {
		return "", false
	}
	return in.Corpus.ReadString(path)
}
