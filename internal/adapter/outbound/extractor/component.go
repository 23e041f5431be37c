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
	classAliasPattern = regexp.MustCompile(`(?m)^\s*(?:local\s+)?([A-Za-z0-9_]+)\s*=\s*Class\b`)
	methodPattern     = regexp.MustCompile(`\bfunction\s+([A-Za-z0-9_]+)[:.]([A-Za-z0-9_]+)\s*\(`)
	fieldPattern      = regexp.MustCompile(`\bself\.([A-Za-z0-9_]+)\s*=[^=]`)
	requirePattern    = regexp.MustCompile(`require\s*\(?\s*["'](.*?)["']\s*\)?`)
	returnPattern     = regexp.MustCompile(`(?m)^\s*return\s+([A-Za-z0-9_]+)\s*$`)
)

// ComponentExtractor reads scripts/components/*.lua class definitions and the stat
// values each component sets on itself.
type ComponentExtractor struct{}

// NewComponentExtractor creates the component extractor.
func NewComponentExtractor() *ComponentExtractor { return &ComponentExtractor{} }

// Kind implements Extractor.
func (e *ComponentExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorComponent }

type componentScan struct {
	comp     *entity.Component
	defaults map[string]string
}

// Extract implements Extractor.
func (e *ComponentExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	paths, err := selectFiles(in, "scripts/components/*.lua")
	if err != nil {
		return nil, err
	}
	col, err := processFiles(ctx, in, e.Kind(), paths, func(p, content string) (componentScan, error) {
		comp := parseComponent(p, content)
		return componentScan{comp: comp, defaults: componentDefaultExprs(comp.ID, luaparse.StripComments(content))}, nil
	})
	if err != nil {
		return nil, err
	}

	res.Components = make(map[string]*entity.Component)
	res.ComponentDefaults = make(map[string]map[string]string)
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(p string, scan componentScan) {
		if _, ok := entity.CleanID(scan.comp.ID); !ok {
			res.unresolved(e.Kind(), p, scan.comp.ID, entity.ReasonInvalidID, "")
			return
		}
		res.Components[scan.comp.ID] = scan.comp
		if len(scan.defaults) > 0 {
			res.ComponentDefaults[scan.comp.ID] = scan.defaults
		}
	}, paths)
	return res.finish(len(paths), len(res.Components)), nil
}

// parseComponent recovers the class surface of a component file.
func parseComponent(p, content string) *entity.Component {
	clean := luaparse.StripComments(content)
	id := strings.ToLower(strings.TrimSuffix(path.Base(p), ".lua"))

	aliasSet := make(map[string]bool)
	for _, m := range classAliasPattern.FindAllStringSubmatch(clean, -1) {
		aliasSet[m[1]] = true
	}
	aliases := sortedStringKeys(aliasSet)

	className := ""
	if m := returnPattern.FindAllStringSubmatch(clean, -1); len(m) > 0 {
		if last := m[len(m)-1][1]; aliasSet[last] {
			className = last
		}
	}
	if className == "" && len(aliases) > 0 {
		className = aliases[0]
	}
	if className == "" {
		className = guessClassName(id)
		aliasSet[className] = true
		aliases = sortedStringKeys(aliasSet)
	}

	var methods []string
	for _, m := range methodPattern.FindAllStringSubmatch(clean, -1) {
		if aliasSet[m[1]] {
			methods = append(methods, m[2])
		}
	}
	var fields []string
	for _, m := range fieldPattern.FindAllStringSubmatch(clean, -1) {
		fields = append(fields, m[1])
	}
	var events []string
	for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: []string{"ListenForEvent"}, MemberCalls: true}) {
		if len(call.ArgList) == 0 {
			continue
		}
		if ev, ok := luaparse.ParseString(call.ArgList[0]); ok {
			events = append(events, ev)
		}
	}
	var requires []string
	for _, m := range requirePattern.FindAllStringSubmatch(clean, -1) {
		requires = append(requires, m[1])
	}

	return &entity.Component{
		ID:        id,
		ClassName: className,
		Aliases:   aliases,
		Methods:   entity.SortedUnique(methods),
		Fields:    entity.SortedUnique(fields),
		Events:    entity.SortedUnique(events),
		Requires:  entity.SortedUnique(requires),
		Path:      p,
	}
}

// guessClassName turns "finite_uses" into "FiniteUses".
func guessClassName(id string) string {
	var b strings.Builder
	for _, part := range strings.Split(id, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}
