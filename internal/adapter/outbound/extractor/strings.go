package extractor

import (
	"context"
	"path"
	"regexp"
	"strconv"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/valueobject"
)

const (
	stringsPath      = "scripts/strings.lua"
	namesContext     = "STRINGS.NAMES."
	uiFilterContext  = "STRINGS.UI.CRAFTING_FILTERS."
	uiFilterKeyScope = "crafting_filters."
)

var (
	namesAssign = regexp.MustCompile(`(?m)^\s*STRINGS\.NAMES\.([A-Za-z0-9_]+)\s*=\s*(.+?)\s*,?\s*$`)
	namesTable  = regexp.MustCompile(`\bNAMES\s*=\s*\{`)
	filterTable = regexp.MustCompile(`\bCRAFTING_FILTERS\s*=\s*\{`)
)

// poLanguages maps .po basenames to language codes. Unknown files keep their basename.
var poLanguages = map[string]string{
	"chinese_s":     "zh",
	"chinese_t":     "zht",
	"french":        "fr",
	"german":        "de",
	"italian":       "it",
	"japanese":      "ja",
	"korean":        "ko",
	"polish":        "pl",
	"portuguese_br": "pt",
	"russian":       "ru",
	"spanish":       "es",
	"spanish_mex":   "mex",
}

// LanguageForPO returns the language code of a .po file path.
func LanguageForPO(p string) string {
	base := strings.ToLower(strings.TrimSuffix(path.Base(p), path.Ext(p)))
	if lang, ok := poLanguages[base]; ok {
		return lang
	}
	return base
}

// StringsExtractor reads localized names and crafting filter labels.
type StringsExtractor struct{}

// NewStringsExtractor creates the strings extractor.
func NewStringsExtractor() *StringsExtractor { return &StringsExtractor{} }

// Kind implements Extractor.
func (e *StringsExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorStrings }

// Extract implements Extractor. English comes from strings.lua, every other language
// from its .po file.
func (e *StringsExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	res.Strings = make(map[string]*LangStrings)
	files := 0

	if content, ok := readOptional(in, stringsPath); ok {
		files++
		res.Strings["en"] = parseStringsLua(content)
	}

	paths, err := selectFiles(in, "scripts/languages/*.po")
	if err != nil {
		return nil, err
	}
	col, err := processFiles(ctx, in, e.Kind(), paths, func(p, content string) (*LangStrings, error) {
		return langFromPO(p, ParsePO(content)), nil
	})
	if err != nil {
		return nil, err
	}
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(p string, ls *LangStrings) {
		lang := LanguageForPO(p)
		if _, exists := res.Strings[lang]; exists {
			res.unresolved(e.Kind(), p, lang, "duplicate_language", "")
			return
		}
		res.Strings[lang] = ls
	}, paths)
	files += len(paths)

	entities := 0
	for _, ls := range res.Strings {
		entities += len(ls.Names)
	}
	return res.finish(files, entities), nil
}

func parseStringsLua(content string) *LangStrings {
	clean := luaparse.StripComments(content)
	ls := &LangStrings{Names: map[string]string{}, UI: map[string]string{}, Path: stringsPath}
	if tbl, ok := tableByPattern(clean, namesTable); ok {
		for _, e := range tbl.Entries {
			if e.Positional || e.KeyIsExpr {
				continue
			}
			if s, ok := e.Value.AsString(); ok {
				addName(ls.Names, e.Key, s)
			}
		}
	}
	for _, m := range namesAssign.FindAllStringSubmatch(clean, -1) {
		if s, ok := luaparse.ParseString(strings.TrimRight(m[2], ",")); ok {
			addName(ls.Names, m[1], s)
		}
	}
	if tbl, ok := tableByPattern(clean, filterTable); ok {
		for _, e := range tbl.Entries {
			if e.Positional || e.KeyIsExpr {
				continue
			}
			if s, ok := e.Value.AsString(); ok && s != "" {
				ls.UI[uiFilterKeyScope+strings.ToLower(e.Key)] = s
			}
		}
	}
	return ls
}

// addName stores key lowercased; a key with underscores is also reachable without them
// unless that spelling is already taken.
func addName(names map[string]string, key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	names[key] = value
	if strings.Contains(key, "_") {
		alt := strings.ReplaceAll(key, "_", "")
		if _, ok := names[alt]; !ok {
			names[alt] = value
		}
	}
}

func langFromPO(p string, entries map[string]string) *LangStrings {
	ls := &LangStrings{Names: map[string]string{}, UI: map[string]string{}, Path: p}
	for _, ctxKey := range sortedStringKeys(entries) {
		val := entries[ctxKey]
		switch {
		case strings.HasPrefix(ctxKey, namesContext):
			addName(ls.Names, ctxKey[len(namesContext):], val)
		case strings.HasPrefix(ctxKey, uiFilterContext):
			if v := strings.TrimSpace(val); v != "" {
				ls.UI[uiFilterKeyScope+strings.ToLower(ctxKey[len(uiFilterContext):])] = v
			}
		}
	}
	return ls
}

// ParsePO returns msgctxt -> msgstr for every entry that has both. Plural entries keep
// msgstr[0].
func ParsePO(text string) map[string]string {
	out := make(map[string]string)
	cur := map[string]string{}
	last := ""
	commit := func() {
		if c, s := cur["msgctxt"], cur["msgstr"]; c != "" && s != "" {
			out[c] = s
		}
		cur = map[string]string{}
		last = ""
	}

	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		switch {
		case s == "":
			commit()
		case strings.HasPrefix(s, "#"):
		case strings.HasPrefix(s, "msgctxt "):
			cur["msgctxt"], last = poUnquote(s[len("msgctxt "):]), "msgctxt"
		case strings.HasPrefix(s, "msgid_plural "):
			cur["msgid_plural"], last = poUnquote(s[len("msgid_plural "):]), "msgid_plural"
		case strings.HasPrefix(s, "msgid "):
			cur["msgid"], last = poUnquote(s[len("msgid "):]), "msgid"
		case strings.HasPrefix(s, "msgstr["):
			rb := strings.IndexByte(s, ']')
			last = ""
			if rb < 0 {
				continue
			}
			if idx, err := strconv.Atoi(strings.TrimSpace(s[len("msgstr["):rb])); err == nil && idx == 0 {
				cur["msgstr"], last = poUnquote(s[rb+1:]), "msgstr"
			}
		case strings.HasPrefix(s, "msgstr "):
			cur["msgstr"], last = poUnquote(s[len("msgstr "):]), "msgstr"
		case strings.HasPrefix(s, `"`) && last != "":
			cur[last] += poUnquote(s)
		}
	}
	commit()
	return out
}

func poUnquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ""
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		if ch != '\\' || i+1 >= len(inner) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(inner[i])
		}
	}
	return b.String()
}
