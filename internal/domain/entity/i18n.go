package entity

import "sort"

// I18nIndex holds localized item names and UI strings per language.
type I18nIndex struct {
	SchemaVersion int                          `json:"schema_version"`
	Meta          BuildMeta                    `json:"meta"`
	Langs         []string                     `json:"langs"`
	Names         map[string]map[string]string `json:"names"`
	UI            map[string]map[string]string `json:"ui"`
}

// NameResolver picks a display name for an item id. The requested language is tried
// first, then the preferred and secondary languages, then any other language in sorted
// order. The id itself is only returned when no translation exists at all.
type NameResolver struct {
	names     map[string]map[string]string
	preferred string
	secondary string
	langs     []string
}

// NewNameResolver creates a resolver over idx.
func NewNameResolver(idx *I18nIndex, preferred, secondary string) *NameResolver {
	r := &NameResolver{preferred: preferred, secondary: secondary, names: map[string]map[string]string{}}
	if idx != nil && idx.Names != nil {
		r.names = idx.Names
	}
	r.langs = make([]string, 0, len(r.names))
	for lang := range r.names {
		r.langs = append(r.langs, lang)
	}
	sort.Strings(r.langs)
	return r
}

// Lookup returns the name of id in exactly lang.
func (r *NameResolver) Lookup(id, lang string) (string, bool) {
	m, ok := r.names[lang]
	if !ok {
		return "", false
	}
	v, ok := m[id]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Name resolves id for lang through the fallback order.
func (r *NameResolver) Name(id, lang string) string {
	for _, l := range []string{lang, r.preferred, r.secondary} {
		if l == "" {
			continue
		}
		if v, ok := r.Lookup(id, l); ok {
			return v
		}
	}
	for _, l := range r.langs {
		if v, ok := r.Lookup(id, l); ok {
			return v
		}
	}
	return id
}

// Languages returns the known languages sorted.
func (r *NameResolver) Languages() []string {
	return append([]string(nil), r.langs...)
}
