package entity

import "sort"

// CatalogIndexRecord is the compact, search-friendly view of one item.
type CatalogIndexRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Image      string   `json:"image,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	HasIcon    bool     `json:"has_icon"`
	IconOnly   bool     `json:"icon_only"`
	Kind       string   `json:"kind,omitempty"`
	Categories []string `json:"categories"`
	Behaviors  []string `json:"behaviors"`
	Sources    []string `json:"sources"`
	Tags       []string `json:"tags"`
	Components []string `json:"components"`
	Slots      []string `json:"slots"`
}

// CatalogIndexCounts summarizes the compact index.
type CatalogIndexCounts struct {
	ItemsTotal    int `json:"items_total"`
	ItemsWithIcon int `json:"items_with_icon"`
	IconOnly      int `json:"icon_only"`
}

// CatalogIndexes are the inverted indexes of the compact index. Every value is a
// sorted, de-duplicated id list.
type CatalogIndexes struct {
	ByKind      map[string][]string `json:"by_kind"`
	ByCategory  map[string][]string `json:"by_category"`
	ByBehavior  map[string][]string `json:"by_behavior"`
	BySource    map[string][]string `json:"by_source"`
	ByComponent map[string][]string `json:"by_component"`
	ByTag       map[string][]string `json:"by_tag"`
	BySlot      map[string][]string `json:"by_slot"`
}

// CatalogIndex is the compact catalog index document.
type CatalogIndex struct {
	SchemaVersion int                  `json:"schema_version"`
	Meta          BuildMeta            `json:"meta"`
	Counts        CatalogIndexCounts   `json:"counts"`
	Items         []CatalogIndexRecord `json:"items"`
	Indexes       CatalogIndexes       `json:"indexes"`
}

// BuildCatalogIndex derives the compact index from a catalog. Icons that have no item
// still get an icon-only record. name returns the display name of an id and may be nil.
func BuildCatalogIndex(c *Catalog, icons *IconIndex, iconBase string, name func(id string) string) *CatalogIndex {
	ids := map[string]bool{}
	for id := range c.Items {
		ids[id] = true
	}
	for id := range c.Assets {
		ids[id] = true
	}
	if icons != nil {
		for id := range icons.Icons {
			ids[id] = true
		}
	}

	idx := &CatalogIndex{
		SchemaVersion: CatalogIndexSchemaVersion,
		Items:         make([]CatalogIndexRecord, 0, len(ids)),
	}
	for _, id := range SortedKeys(ids) {
		rec := CatalogIndexRecord{ID: id, Name: id}
		if name != nil {
			if n := name(id); n != "" {
				rec.Name = n
			}
		}

		assets, hasAssets := c.Assets[id]
		item, isItem := c.Items[id]
		if !hasAssets && isItem {
			assets = item.Assets
		}
		rec.Icon = assets.Icon
		if rec.Icon == "" {
			rec.Icon = assets.Image
		}
		if rec.Icon == "" && icons != nil {
			if _, ok := icons.Icons[id]; ok {
				rec.Icon = iconBase + id + ".png"
			}
		}
		rec.Image = assets.Image
		if rec.Image == "" {
			rec.Image = rec.Icon
		}
		rec.HasIcon = rec.Icon != ""
		rec.IconOnly = !isItem

		if isItem {
			rec.Kind = item.Kind
			rec.Categories = nonNil(item.Categories)
			rec.Behaviors = nonNil(item.Behaviors)
			rec.Sources = nonNil(item.Sources)
			rec.Tags = nonNil(item.Tags)
			rec.Components = nonNil(item.Components)
			rec.Slots = nonNil(item.Slots)
		} else {
			rec.Categories, rec.Behaviors, rec.Sources = []string{}, []string{}, []string{}
			rec.Tags, rec.Components, rec.Slots = []string{}, []string{}, []string{}
		}
		idx.Items = append(idx.Items, rec)
	}

	idx.Indexes = buildCatalogIndexes(idx.Items)
	for _, rec := range idx.Items {
		if rec.HasIcon {
			idx.Counts.ItemsWithIcon++
		}
		if rec.IconOnly {
			idx.Counts.IconOnly++
		}
	}
	idx.Counts.ItemsTotal = len(idx.Items)
	return idx
}

func buildCatalogIndexes(records []CatalogIndexRecord) CatalogIndexes {
	out := CatalogIndexes{
		ByKind:      map[string][]string{},
		ByCategory:  map[string][]string{},
		ByBehavior:  map[string][]string{},
		BySource:    map[string][]string{},
		ByComponent: map[string][]string{},
		ByTag:       map[string][]string{},
		BySlot:      map[string][]string{},
	}
	push := func(bucket map[string][]string, keys []string, id string) {
		for _, k := range keys {
			if k != "" {
				bucket[k] = append(bucket[k], id)
			}
		}
	}
	for _, r := range records {
		if r.Kind != "" {
			push(out.ByKind, []string{r.Kind}, r.ID)
		}
		push(out.ByCategory, r.Categories, r.ID)
		push(out.ByBehavior, r.Behaviors, r.ID)
		push(out.BySource, r.Sources, r.ID)
		push(out.ByComponent, r.Components, r.ID)
		push(out.ByTag, r.Tags, r.ID)
		push(out.BySlot, r.Slots, r.ID)
	}
	for _, bucket := range []map[string][]string{
		out.ByKind, out.ByCategory, out.ByBehavior, out.BySource, out.ByComponent, out.ByTag, out.BySlot,
	} {
		for k, ids := range bucket {
			bucket[k] = SortedUnique(ids)
		}
	}
	return out
}

// Record returns the compact record of id using binary search over the sorted items.
func (idx *CatalogIndex) Record(id string) (CatalogIndexRecord, bool) {
	i := sort.Search(len(idx.Items), func(i int) bool { return idx.Items[i].ID >= id })
	if i < len(idx.Items) && idx.Items[i].ID == id {
		return idx.Items[i], true
	}
	return CatalogIndexRecord{}, false
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
