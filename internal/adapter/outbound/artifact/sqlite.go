package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"scriptdex/internal/application/common"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

const sqliteDriver = "sqlite"

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction after error %w: %w", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// buildSQLite creates a fresh database next to path, fills it and renames it into
// place. A crash mid-build leaves the previous mirror untouched.
func buildSQLite(ctx context.Context, path string, schema []string, fill func(*sql.Tx) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	db, err := sql.Open(sqliteDriver, tmp)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	err = func() error {
		for _, stmt := range schema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return withTx(ctx, db, fill)
	}()
	if closeErr := db.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close database: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename database: %w", err)
	}
	return nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func statValue(s *entity.Stat) sql.NullFloat64 {
	if s == nil {
		return sql.NullFloat64{}
	}
	if f, ok := s.NumericValue(); ok {
		return sql.NullFloat64{Float64: f, Valid: true}
	}
	return sql.NullFloat64{}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// execAll prepares stmt once and runs it for every row.
func execAll(ctx context.Context, tx *sql.Tx, stmt string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare %q: %w", stmt, err)
	}
	defer prepared.Close()
	for _, row := range rows {
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert: %w", err)
		}
	}
	return nil
}

var catalogSchema = []string{
	`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE items (id TEXT PRIMARY KEY, kind TEXT, atlas TEXT, image TEXT, icon TEXT, prefab_files_json TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE item_stats (item_id TEXT NOT NULL, stat_key TEXT NOT NULL, expr TEXT, expr_resolved TEXT, value REAL, value_json TEXT, trace_key TEXT, source TEXT, source_component TEXT, PRIMARY KEY (item_id, stat_key))`,
	`CREATE TABLE item_categories (item_id TEXT NOT NULL, category TEXT NOT NULL, PRIMARY KEY (item_id, category))`,
	`CREATE TABLE item_behaviors (item_id TEXT NOT NULL, behavior TEXT NOT NULL, PRIMARY KEY (item_id, behavior))`,
	`CREATE TABLE item_sources (item_id TEXT NOT NULL, source TEXT NOT NULL, PRIMARY KEY (item_id, source))`,
	`CREATE TABLE item_tags (item_id TEXT NOT NULL, tag TEXT NOT NULL, PRIMARY KEY (item_id, tag))`,
	`CREATE TABLE item_components (item_id TEXT NOT NULL, component TEXT NOT NULL, PRIMARY KEY (item_id, component))`,
	`CREATE TABLE item_slots (item_id TEXT NOT NULL, slot TEXT NOT NULL, PRIMARY KEY (item_id, slot))`,
	`CREATE TABLE assets (id TEXT PRIMARY KEY, atlas TEXT, image TEXT, icon TEXT)`,
	`CREATE TABLE craft_recipes (name TEXT PRIMARY KEY, product TEXT, tech TEXT, tab TEXT, builder_tag TEXT, station_tag TEXT, image TEXT, atlas TEXT, numtogive REAL, filters_json TEXT, unresolved_json TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE craft_ingredients (recipe TEXT NOT NULL, idx INTEGER NOT NULL, item_id TEXT NOT NULL, amount_expr TEXT, amount_value REAL, trace_key TEXT, PRIMARY KEY (recipe, idx))`,
	`CREATE TABLE cooking_recipes (name TEXT PRIMARY KEY, priority REAL, weight REAL, foodtype TEXT, hunger REAL, health REAL, sanity REAL, perishtime REAL, cooktime REAL, card_json TEXT, rule_json TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE cooking_ingredients (id TEXT PRIMARY KEY, foodtype TEXT, tags_json TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE catalog_index (id TEXT PRIMARY KEY, image TEXT, icon TEXT, has_icon INTEGER, icon_only INTEGER, kind TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE components (id TEXT PRIMARY KEY, class_name TEXT, path TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE prefab_components (prefab_id TEXT NOT NULL, component TEXT NOT NULL, PRIMARY KEY (prefab_id, component))`,
	`CREATE TABLE links (source_kind TEXT NOT NULL, source_id TEXT NOT NULL, target_kind TEXT NOT NULL, target_id TEXT NOT NULL, relation TEXT NOT NULL)`,
	`CREATE INDEX idx_links_target ON links (target_kind, target_id)`,
	`CREATE INDEX idx_craft_ingredients_item ON craft_ingredients (item_id)`,
}

// CatalogMirror is the input of the catalog SQLite mirror.
type CatalogMirror struct {
	Meta    entity.BuildMeta
	Catalog *entity.Catalog
	Index   *entity.CatalogIndex
	Graph   *entity.Graph
}

// WriteCatalogSQLite writes the relational mirror of the catalog to path.
func WriteCatalogSQLite(ctx context.Context, path string, m CatalogMirror) error {
	c := m.Catalog
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	return buildSQLite(ctx, path, catalogSchema, func(tx *sql.Tx) error {
		metaRows := [][]interface{}{
			{"schema_version", strconv.Itoa(c.SchemaVersion)},
			{"db_schema_version", strconv.Itoa(entity.CatalogDBSchemaVersion)},
			{"meta", mustJSON(m.Meta)},
			{"stats", mustJSON(c.Stats)},
		}
		if m.Index != nil {
			metaRows = append(metaRows,
				[]interface{}{"catalog_index_meta", mustJSON(m.Index.Meta)},
				[]interface{}{"catalog_index_counts", mustJSON(m.Index.Counts)})
		}
		if err := execAll(ctx, tx, `INSERT INTO meta (key, value) VALUES (?, ?)`, metaRows); err != nil {
			return err
		}

		var items, stats [][]interface{}
		lists := map[string][][]interface{}{}
		for _, id := range entity.SortedKeys(c.Items) {
			it := c.Items[id]
			items = append(items, []interface{}{id, it.Kind, it.Assets.Atlas, it.Assets.Image, it.Assets.Icon,
				mustJSON(it.PrefabFiles), mustJSON(it)})
			for _, key := range entity.SortedKeys(it.Stats) {
				s := it.Stats[key]
				stats = append(stats, []interface{}{id, key, s.Expr, s.ExprResolved, statValue(&s),
					mustJSON(s.Value), s.TraceKey, s.Source, s.SourceComponent})
			}
			for table, values := range map[string][]string{
				"item_categories": it.Categories,
				"item_behaviors":  it.Behaviors,
				"item_sources":    it.Sources,
				"item_tags":       it.Tags,
				"item_components": it.Components,
				"item_slots":      it.Slots,
			} {
				for _, v := range entity.SortedUnique(values) {
					lists[table] = append(lists[table], []interface{}{id, v})
				}
			}
		}
		if err := execAll(ctx, tx, `INSERT INTO items VALUES (?, ?, ?, ?, ?, ?, ?)`, items); err != nil {
			return err
		}
		if err := execAll(ctx, tx, `INSERT INTO item_stats VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, stats); err != nil {
			return err
		}
		for _, table := range entity.SortedKeys(lists) {
			if err := execAll(ctx, tx, `INSERT INTO `+table+` VALUES (?, ?)`, lists[table]); err != nil {
				return err
			}
		}

		var assets [][]interface{}
		for _, id := range entity.SortedKeys(c.Assets) {
			a := c.Assets[id]
			assets = append(assets, []interface{}{id, a.Atlas, a.Image, a.Icon})
		}
		if err := execAll(ctx, tx, `INSERT INTO assets VALUES (?, ?, ?, ?)`, assets); err != nil {
			return err
		}

		var recipes, ingredients [][]interface{}
		for _, name := range entity.SortedKeys(c.Craft.Recipes) {
			r := c.Craft.Recipes[name]
			recipes = append(recipes, []interface{}{name, r.Product, r.Tech, r.Tab, r.BuilderTag, r.StationTag,
				r.Image, r.Atlas, nullFloat(r.NumToGive), mustJSON(r.Filters), mustJSON(r.IngredientsUnresolved), mustJSON(r)})
			for i, ing := range r.Ingredients {
				ingredients = append(ingredients, []interface{}{name, i, ing.ItemID, ing.AmountExpr,
					nullFloat(ing.AmountValue), ing.TraceKey})
			}
		}
		if err := execAll(ctx, tx, `INSERT INTO craft_recipes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, recipes); err != nil {
			return err
		}
		if err := execAll(ctx, tx, `INSERT INTO craft_ingredients VALUES (?, ?, ?, ?, ?, ?)`, ingredients); err != nil {
			return err
		}

		var cooking [][]interface{}
		for _, name := range entity.SortedKeys(c.Cooking) {
			r := c.Cooking[name]
			cooking = append(cooking, []interface{}{name, r.Priority, r.Weight, r.FoodType,
				statValue(r.Hunger), statValue(r.Health), statValue(r.Sanity), statValue(r.PerishTime),
				statValue(r.CookTime), mustJSON(r.CardIngredients), mustJSON(r.Rule), mustJSON(r)})
		}
		if err := execAll(ctx, tx, `INSERT INTO cooking_recipes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, cooking); err != nil {
			return err
		}

		var cookIngs [][]interface{}
		for _, id := range entity.SortedKeys(c.CookingIngredients) {
			ing := c.CookingIngredients[id]
			cookIngs = append(cookIngs, []interface{}{id, ing.FoodType, mustJSON(ing.Tags), mustJSON(ing)})
		}
		if err := execAll(ctx, tx, `INSERT INTO cooking_ingredients VALUES (?, ?, ?, ?)`, cookIngs); err != nil {
			return err
		}

		if m.Index != nil {
			var rows [][]interface{}
			for _, rec := range m.Index.Items {
				rows = append(rows, []interface{}{rec.ID, rec.Image, rec.Icon, boolInt(rec.HasIcon),
					boolInt(rec.IconOnly), rec.Kind, mustJSON(rec)})
			}
			if err := execAll(ctx, tx, `INSERT INTO catalog_index VALUES (?, ?, ?, ?, ?, ?, ?)`, rows); err != nil {
				return err
			}
		}

		if g := m.Graph; g != nil {
			var comps, prefabComps, links [][]interface{}
			for _, id := range entity.SortedKeys(g.Components) {
				comp := g.Components[id]
				comps = append(comps, []interface{}{id, comp.ClassName, comp.Path, mustJSON(comp)})
			}
			for _, id := range entity.SortedKeys(g.Prefabs) {
				for _, comp := range entity.SortedUnique(g.Prefabs[id].Components) {
					prefabComps = append(prefabComps, []interface{}{id, comp})
				}
			}
			for _, l := range g.Links {
				links = append(links, []interface{}{l.SourceKind, l.SourceID, l.TargetKind, l.TargetID, l.Relation})
			}
			if err := execAll(ctx, tx, `INSERT INTO components VALUES (?, ?, ?, ?)`, comps); err != nil {
				return err
			}
			if err := execAll(ctx, tx, `INSERT INTO prefab_components VALUES (?, ?)`, prefabComps); err != nil {
				return err
			}
			if err := execAll(ctx, tx, `INSERT INTO links VALUES (?, ?, ?, ?, ?)`, links); err != nil {
				return err
			}
		}
		return nil
	})
}

var mechanismSchema = []string{
	`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE components (id TEXT PRIMARY KEY, class_name TEXT, path TEXT, data_json TEXT NOT NULL)`,
	`CREATE TABLE component_fields (component_id TEXT NOT NULL, name TEXT NOT NULL, PRIMARY KEY (component_id, name))`,
	`CREATE TABLE component_methods (component_id TEXT NOT NULL, name TEXT NOT NULL, PRIMARY KEY (component_id, name))`,
	`CREATE TABLE component_events (component_id TEXT NOT NULL, name TEXT NOT NULL, PRIMARY KEY (component_id, name))`,
	`CREATE TABLE prefabs (id TEXT PRIMARY KEY, data_json TEXT NOT NULL)`,
	`CREATE TABLE prefab_components (prefab_id TEXT NOT NULL, component_id TEXT NOT NULL, PRIMARY KEY (prefab_id, component_id))`,
	`CREATE TABLE links (source TEXT NOT NULL, source_id TEXT NOT NULL, target TEXT NOT NULL, target_id TEXT NOT NULL)`,
	`CREATE INDEX idx_prefab_components_component ON prefab_components (component_id)`,
}

// WriteMechanismSQLite writes the relational mirror of the mechanism index to path.
func WriteMechanismSQLite(ctx context.Context, path string, idx *MechanismIndex) error {
	if idx == nil {
		return fmt.Errorf("mechanism index is nil")
	}
	return buildSQLite(ctx, path, mechanismSchema, func(tx *sql.Tx) error {
		metaRows := [][]interface{}{
			{"schema_version", strconv.Itoa(idx.SchemaVersion)},
			{"db_schema_version", strconv.Itoa(entity.CatalogDBSchemaVersion)},
			{"meta", mustJSON(idx.Meta)},
			{"counts", mustJSON(idx.Counts)},
		}
		if err := execAll(ctx, tx, `INSERT INTO meta (key, value) VALUES (?, ?)`, metaRows); err != nil {
			return err
		}

		var comps, fields, methods, events [][]interface{}
		for _, id := range entity.SortedKeys(idx.Components.Items) {
			comp := idx.Components.Items[id]
			comps = append(comps, []interface{}{id, comp.ClassName, comp.Path, mustJSON(comp)})
			for _, f := range entity.SortedUnique(comp.Fields) {
				fields = append(fields, []interface{}{id, f})
			}
			for _, f := range entity.SortedUnique(comp.Methods) {
				methods = append(methods, []interface{}{id, f})
			}
			for _, f := range entity.SortedUnique(comp.Events) {
				events = append(events, []interface{}{id, f})
			}
		}
		for _, step := range []struct {
			stmt string
			rows [][]interface{}
		}{
			{`INSERT INTO components VALUES (?, ?, ?, ?)`, comps},
			{`INSERT INTO component_fields VALUES (?, ?)`, fields},
			{`INSERT INTO component_methods VALUES (?, ?)`, methods},
			{`INSERT INTO component_events VALUES (?, ?)`, events},
		} {
			if err := execAll(ctx, tx, step.stmt, step.rows); err != nil {
				return err
			}
		}

		var prefabs, prefabComps [][]interface{}
		for _, id := range entity.SortedKeys(idx.Prefabs.Items) {
			row := idx.Prefabs.Items[id]
			prefabs = append(prefabs, []interface{}{id, mustJSON(row)})
			for _, comp := range row.Components {
				prefabComps = append(prefabComps, []interface{}{id, comp})
			}
		}
		var links [][]interface{}
		for _, e := range idx.Links.PrefabComponent {
			links = append(links, []interface{}{e.Source, e.SourceID, e.Target, e.TargetID})
		}
		if err := execAll(ctx, tx, `INSERT INTO prefabs VALUES (?, ?)`, prefabs); err != nil {
			return err
		}
		if err := execAll(ctx, tx, `INSERT INTO prefab_components VALUES (?, ?)`, prefabComps); err != nil {
			return err
		}
		return execAll(ctx, tx, `INSERT INTO links VALUES (?, ?, ?, ?)`, links)
	})
}

// ReadSQLiteMeta returns the meta table of a mirror. A missing file is reported as
// domain.ErrArtifactMissing and is never created.
func ReadSQLiteMeta(ctx context.Context, path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing))
		}
		return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, err))
	}
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, err))
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta ORDER BY key`)
	if err != nil {
		return nil, common.WrapServiceError(common.OpReadArtifact,
			fmt.Errorf("%s: %w: %v", path, domain.ErrArtifactInvalid, err))
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, err))
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapServiceError(common.OpReadArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return out, nil
}

// CountRows returns the row count of table in the mirror at path.
func CountRows(ctx context.Context, path, table string) (int, error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var n int
	// table is a fixed identifier, never request input.
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
