package migrations

import (
	"fmt"
	"strings"
)

// SchemaVersion is recorded in the metadata table. Bump it whenever a table,
// column or index is added below.
//
//	1 - scans, campaigns, locations, groups, group_locations
//	2 - articles, article_locations, scan images 2 and 3, custom_description
//	3 - scan_history narrative fields, metadata.updated_at
const SchemaVersion = 3

type column struct {
	name string
	def  string
	// key columns carry PRIMARY KEY / UNIQUE and can only exist from table creation.
	key bool
}

type table struct {
	name        string
	columns     []column
	constraints []string
}

type index struct {
	name    string
	table   string
	columns []string
}

// tables is the target schema snapshot. Columns are only ever appended:
// existing databases get the missing ones through ALTER TABLE ... ADD COLUMN,
// so every non-key column must be nullable or carry a default.
var tables = []table{
	{
		name: "campaigns",
		columns: []column{
			{name: "id", def: "TEXT PRIMARY KEY", key: true},
			{name: "name", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "starts_at", def: "TEXT"},
			{name: "ends_at", def: "TEXT"},
			{name: "updated_at", def: "TEXT"},
		},
	},
	{
		name: "locations",
		columns: []column{
			{name: "id", def: "TEXT PRIMARY KEY", key: true},
			{name: "name", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "code", def: "TEXT"},
			{name: "updated_at", def: "TEXT"},
		},
	},
	{
		name: "groups",
		columns: []column{
			{name: "id", def: "TEXT PRIMARY KEY", key: true},
			{name: "campaign_id", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "name", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "updated_at", def: "TEXT"},
		},
	},
	{
		name: "group_locations",
		columns: []column{
			{name: "group_id", def: "TEXT NOT NULL", key: true},
			{name: "location_id", def: "TEXT NOT NULL", key: true},
		},
		constraints: []string{"PRIMARY KEY (group_id, location_id)"},
	},
	{
		name: "articles",
		columns: []column{
			{name: "id", def: "TEXT PRIMARY KEY", key: true},
			{name: "code", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "barcode", def: "TEXT"},
			{name: "description", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "updated_at", def: "TEXT"},
		},
	},
	{
		name: "article_locations",
		columns: []column{
			{name: "article_id", def: "TEXT NOT NULL", key: true},
			{name: "location_id", def: "TEXT NOT NULL", key: true},
		},
		constraints: []string{"PRIMARY KEY (article_id, location_id)"},
	},
	{
		name: "scans",
		columns: []column{
			{name: "id", def: "TEXT PRIMARY KEY", key: true},
			{name: "remote_id", def: "TEXT"},
			{name: "code_article", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "article_id", def: "TEXT"},
			{name: "article_description", def: "TEXT"},
			{name: "campaign_id", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "group_id", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "location_id", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "location_name", def: "TEXT"},
			{name: "comment", def: "TEXT"},
			{name: "custom_description", def: "TEXT"},
			{name: "observation", def: "TEXT"},
			{name: "serial_number", def: "TEXT"},
			{name: "condition_state", def: "TEXT"},
			{name: "captured_at", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "capture_source", def: "TEXT"},
			{name: "image_uri_1", def: "TEXT"},
			{name: "image_uri_2", def: "TEXT"},
			{name: "image_uri_3", def: "TEXT"},
			{name: "status", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "status_label", def: "TEXT"},
			{name: "is_synced", def: "INTEGER NOT NULL DEFAULT 0"},
			{name: "updated_at", def: "TEXT NOT NULL DEFAULT ''"},
		},
	},
	{
		name: "scan_history",
		columns: []column{
			{name: "seq", def: "INTEGER PRIMARY KEY AUTOINCREMENT", key: true},
			{name: "id", def: "TEXT NOT NULL UNIQUE", key: true},
			{name: "scan_id", def: "TEXT"},
			{name: "code_article", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "description", def: "TEXT"},
			{name: "image_uri", def: "TEXT"},
			{name: "status", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "status_label", def: "TEXT"},
			{name: "captured_at", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "location_name", def: "TEXT"},
			{name: "observation", def: "TEXT"},
			{name: "serial_number", def: "TEXT"},
			{name: "condition_state", def: "TEXT"},
		},
	},
	{
		name: "metadata",
		columns: []column{
			{name: "key", def: "TEXT PRIMARY KEY", key: true},
			{name: "value", def: "TEXT NOT NULL DEFAULT ''"},
			{name: "updated_at", def: "TEXT"},
		},
	},
}

var indexes = []index{
	{name: "idx_scans_campaign_id", table: "scans", columns: []string{"campaign_id"}},
	{name: "idx_scans_group_id", table: "scans", columns: []string{"group_id"}},
	{name: "idx_scans_location_id", table: "scans", columns: []string{"location_id"}},
	{name: "idx_scans_code_article", table: "scans", columns: []string{"code_article"}},
	{name: "idx_scans_is_synced", table: "scans", columns: []string{"is_synced"}},
	{name: "idx_scans_captured_at", table: "scans", columns: []string{"captured_at"}},
	{name: "idx_groups_campaign_id", table: "groups", columns: []string{"campaign_id"}},
	{name: "idx_group_locations_location_id", table: "group_locations", columns: []string{"location_id"}},
	{name: "idx_articles_code", table: "articles", columns: []string{"code"}},
	{name: "idx_articles_barcode", table: "articles", columns: []string{"barcode"}},
	{name: "idx_article_locations_location_id", table: "article_locations", columns: []string{"location_id"}},
	{name: "idx_scan_history_captured_at", table: "scan_history", columns: []string{"captured_at"}},
}

// quote protects table names that collide with SQL keywords ("groups").
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (t table) createStatement() string {
	defs := make([]string, 0, len(t.columns)+len(t.constraints))
	for _, c := range t.columns {
		defs = append(defs, fmt.Sprintf("%s %s", quote(c.name), c.def))
	}
	defs = append(defs, t.constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", quote(t.name), strings.Join(defs, ",\n    "))
}

func (t table) addColumnStatement(c column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(t.name), quote(c.name), c.def)
}

func (i index) createStatement() string {
	cols := make([]string, 0, len(i.columns))
	for _, c := range i.columns {
		cols = append(cols, quote(c))
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", quote(i.name), quote(i.table), strings.Join(cols, ", "))
}

// TableNames lists every table of the target schema.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.name)
	}
	return names
}
