package dbmanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/genrocorp/genroproxy/internal/schema"
)

// tableOrder returns table names in foreign-key dependency order: a table
// referenced by another table's foreign key is created first.
func tableOrder(tables []schema.TableSchema) []schema.TableSchema {
	byName := make(map[string]schema.TableSchema, len(tables))
	for _, t := range tables {
		byName[t.TableName()] = t
	}

	var ordered []schema.TableSchema
	visited := make(map[string]bool)
	var visit func(t schema.TableSchema)
	visit = func(t schema.TableSchema) {
		if visited[t.TableName()] {
			return
		}
		visited[t.TableName()] = true
		for _, c := range t.SchemaColumns() {
			if c.References != nil {
				if dep, ok := byName[c.References.Table]; ok {
					visit(dep)
				}
			}
		}
		ordered = append(ordered, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return ordered
}

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for t.
func (m *Manager) CreateTableSQL(t schema.TableSchema) string {
	var cols []string
	for _, c := range t.SchemaColumns() {
		if c.Name == t.PrimaryKeyColumn() && t.PrimaryKeyPolicy() == schema.PKPolicyAutoincrement {
			cols = append(cols, m.adapter.AutoIncrementPKClause(c.Name))
			continue
		}

		def := columnSQLType(c.Type)
		if c.Name == t.PrimaryKeyColumn() && t.PrimaryKeyPolicy() == schema.PKPolicyUUID {
			def += " PRIMARY KEY"
		}
		if !c.Nullable {
			def += " NOT NULL"
		}
		if c.Default != nil {
			def += " DEFAULT " + defaultSQL(c.Default)
		}
		cols = append(cols, fmt.Sprintf("%s %s", c.Name, def))
	}

	for _, c := range t.SchemaColumns() {
		if c.References != nil {
			cols = append(cols, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", c.Name, c.References.Table, c.References.Column))
		}
	}

	cols = append(cols, t.ExtraConstraints()...)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n %s\n)", t.TableName(), strings.Join(cols, ",\n "))
}

func columnSQLType(t schema.ColumnType) string {
	switch t {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func defaultSQL(v interface{}) string {
	if sd, ok := v.(schema.ServerDefault); ok {
		return string(sd)
	}
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CheckStructure creates every registered table if missing, in foreign-key
// dependency order.
func (m *Manager) CheckStructure(ctx context.Context, tables []schema.TableSchema) error {
	return m.Connection(ctx, func(ctx context.Context) error {
		conn, err := Current(ctx)
		if err != nil {
			return err
		}
		for _, t := range tableOrder(tables) {
			if err := conn.ExecuteScript(ctx, m.CreateTableSQL(t)); err != nil {
				return fmt.Errorf("check-structure %s: %w", t.TableName(), err)
			}
		}
		return nil
	})
}

// SyncSchema issues ALTER TABLE ADD COLUMN for every declared column that
// is not the primary key. Failures (most commonly the column already
// exists) are swallowed; this is intentionally best-effort additive
// sync, not a migration tool.
func (m *Manager) SyncSchema(ctx context.Context, t schema.TableSchema) error {
	return m.Connection(ctx, func(ctx context.Context) error {
		conn, err := Current(ctx)
		if err != nil {
			return err
		}
		for _, c := range t.SchemaColumns() {
			if c.Name == t.PrimaryKeyColumn() {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.TableName(), c.Name, columnSQLType(c.Type))
			_ = conn.ExecuteScript(ctx, stmt) // swallow: column may already exist
		}
		return nil
	})
}
