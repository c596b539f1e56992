package dbmanager_test

import (
	"context"
	"testing"

	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *dbmanager.Manager {
	t.Helper()
	adapter, err := dbadapter.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Shutdown() })
	return dbmanager.New(adapter)
}

type widgetSchema struct{}

func (widgetSchema) TableName() string                 { return "widgets" }
func (widgetSchema) PrimaryKeyColumn() string           { return "id" }
func (widgetSchema) PrimaryKeyPolicy() schema.PKPolicy  { return schema.PKPolicyAutoincrement }
func (widgetSchema) SchemaColumns() []schema.Column {
	return []schema.Column{
		{Name: "id", Type: schema.TypeInteger},
		{Name: "name", Type: schema.TypeString},
	}
}
func (widgetSchema) ExtraConstraints() []string { return nil }

func TestCurrentOutsideConnectionErrors(t *testing.T) {
	_, err := dbmanager.Current(context.Background())
	require.Error(t, err)
}

func TestConnectionCommitsOnSuccess(t *testing.T) {
	db := newManager(t)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{widgetSchema{}}))

	err := db.Connection(context.Background(), func(ctx context.Context) error {
		return db.Insert(ctx, "widgets", map[string]interface{}{"name": "a"})
	})
	require.NoError(t, err)

	err = db.Connection(context.Background(), func(ctx context.Context) error {
		n, err := db.Count(ctx, "widgets", nil)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestConnectionRollsBackOnError(t *testing.T) {
	db := newManager(t)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{widgetSchema{}}))

	err := db.Connection(context.Background(), func(ctx context.Context) error {
		if err := db.Insert(ctx, "widgets", map[string]interface{}{"name": "a"}); err != nil {
			return err
		}
		return require.AnError
	})
	require.Error(t, err)

	err = db.Connection(context.Background(), func(ctx context.Context) error {
		n, err := db.Count(ctx, "widgets", nil)
		require.NoError(t, err)
		require.EqualValues(t, 0, n, "insert must have been rolled back")
		return nil
	})
	require.NoError(t, err)
}

func TestInsertReturningIDProducesIncrementingKeys(t *testing.T) {
	db := newManager(t)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{widgetSchema{}}))

	var first, second int64
	err := db.Connection(context.Background(), func(ctx context.Context) error {
		var err error
		first, err = db.InsertReturningID(ctx, "widgets", "id", map[string]interface{}{"name": "a"})
		if err != nil {
			return err
		}
		second, err = db.InsertReturningID(ctx, "widgets", "id", map[string]interface{}{"name": "b"})
		return err
	})
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestSelectUpdateDeleteExists(t *testing.T) {
	db := newManager(t)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{widgetSchema{}}))

	err := db.Connection(context.Background(), func(ctx context.Context) error {
		require.NoError(t, db.Insert(ctx, "widgets", map[string]interface{}{"name": "a"}))
		require.NoError(t, db.Insert(ctx, "widgets", map[string]interface{}{"name": "b"}))

		rows, err := db.Select(ctx, "widgets", nil, nil, "name", 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		exists, err := db.Exists(ctx, "widgets", map[string]interface{}{"name": "a"})
		require.NoError(t, err)
		require.True(t, exists)

		n, err := db.Update(ctx, "widgets", map[string]interface{}{"name": "aa"}, map[string]interface{}{"name": "a"})
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		n, err = db.Delete(ctx, "widgets", map[string]interface{}{"name": "b"})
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		n, err = db.Count(ctx, "widgets", nil)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncSchemaDoesNotErrorWhenColumnsAlreadyExist(t *testing.T) {
	db := newManager(t)
	base := widgetSchema{}
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{base}))
	require.NoError(t, db.SyncSchema(context.Background(), base))
}

func TestCheckStructureAcceptsDependentTableListedBeforeParent(t *testing.T) {
	db := newManager(t)
	parent := widgetSchema{}
	child := dependentSchema{}
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{child, parent}))
}

type dependentSchema struct{}

func (dependentSchema) TableName() string                { return "parts" }
func (dependentSchema) PrimaryKeyColumn() string          { return "id" }
func (dependentSchema) PrimaryKeyPolicy() schema.PKPolicy { return schema.PKPolicyAutoincrement }
func (dependentSchema) SchemaColumns() []schema.Column {
	return []schema.Column{
		{Name: "id", Type: schema.TypeInteger},
		{Name: "widget_id", Type: schema.TypeInteger, References: &schema.ForeignKey{Table: "widgets", Column: "id"}},
	}
}
func (dependentSchema) ExtraConstraints() []string { return nil }
