package storagemount

import (
	"context"
	"testing"

	"github.com/genrocorp/genroproxy/internal/entities/tenant"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/stretchr/testify/require"
)

func TestDefaultCRUDAddAndGet(t *testing.T) {
	db := newTestManager(t)
	tenants := tenant.NewTable(db, nil)
	mounts := NewTable(db, nil)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{mounts, tenants}))

	b := NewEndpoint(db, mounts, nil)

	require.NoError(t, db.Connection(context.Background(), func(ctx context.Context) error {
		return tenants.Insert(ctx, map[string]interface{}{"id": "t1", "name": "acme"}, false)
	}))

	added, err := b.Invoke(context.Background(), "add", map[string]interface{}{
		"id": "m1", "tenant_id": "t1", "backend": "s3", "bucket": "widgets",
	}, "", false)
	require.NoError(t, err)
	require.Equal(t, "m1", added.(map[string]interface{})["id"])

	got, err := b.Invoke(context.Background(), "get", map[string]interface{}{"id": "m1"}, "", false)
	require.NoError(t, err)
	require.Equal(t, "s3", got.(map[string]interface{})["backend"])
}
