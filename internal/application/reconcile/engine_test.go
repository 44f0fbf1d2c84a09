package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ordersync/backend/internal/application/costing"
	"github.com/ordersync/backend/internal/application/mapping"
	"github.com/ordersync/backend/internal/application/matching"
	"github.com/ordersync/backend/internal/domain/order"
	"github.com/ordersync/backend/internal/infrastructure/persistence"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

type engineEnv struct {
	engine *Engine
	lines  order.OrderLineRepository
	ledger *costing.CostLedger
	db     *persistence.Database
}

func setupEngine(t *testing.T) *engineEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))
	db := persistence.Wrap(gdb)

	rawOrders := persistence.NewRawOrderRecordRepository(db)
	rawProducts := persistence.NewRawProductRecordRepository(db)
	lines := persistence.NewOrderLineRepository(db)
	entries := persistence.NewCatalogEntryRepository(db)
	costs := persistence.NewCostEntryRepository(db)

	log := zap.NewNop()
	mapper := mapping.NewFieldMapper()
	matcher := matching.NewProductMatcher(entries, log)
	ledger := costing.NewCostLedger(costs, log)

	return &engineEnv{
		engine: NewEngine(rawOrders, rawProducts, lines, entries, mapper, matcher, ledger, log),
		lines:  lines,
		ledger: ledger,
		db:     db,
	}
}

// racingLineRepo misses the next N external-id lookups to stand in for a
// concurrent writer inserting between the find and the create.
type racingLineRepo struct {
	order.OrderLineRepository
	misses int
}

func (r *racingLineRepo) FindByExternalLineID(ctx context.Context, tenantID uuid.UUID, externalLineID string) (*order.OrderLine, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.OrderLineRepository.FindByExternalLineID(ctx, tenantID, externalLineID)
}

func productPayload(skuID, skuCode, declared, supply string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"skuId":%q,"skuCode":%q,"spuId":"SPU-1","declaredPrice":%q,"supplyPrice":%q,"status":0}`,
		skuID, skuCode, declared, supply,
	))
}

func TestEngine_ReconcileOrder(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("matched line carries price, cost, and profit", func(t *testing.T) {
		env := setupEngine(t)
		_, err := env.engine.ReconcileProduct(ctx, tenantID, productPayload("MKT-SKU-1", "ABC", "10.00", "6.00"))
		require.NoError(t, err)

		res, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-1","orderSn":"ORD-1","skuCode":"ABC","quantity":3,"orderTime":1750000000,"orderStatus":3}`,
		))
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.True(t, res.Matched)

		line := res.Line
		assert.True(t, line.TotalPrice.Equal(decimal.RequireFromString("30.00")))
		require.NotNil(t, line.UnitCost)
		assert.True(t, line.UnitCost.Equal(decimal.RequireFromString("6.00")))
		assert.True(t, line.TotalCost.Equal(decimal.RequireFromString("18.00")))
		assert.True(t, line.Profit.Equal(decimal.RequireFromString("12.00")))
		assert.NotEmpty(t, line.CostRule)
		assert.Equal(t, order.StatusShipped, line.Status)
		assert.Equal(t, NormalizedCurrency, line.Currency)
	})

	t.Run("re-reconciling the same item is idempotent", func(t *testing.T) {
		env := setupEngine(t)
		payload := json.RawMessage(`{"orderItemId":"OI-1","orderSn":"ORD-1","skuCode":"ABC","quantity":1}`)

		first, err := env.engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.True(t, first.Created)

		second, err := env.engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.Line.ID, second.Line.ID)

		var count int64
		require.NoError(t, env.db.DB.Table("order_lines").Where("tenant_id = ?", tenantID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unmatched line keeps nil cost and profit", func(t *testing.T) {
		env := setupEngine(t)
		res, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-2","orderSn":"ORD-2","skuCode":"NO-SUCH","quantity":2,"unitPrice":"4.00"}`,
		))
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Nil(t, res.Line.UnitCost)
		assert.Nil(t, res.Line.TotalCost)
		assert.Nil(t, res.Line.Profit)
		assert.True(t, res.Line.TotalPrice.Equal(decimal.RequireFromString("8.00")))
	})

	t.Run("re-sync after catalog arrives fills in cost", func(t *testing.T) {
		env := setupEngine(t)
		payload := json.RawMessage(`{"orderItemId":"OI-3","orderSn":"ORD-3","skuCode":"ABC","quantity":2,"orderTime":1750000000}`)

		first, err := env.engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.False(t, first.Matched)

		_, err = env.engine.ReconcileProduct(ctx, tenantID, productPayload("MKT-SKU-1", "ABC", "10.00", "6.00"))
		require.NoError(t, err)

		second, err := env.engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.True(t, second.Matched)

		stored, err := env.lines.FindByExternalLineID(ctx, tenantID, "OI-3")
		require.NoError(t, err)
		require.NotNil(t, stored.UnitCost)
		assert.True(t, stored.TotalCost.Equal(decimal.RequireFromString("12.00")))
	})

	t.Run("composite key catches upstream line renumbering", func(t *testing.T) {
		env := setupEngine(t)
		_, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OLD-ID","orderSn":"20240115001","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)

		res, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"NEW-ID","orderSn":"20240115001","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)
		assert.False(t, res.Created)

		var count int64
		require.NoError(t, env.db.DB.Table("order_lines").Where("tenant_id = ?", tenantID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("normalized order number catches prefixed sub-orders", func(t *testing.T) {
		env := setupEngine(t)
		_, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"LINE-A","orderSn":"20240115001","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)

		res, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"LINE-B","orderSn":"MKT-20240115001-2","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)
		assert.False(t, res.Created)
	})

	t.Run("terminal status survives payloads without a usable status", func(t *testing.T) {
		env := setupEngine(t)
		_, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-S","orderSn":"ORD-S","skuCode":"ABC","quantity":1,"orderStatus":5}`,
		))
		require.NoError(t, err)

		_, err = env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-S","orderSn":"ORD-S","skuCode":"ABC","quantity":1,"orderStatus":99}`,
		))
		require.NoError(t, err)

		stored, err := env.lines.FindByExternalLineID(ctx, tenantID, "OI-S")
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, stored.Status)

		_, err = env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-S","orderSn":"ORD-S","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)

		stored, err = env.lines.FindByExternalLineID(ctx, tenantID, "OI-S")
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, stored.Status)
	})

	t.Run("new line without a status defaults to pending", func(t *testing.T) {
		env := setupEngine(t)
		res, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(
			`{"orderItemId":"OI-NP","orderSn":"ORD-NP","skuCode":"ABC","quantity":1}`,
		))
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, res.Line.Status)
	})

	t.Run("create losing a concurrent race falls back to update", func(t *testing.T) {
		gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		require.NoError(t, gdb.AutoMigrate(models.All()...))
		db := persistence.Wrap(gdb)

		log := zap.NewNop()
		racing := &racingLineRepo{OrderLineRepository: persistence.NewOrderLineRepository(db)}
		entries := persistence.NewCatalogEntryRepository(db)
		engine := NewEngine(
			persistence.NewRawOrderRecordRepository(db),
			persistence.NewRawProductRecordRepository(db),
			racing,
			entries,
			mapping.NewFieldMapper(),
			matching.NewProductMatcher(entries, log),
			costing.NewCostLedger(persistence.NewCostEntryRepository(db), log),
			log,
		)

		payload := json.RawMessage(`{"orderItemId":"OI-R","skuCode":"ABC","quantity":1}`)
		first, err := engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.True(t, first.Created)

		// The next lookup misses as if another writer inserted the line
		// between the find and the create.
		racing.misses = 1
		second, err := engine.ReconcileOrder(ctx, tenantID, payload)
		require.NoError(t, err)
		assert.False(t, second.Created)

		var count int64
		require.NoError(t, db.DB.Table("order_lines").Where("tenant_id = ?", tenantID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("malformed payload surfaces a mapping error", func(t *testing.T) {
		env := setupEngine(t)
		_, err := env.engine.ReconcileOrder(ctx, tenantID, json.RawMessage(`{"orderSn":"ORD-X"}`))
		var mapErr *mapping.MappingError
		assert.ErrorAs(t, err, &mapErr)
	})
}

func TestEngine_ReconcileProduct(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates entry and declares initial cost", func(t *testing.T) {
		env := setupEngine(t)
		res, err := env.engine.ReconcileProduct(ctx, tenantID, productPayload("MKT-SKU-1", "ABC", "10.00", "6.00"))
		require.NoError(t, err)
		assert.True(t, res.Created)

		resolution, err := env.ledger.Resolve(ctx, res.Entry.ID, res.Entry.CreatedAt)
		require.NoError(t, err)
		require.NotNil(t, resolution)
		assert.True(t, resolution.Entry.CostPrice.Equal(decimal.RequireFromString("6.00")))
	})

	t.Run("re-sync updates in place and keeps the ledger", func(t *testing.T) {
		env := setupEngine(t)
		first, err := env.engine.ReconcileProduct(ctx, tenantID, productPayload("MKT-SKU-1", "ABC", "10.00", "6.00"))
		require.NoError(t, err)

		second, err := env.engine.ReconcileProduct(ctx, tenantID, productPayload("MKT-SKU-1", "ABC", "11.00", "9.99"))
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.Entry.ID, second.Entry.ID)
		assert.True(t, second.Entry.DeclaredUnitPrice.Equal(decimal.RequireFromString("11.00")))

		// The supply price on a re-sync must not silently rewrite costs.
		resolution, err := env.ledger.Resolve(ctx, second.Entry.ID, second.Entry.UpdatedAt)
		require.NoError(t, err)
		require.NotNil(t, resolution)
		assert.True(t, resolution.Entry.CostPrice.Equal(decimal.RequireFromString("6.00")))
	})
}
