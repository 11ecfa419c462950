package budget

import (
	"context"
	"testing"

	"pocket-survival/internal/memstore"
	"pocket-survival/internal/models"
	"pocket-survival/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_DefaultOnFirstUse(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(memstore.New(), decimal.NewFromInt(5000))

	c, err := h.Ceiling(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(c))
}

func TestHolder_SetAndReset(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(memstore.New(), decimal.NewFromInt(5000))

	p, err := h.SetCeiling(ctx, "alice", decimal.RequireFromString("1200.555"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1200.56").Equal(p.Ceiling))
	assert.True(t, decimal.NewFromInt(5000).Equal(p.InitialCeiling))

	_, err = h.SetCeiling(ctx, "alice", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, models.ErrNegativeCeiling)
	c, _ := h.Ceiling(ctx, "alice")
	assert.True(t, decimal.RequireFromString("1200.56").Equal(c), "rejected update leaves ceiling unchanged")

	_, err = h.SetCeiling(ctx, "alice", decimal.Zero)
	require.NoError(t, err, "zero is a valid ceiling")

	p, err = h.ResetToInitial(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(p.Ceiling))
}

func TestHolder_OwnersAreIndependent(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(memstore.New(), decimal.NewFromInt(500))

	_, err := h.SetCeiling(ctx, "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	c, err := h.Ceiling(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(c))
}

func TestHolder_PersistsInSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewHolder(db, decimal.NewFromInt(5000)).SetCeiling(ctx, "alice", decimal.NewFromInt(750))
	require.NoError(t, err)

	c, err := NewHolder(db, decimal.NewFromInt(9999)).Ceiling(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(c))
}
