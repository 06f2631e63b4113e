package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/prostock/internal/db"
	"github.com/erazemk/prostock/internal/model"
)

func TestKitCRUD(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	kit, err := CreateKit(ctx, database, "  Reportage ")
	require.NoError(t, err)
	assert.Equal(t, "Reportage", kit.Name)
	assert.Zero(t, kit.MemberCount)

	_, err = CreateKit(ctx, database, "Reportage")
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = CreateKit(ctx, database, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = CreateKit(ctx, database, "Interview")
	require.NoError(t, err)

	kits, err := ListKits(ctx, database)
	require.NoError(t, err)
	require.Len(t, kits, 2)
	assert.Equal(t, "Interview", kits[0].Name)

	require.NoError(t, DeleteKit(ctx, database, kit.ID))
	_, err = GetKit(ctx, database, kit.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, DeleteKit(ctx, database, kit.ID), model.ErrNotFound)
}

func TestKitMembers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	kit, err := CreateKit(ctx, database, "Interview")
	require.NoError(t, err)

	mic, err := CreateEquipment(ctx, database, model.EquipmentInput{Name: "Mic", Category: model.CategorySound, Serial: "M1"})
	require.NoError(t, err)
	cam, err := CreateEquipment(ctx, database, camera("C1"))
	require.NoError(t, err)

	// Insertion order, not ID order, is the default member order.
	require.NoError(t, AddKitMember(ctx, database, kit.ID, cam.ID))
	require.NoError(t, AddKitMember(ctx, database, kit.ID, mic.ID))

	assert.ErrorIs(t, AddKitMember(ctx, database, kit.ID, cam.ID), model.ErrConflict)
	assert.ErrorIs(t, AddKitMember(ctx, database, kit.ID, 999), model.ErrNotFound)
	assert.ErrorIs(t, AddKitMember(ctx, database, 999, cam.ID), model.ErrNotFound)

	members, err := ListKitMembers(ctx, database, kit.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, cam.ID, members[0].ID)
	assert.Equal(t, mic.ID, members[1].ID)

	got, err := GetKit(ctx, database, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MemberCount)

	require.NoError(t, RemoveKitMember(ctx, database, kit.ID, cam.ID))
	assert.ErrorIs(t, RemoveKitMember(ctx, database, kit.ID, cam.ID), model.ErrNotFound)

	// Deleting the kit leaves the equipment alone.
	require.NoError(t, DeleteKit(ctx, database, kit.ID))
	_, err = GetActiveEquipment(ctx, database, mic.ID)
	assert.NoError(t, err)

	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM kit_items`))
	assert.Zero(t, n)
}
