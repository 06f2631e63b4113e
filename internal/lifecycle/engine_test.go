package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/prostock/internal/db"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

var fixedNow = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

type transition struct{ op, result string }

type fakeRecorder struct {
	mu  sync.Mutex
	got []transition
}

func (r *fakeRecorder) Transition(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, transition{op, result})
}

func newEngine(t *testing.T) (*Engine, *sqlx.DB, *fakeRecorder) {
	t.Helper()
	database := db.NewTestDB(t)
	rec := &fakeRecorder{}
	eng := New(database, WithClock(func() time.Time { return fixedNow }), WithRecorder(rec))
	return eng, database, rec
}

func createLot(t *testing.T, q store.Querier, serial string, quantity int) *model.Equipment {
	t.Helper()
	e, err := store.CreateEquipment(context.Background(), q, model.EquipmentInput{
		Name: "Pile AA " + serial, Category: model.CategoryAccessories, Serial: serial,
		IsLot: true, Quantity: quantity, Price: decimal.RequireFromString("1.20"),
	})
	require.NoError(t, err)
	return e
}

func createItem(t *testing.T, q store.Querier, serial string) *model.Equipment {
	t.Helper()
	e, err := store.CreateEquipment(context.Background(), q, model.EquipmentInput{
		Name: "Sony A7 " + serial, Category: model.CategoryVideo, Serial: serial,
	})
	require.NoError(t, err)
	return e
}

func get(t *testing.T, q store.Querier, id int64) *model.Equipment {
	t.Helper()
	e, err := store.GetEquipment(context.Background(), q, id)
	require.NoError(t, err)
	return e
}

func TestPartialCheckoutSplitsAndCheckInMerges(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 10)

	res, err := eng.Checkout(ctx, lot.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, res.Child)

	assert.Equal(t, 7, res.Original.Quantity)
	assert.Equal(t, model.StatusInStock, res.Original.Status)
	assert.Nil(t, res.Original.CheckoutAt)

	child := res.Child
	assert.Equal(t, 3, child.Quantity)
	assert.Equal(t, model.StatusCheckedOut, child.Status)
	assert.True(t, child.IsLot)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, lot.ID, *child.ParentID)
	require.NotNil(t, child.CheckoutAt)
	assert.True(t, fixedNow.Equal(*child.CheckoutAt))
	assert.NotEqual(t, lot.Serial, child.Serial)

	parent, err := eng.CheckIn(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, parent.ID)
	assert.Equal(t, 10, parent.Quantity)

	_, err = store.GetEquipment(ctx, database, child.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "merged split row must be gone")
}

func TestFullCheckoutOfLotDoesNotSplit(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 5)

	res, err := eng.Checkout(ctx, lot.ID, 5)
	require.NoError(t, err)
	assert.Nil(t, res.Child)
	assert.Equal(t, 5, res.Original.Quantity)
	assert.Equal(t, model.StatusCheckedOut, res.Original.Status)
	require.NotNil(t, res.Original.CheckoutAt)

	all, err := store.ListEquipment(ctx, database, model.EquipmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	back, err := eng.CheckIn(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, back.Status)
	assert.Nil(t, back.CheckoutAt)
	assert.Equal(t, 5, back.Quantity)
}

func TestCheckoutNonLot(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	cam := createItem(t, database, "CAM")

	res, err := eng.Checkout(ctx, cam.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, res.Child)
	assert.Equal(t, model.StatusCheckedOut, res.Original.Status)
}

func TestCheckoutValidation(t *testing.T) {
	eng, database, rec := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 4)
	cam := createItem(t, database, "CAM")

	for _, q := range []int{0, -1, 5} {
		_, err := eng.Checkout(ctx, lot.ID, q)
		assert.ErrorIs(t, err, model.ErrValidation, "quantity %d", q)
	}
	_, err := eng.Checkout(ctx, cam.ID, 2)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = eng.Checkout(ctx, 999, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Nothing was touched by the failures.
	assert.Equal(t, 4, get(t, database, lot.ID).Quantity)
	assert.Equal(t, model.StatusInStock, get(t, database, lot.ID).Status)

	assert.Equal(t, transition{OpCheckout, "validation"}, rec.got[0])
	assert.Equal(t, transition{OpCheckout, "not_found"}, rec.got[len(rec.got)-1])
}

func TestStatusTransitionGuards(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	cam := createItem(t, database, "CAM")

	_, err := eng.CheckIn(ctx, cam.ID)
	assert.ErrorIs(t, err, model.ErrValidation, "check in while in stock")

	_, err = eng.Checkout(ctx, cam.ID, 1)
	require.NoError(t, err)

	_, err = eng.Checkout(ctx, cam.ID, 1)
	assert.ErrorIs(t, err, model.ErrValidation, "check out while checked out")

	_, err = eng.SendToRepair(ctx, cam.ID, model.RepairInput{Date: "2024-05-14"})
	assert.ErrorIs(t, err, model.ErrValidation, "repair while checked out")

	_, err = eng.CheckIn(ctx, cam.ID)
	require.NoError(t, err)

	_, err = eng.SendToRepair(ctx, cam.ID, model.RepairInput{Date: "2024-05-14"})
	require.NoError(t, err)

	_, err = eng.SendToRepair(ctx, cam.ID, model.RepairInput{Date: "2024-05-15"})
	assert.ErrorIs(t, err, model.ErrValidation, "repair while in maintenance")

	_, err = eng.Checkout(ctx, cam.ID, 1)
	assert.ErrorIs(t, err, model.ErrValidation, "check out while in maintenance")

	_, err = eng.CheckIn(ctx, cam.ID)
	assert.ErrorIs(t, err, model.ErrValidation, "check in while in maintenance")
}

func TestScenarioLotSevenOfTen(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()

	// Six filler rows so the lot gets id 7, as in the worked example.
	for i := 1; i <= 6; i++ {
		createItem(t, database, "FILL-"+string(rune('0'+i)))
	}
	lot := createLot(t, database, "LOT7", 10)
	require.Equal(t, int64(7), lot.ID)

	res, err := eng.Checkout(ctx, 7, 3)
	require.NoError(t, err)
	require.Equal(t, int64(8), res.Child.ID)

	row7 := get(t, database, 7)
	assert.Equal(t, 7, row7.Quantity)
	assert.Equal(t, model.StatusInStock, row7.Status)

	row8 := get(t, database, 8)
	assert.Equal(t, 3, row8.Quantity)
	assert.Equal(t, model.StatusCheckedOut, row8.Status)
	assert.Equal(t, int64(7), *row8.ParentID)

	_, err = eng.CheckIn(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, get(t, database, 7).Quantity)
	_, err = store.GetEquipment(ctx, database, 8)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentPartialCheckoutsConserveQuantity(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 20)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Checkout(ctx, lot.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	parent := get(t, database, lot.ID)
	children, err := store.ListSplitChildren(ctx, database, lot.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, parent.Quantity)
	assert.Len(t, children, workers)
	total := parent.Quantity
	for _, c := range children {
		total += c.Quantity
	}
	assert.Equal(t, 20, total)
}

func TestCheckInAll(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 10)
	cam := createItem(t, database, "CAM")
	idle := createItem(t, database, "IDLE")

	_, err := eng.Checkout(ctx, lot.ID, 2)
	require.NoError(t, err)
	_, err = eng.Checkout(ctx, lot.ID, 3)
	require.NoError(t, err)
	// The remaining five go out in full on the parent row itself.
	_, err = eng.Checkout(ctx, lot.ID, 5)
	require.NoError(t, err)
	_, err = eng.Checkout(ctx, cam.ID, 1)
	require.NoError(t, err)

	res, err := eng.CheckInAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merged)
	assert.Equal(t, 2, res.Flipped)

	parent := get(t, database, lot.ID)
	assert.Equal(t, 10, parent.Quantity)
	assert.Equal(t, model.StatusInStock, parent.Status)
	assert.Nil(t, parent.CheckoutAt)

	out, err := store.ListEquipment(ctx, database, model.EquipmentFilter{Status: model.StatusCheckedOut})
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.Equal(t, model.StatusInStock, get(t, database, cam.ID).Status)
	assert.Equal(t, model.StatusInStock, get(t, database, idle.ID).Status)
}

func TestCheckInAllRollsBackOnOrphanedSplitRow(t *testing.T) {
	eng, database, rec := newEngine(t)
	ctx := context.Background()
	good := createLot(t, database, "GOOD", 10)
	bad := createLot(t, database, "BAD", 10)
	cam := createItem(t, database, "CAM")

	goodRes, err := eng.Checkout(ctx, good.ID, 4)
	require.NoError(t, err)
	badRes, err := eng.Checkout(ctx, bad.ID, 4)
	require.NoError(t, err)
	_, err = eng.Checkout(ctx, cam.ID, 1)
	require.NoError(t, err)

	// Corrupt the books behind the engine's back.
	_, err = database.Exec(`UPDATE equipment SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, bad.ID)
	require.NoError(t, err)

	_, err = eng.CheckInAll(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// The merge of the healthy lot was undone along with everything else.
	assert.Equal(t, 6, get(t, database, good.ID).Quantity)
	assert.Equal(t, model.StatusCheckedOut, get(t, database, goodRes.Child.ID).Status)
	assert.Equal(t, model.StatusCheckedOut, get(t, database, badRes.Child.ID).Status)
	assert.Equal(t, model.StatusCheckedOut, get(t, database, cam.ID).Status)

	assert.Equal(t, transition{OpCheckInAll, "not_found"}, rec.got[len(rec.got)-1])
}

func TestCheckInOrphanedSplitRowFails(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 10)

	res, err := eng.Checkout(ctx, lot.ID, 4)
	require.NoError(t, err)

	_, err = database.Exec(`UPDATE equipment SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, lot.ID)
	require.NoError(t, err)

	_, err = eng.CheckIn(ctx, res.Child.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	child := get(t, database, res.Child.ID)
	assert.Equal(t, 4, child.Quantity, "quantity must not be dropped")
}

func TestRepairCycle(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	cam := createItem(t, database, "CAM")

	rec, err := eng.SendToRepair(ctx, cam.ID, model.RepairInput{
		Date: "2024-05-14", Description: "Objectif bloqué", Cost: decimal.RequireFromString("89.00"), Provider: "Atelier Photo",
	})
	require.NoError(t, err)
	assert.Equal(t, cam.ID, rec.EquipmentID)
	assert.Equal(t, model.StatusInMaintenance, get(t, database, cam.ID).Status)

	eq, err := eng.FinishRepair(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, eq.Status)

	history, err := store.ListRepairs(ctx, database, cam.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "finishing keeps the record")

	_, err = eng.FinishRepair(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSendToRepairInvalidInputLeavesStatus(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	cam := createItem(t, database, "CAM")

	_, err := eng.SendToRepair(ctx, cam.ID, model.RepairInput{Date: "yesterday"})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.StatusInStock, get(t, database, cam.ID).Status)
}

func TestFinishRepairTrustsOperator(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	cam := createItem(t, database, "CAM")

	rec, err := eng.SendToRepair(ctx, cam.ID, model.RepairInput{Date: "2024-05-14"})
	require.NoError(t, err)

	// Some other process wrongly marks the item as checked out.
	now := time.Now()
	require.NoError(t, store.SetEquipmentState(ctx, database, cam.ID, model.StatusCheckedOut, 1, &now))

	eq, err := eng.FinishRepair(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, eq.Status)
	assert.Nil(t, eq.CheckoutAt)
}

func TestToggleKit(t *testing.T) {
	eng, database, rec := newEngine(t)
	ctx := context.Background()

	a := createItem(t, database, "A")
	b := createItem(t, database, "B")
	c := createItem(t, database, "C")
	kit, err := store.CreateKit(ctx, database, "Tournage")
	require.NoError(t, err)
	for _, e := range []*model.Equipment{a, b, c} {
		require.NoError(t, store.AddKitMember(ctx, database, kit.ID, e.ID))
	}

	_, err = eng.Checkout(ctx, c.ID, 1)
	require.NoError(t, err)

	// [InStock, InStock, CheckedOut]: the first member decides.
	res, err := eng.ToggleKit(ctx, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, res.Target)
	require.NotNil(t, res.CheckoutAt)
	require.Len(t, res.Members, 3)
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		e := get(t, database, id)
		assert.Equal(t, model.StatusCheckedOut, e.Status)
		require.NotNil(t, e.CheckoutAt)
		assert.True(t, res.CheckoutAt.Equal(*e.CheckoutAt), "member %d timestamp", id)
	}

	res, err = eng.ToggleKit(ctx, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, res.Target)
	assert.Nil(t, res.CheckoutAt)
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		e := get(t, database, id)
		assert.Equal(t, model.StatusInStock, e.Status)
		assert.Nil(t, e.CheckoutAt)
	}

	assert.Equal(t, transition{OpToggleKit, "ok"}, rec.got[len(rec.got)-1])
}

func TestToggleKitOverwritesMaintenance(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()

	a := createItem(t, database, "A")
	b := createItem(t, database, "B")
	kit, err := store.CreateKit(ctx, database, "Plateau")
	require.NoError(t, err)
	require.NoError(t, store.AddKitMember(ctx, database, kit.ID, a.ID))
	require.NoError(t, store.AddKitMember(ctx, database, kit.ID, b.ID))

	_, err = eng.SendToRepair(ctx, a.ID, model.RepairInput{Date: "2024-05-14"})
	require.NoError(t, err)

	res, err := eng.ToggleKit(ctx, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, res.Target)
	assert.Equal(t, model.StatusInStock, get(t, database, a.ID).Status)
	assert.Equal(t, model.StatusInStock, get(t, database, b.ID).Status)
}

func TestToggleKitMergesSplitMembers(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 10)

	res, err := eng.Checkout(ctx, lot.ID, 4)
	require.NoError(t, err)

	kit, err := store.CreateKit(ctx, database, "Batteries")
	require.NoError(t, err)
	require.NoError(t, store.AddKitMember(ctx, database, kit.ID, res.Child.ID))

	toggled, err := eng.ToggleKit(ctx, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, toggled.Target)
	require.Len(t, toggled.Members, 1)
	assert.Equal(t, lot.ID, toggled.Members[0].ID)

	assert.Equal(t, 10, get(t, database, lot.ID).Quantity)
	_, err = store.GetEquipment(ctx, database, res.Child.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestToggleKitEmptyOrMissing(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()

	kit, err := store.CreateKit(ctx, database, "Vide")
	require.NoError(t, err)

	_, err = eng.ToggleKit(ctx, kit.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = eng.ToggleKit(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestScanToggle(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 6)

	out, err := eng.ScanToggle(ctx, lot.QRIdentifier)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, out.Status)
	assert.Equal(t, 6, out.Quantity, "scanning takes the whole lot")

	back, err := eng.ScanToggle(ctx, "  "+lot.QRIdentifier+"\n")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInStock, back.Status)

	_, err = eng.ScanToggle(ctx, "not-a-code")
	assert.ErrorIs(t, err, model.ErrScan)

	_, err = eng.ScanToggle(ctx, "PROSTOCK-ID:404-SN:X")
	assert.ErrorIs(t, err, model.ErrScan)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = eng.SendToRepair(ctx, lot.ID, model.RepairInput{Date: "2024-05-14"})
	require.NoError(t, err)
	_, err = eng.ScanToggle(ctx, lot.QRIdentifier)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestScanToggleMergesSplitRow(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 6)

	res, err := eng.Checkout(ctx, lot.ID, 2)
	require.NoError(t, err)

	out, err := eng.ScanToggle(ctx, res.Child.QRIdentifier)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, out.ID)
	assert.Equal(t, 6, out.Quantity)
}

func TestLookup(t *testing.T) {
	eng, database, _ := newEngine(t)
	cam := createItem(t, database, "CAM")

	got, err := eng.Lookup(context.Background(), cam.QRIdentifier)
	require.NoError(t, err)
	assert.Equal(t, cam.ID, got.ID)
}

func TestDeleteEquipmentPolicy(t *testing.T) {
	eng, database, _ := newEngine(t)
	ctx := context.Background()
	lot := createLot(t, database, "BAT", 10)
	cam := createItem(t, database, "CAM")

	res, err := eng.Checkout(ctx, lot.ID, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, eng.DeleteEquipment(ctx, lot.ID), model.ErrValidation, "parent with units out")
	assert.ErrorIs(t, eng.DeleteEquipment(ctx, res.Child.ID), model.ErrValidation, "split row")

	_, err = eng.CheckIn(ctx, res.Child.ID)
	require.NoError(t, err)
	assert.NoError(t, eng.DeleteEquipment(ctx, lot.ID))

	assert.NoError(t, eng.DeleteEquipment(ctx, cam.ID))
	assert.ErrorIs(t, eng.DeleteEquipment(ctx, cam.ID), model.ErrNotFound)
}
