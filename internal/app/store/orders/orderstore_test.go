package orderstore

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func productRef() models.ItemRef {
	return models.ItemRef{Kind: models.ItemProduct, ID: primitive.NewObjectID()}
}

func TestStore_UpsertPendingResets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	item := productRef()
	first, err := store.UpsertPending(ctx, "buyer@example.com", item, "111111")
	if err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}
	if first.Status != models.OrderPending || first.ProductID == nil || *first.ProductID != item.ID {
		t.Fatalf("first order = %+v", first)
	}

	if err := store.Transition(ctx, first.ID, models.OrderPending, models.OrderVerified); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := store.SetGatewayOrder(ctx, first.ID, "order_abc", 499, "INR"); err != nil {
		t.Fatalf("SetGatewayOrder() error = %v", err)
	}

	second, err := store.UpsertPending(ctx, "buyer@example.com", item, "222222")
	if err != nil {
		t.Fatalf("UpsertPending() again error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second upsert created a new order %s, want %s", second.ID.Hex(), first.ID.Hex())
	}
	if second.Status != models.OrderPending || second.GatewayOrderID != "" || second.Amount != 0 {
		t.Errorf("order not reset: %+v", second)
	}

	if _, err := store.FindPendingWithCode(ctx, "buyer@example.com", item, "111111"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("old code still matches: err = %v", err)
	}
	if _, err := store.FindPendingWithCode(ctx, "buyer@example.com", item, "222222"); err != nil {
		t.Errorf("FindPendingWithCode(latest) error = %v", err)
	}
}

func TestStore_BundleAndProductAreSeparate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	p, err := store.UpsertPending(ctx, "a@example.com", models.ItemRef{Kind: models.ItemProduct, ID: id}, "1")
	if err != nil {
		t.Fatalf("UpsertPending(product) error = %v", err)
	}
	b, err := store.UpsertPending(ctx, "a@example.com", models.ItemRef{Kind: models.ItemBundle, ID: id}, "2")
	if err != nil {
		t.Fatalf("UpsertPending(bundle) error = %v", err)
	}
	if p.ID == b.ID {
		t.Fatal("product and bundle orders share an id")
	}
	if got := b.Item(); got.Kind != models.ItemBundle || got.ID != id {
		t.Errorf("bundle Item() = %+v", got)
	}
}

func TestStore_TransitionGuards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o, err := store.UpsertPending(ctx, "b@example.com", productRef(), "1")
	if err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}

	if err := store.Transition(ctx, o.ID, models.OrderVerified, models.OrderPaid); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Transition from wrong state err = %v, want ErrNoDocuments", err)
	}
	if err := store.SetGatewayOrder(ctx, o.ID, "order_x", 10, "INR"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("SetGatewayOrder on pending err = %v, want ErrNoDocuments", err)
	}
	if err := store.MarkDelivered(ctx, o.ID, time.Now()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("MarkDelivered on pending err = %v, want ErrNoDocuments", err)
	}

	if err := store.Transition(ctx, o.ID, models.OrderPending, models.OrderVerified); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := store.SetGatewayOrder(ctx, o.ID, "order_y", 10, "INR"); err != nil {
		t.Fatalf("SetGatewayOrder() error = %v", err)
	}
	if err := store.MarkPaid(ctx, o.ID, "order_other", "pay_1"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("MarkPaid with another gateway order err = %v, want ErrNoDocuments", err)
	}
	if err := store.MarkPaid(ctx, o.ID, "order_y", "pay_1"); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if err := store.MarkPaid(ctx, o.ID, "order_y", "pay_dup"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("second MarkPaid err = %v, want ErrNoDocuments", err)
	}
	if err := store.MarkDelivered(ctx, o.ID, time.Now()); err != nil {
		t.Fatalf("MarkDelivered() error = %v", err)
	}

	got, err := store.GetByGatewayOrderID(ctx, "order_y")
	if err != nil {
		t.Fatalf("GetByGatewayOrderID() error = %v", err)
	}
	if got.Status != models.OrderDelivered || got.PaymentID != "pay_1" || got.DeliveredAt == nil {
		t.Errorf("final order = %+v", got)
	}
}

func TestStore_ListAndStuckPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pending, err := store.UpsertPending(ctx, "c@example.com", productRef(), "1")
	if err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}
	paid, err := store.UpsertPending(ctx, "d@example.com", productRef(), "2")
	if err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}
	if err := store.Transition(ctx, paid.ID, models.OrderPending, models.OrderVerified); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := store.SetGatewayOrder(ctx, paid.ID, "order_d", 10, "INR"); err != nil {
		t.Fatalf("SetGatewayOrder() error = %v", err)
	}
	if err := store.MarkPaid(ctx, paid.ID, "order_d", "pay_2"); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() = %d orders, want 2", len(all))
	}

	onlyPending, err := store.List(ctx, ListFilter{Status: models.OrderPending})
	if err != nil {
		t.Fatalf("List(pending) error = %v", err)
	}
	if len(onlyPending) != 1 || onlyPending[0].ID != pending.ID {
		t.Errorf("List(pending) = %+v", onlyPending)
	}

	stuck, err := store.ListStuckPaid(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListStuckPaid() error = %v", err)
	}
	if len(stuck) != 1 || stuck[0].ID != paid.ID {
		t.Errorf("ListStuckPaid() = %+v", stuck)
	}

	none, err := store.ListStuckPaid(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListStuckPaid(past) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListStuckPaid(past) = %d, want 0", len(none))
	}
}
