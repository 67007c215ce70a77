package cart

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/catalog"
)

// fakeProducts implements ProductFinder with a fixed set.
type fakeProducts map[int64]catalog.Product

func (f fakeProducts) ByID(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, apperror.NewNotFound("product not found")
	}
	return &p, nil
}

func testProducts() fakeProducts {
	return fakeProducts{
		1: {ID: 1, Slug: "rope", Name: "Hemp Rope", PriceCents: 1200, Currency: "USD", Stock: 10, Active: true},
		2: {ID: 2, Slug: "lantern", Name: "Storm Lantern", PriceCents: 4800, Currency: "USD", Stock: 3, Active: true},
		3: {ID: 3, Slug: "ghost", Name: "Sold Out", PriceCents: 100, Currency: "USD", Stock: 0, Active: true},
	}
}

// newTestService spins up a miniredis-backed cart service.
func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewService(NewRedisStore(rdb), testProducts(), time.Hour), mr
}

func TestAddSnapshotsPriceAndMergesLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Add(ctx, "cart-1", 1, 2)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if cart.Items[0].PriceCents != 1200 || cart.Items[0].Name != "Hemp Rope" {
		t.Fatalf("price/name not snapshotted: %+v", cart.Items[0])
	}

	// Same product again merges into the existing line.
	cart, err = svc.Add(ctx, "cart-1", 1, 3)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected merged line with qty 5, got %+v", cart.Items)
	}
}

func TestTotalsAreSumOfLineSnapshots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "cart-1", 1, 2); err != nil { // 2 * 1200
		t.Fatalf("Add: %v", err)
	}
	cart, err := svc.Add(ctx, "cart-1", 2, 1) // 1 * 4800
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got, want := cart.TotalCents(), int64(2*1200+4800); got != want {
		t.Fatalf("TotalCents = %d, want %d", got, want)
	}
	if cart.Count() != 3 {
		t.Fatalf("Count = %d, want 3", cart.Count())
	}
}

func TestQuantityClamping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Add(ctx, "cart-1", 1, 500)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cart.Items[0].Quantity != MaxQuantity {
		t.Fatalf("expected clamp to %d, got %d", MaxQuantity, cart.Items[0].Quantity)
	}

	cart, err = svc.UpdateQuantity(ctx, "cart-1", 1, 0)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if cart.Items[0].Quantity != MinQuantity {
		t.Fatalf("expected clamp to %d, got %d", MinQuantity, cart.Items[0].Quantity)
	}
}

func TestAddUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Add(context.Background(), "cart-1", 999, 1)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddOutOfStockProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Add(context.Background(), "cart-1", 3, 1)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusConflict {
		t.Fatalf("expected conflict for out-of-stock product, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "cart-1", 1, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, "cart-1", 2, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cart, err := svc.Remove(ctx, "cart-1", 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != 2 {
		t.Fatalf("unexpected items after remove: %+v", cart.Items)
	}

	// Removing a line that isn't there is a no-op.
	if _, err := svc.Remove(ctx, "cart-1", 999); err != nil {
		t.Fatalf("Remove of absent line: %v", err)
	}

	if err := svc.Clear(ctx, "cart-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := svc.Count(ctx, "cart-1"); got != 0 {
		t.Fatalf("Count after clear = %d, want 0", got)
	}
}

func TestCartExpiresAfterIdleTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	svc := NewService(NewRedisStore(rdb), testProducts(), time.Minute)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "cart-1", 1, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if svc.Count(ctx, "cart-1") != 1 {
		t.Fatal("cart should have one unit")
	}

	mr.FastForward(2 * time.Minute)

	if got := svc.Count(ctx, "cart-1"); got != 0 {
		t.Fatalf("idle cart should expire, Count = %d", got)
	}
}

func TestCountWithoutCookieIsZero(t *testing.T) {
	svc, _ := newTestService(t)
	if got := svc.Count(context.Background(), ""); got != 0 {
		t.Fatalf("Count with empty id = %d, want 0", got)
	}
}
