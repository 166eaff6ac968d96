package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/codecraft/internal/apperror"
)

func newTestUserService() (*UserService, *memStore) {
	store := newMemStore()
	return NewUserService(store, discardLogger()), store
}

func TestSyncCreatesUser(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada Lovelace"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	user, err := store.GetByExternalID(ctx, "ext_1")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q, want %q", user.Email, "ada@example.com")
	}
	if user.Name != "Ada Lovelace" {
		t.Errorf("name = %q, want %q", user.Name, "Ada Lovelace")
	}
	if user.IsPro {
		t.Error("new user should not be pro")
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}

	// A redelivery with different attributes must not touch the row.
	if err := svc.Sync(ctx, "ext_1", "other@example.com", "Somebody Else"); err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}

	user, err := store.GetByExternalID(ctx, "ext_1")
	if err != nil {
		t.Fatalf("GetByExternalID failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("redelivery rewrote email to %q", user.Email)
	}
	if user.Name != "Ada" {
		t.Errorf("redelivery rewrote name to %q", user.Name)
	}
	if len(store.users) != 1 {
		t.Errorf("got %d users, want 1", len(store.users))
	}
}

func TestSyncRequiresExternalID(t *testing.T) {
	svc, _ := newTestUserService()

	err := svc.Sync(context.Background(), "  ", "a@example.com", "A")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestUpgradeToPro(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if err := svc.UpgradeToPro(ctx, "ada@example.com", "cust_9", "order_42", 3900); err != nil {
		t.Fatalf("UpgradeToPro failed: %v", err)
	}

	user, _ := store.GetByExternalID(ctx, "ext_1")
	if !user.IsPro {
		t.Fatal("user should be pro after upgrade")
	}
	if user.ProSince == nil {
		t.Fatal("ProSince should be set")
	}
	if user.BillingCustomerID != "cust_9" || user.BillingOrderID != "order_42" {
		t.Errorf("billing refs = (%q, %q), want (cust_9, order_42)",
			user.BillingCustomerID, user.BillingOrderID)
	}
}

func TestUpgradeToProRedeliveryOverwritesRefs(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := svc.UpgradeToPro(ctx, "ada@example.com", "cust_9", "order_1", 3900); err != nil {
		t.Fatalf("first upgrade failed: %v", err)
	}

	user, _ := store.GetByExternalID(ctx, "ext_1")
	first := *user.ProSince

	time.Sleep(2 * time.Millisecond)
	if err := svc.UpgradeToPro(ctx, "ada@example.com", "cust_9", "order_2", 3900); err != nil {
		t.Fatalf("second upgrade failed: %v", err)
	}

	user, _ = store.GetByExternalID(ctx, "ext_1")
	if !user.IsPro {
		t.Fatal("user should remain pro")
	}
	if user.BillingOrderID != "order_2" {
		t.Errorf("order ref = %q, want the latest delivery's order_2", user.BillingOrderID)
	}
	if !user.ProSince.After(first) {
		t.Error("redelivery should overwrite ProSince")
	}
}

func TestUpgradeToProUnknownEmail(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	err := svc.UpgradeToPro(ctx, "nobody@example.com", "cust_9", "order_1", 3900)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// A miss must not write anything.
	user, _ := store.GetByExternalID(ctx, "ext_1")
	if user.IsPro {
		t.Error("unrelated user was upgraded")
	}
}

func TestGetByExternalID(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	if _, err := svc.GetByExternalID(ctx, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty ID: got %v, want ErrValidation", err)
	}
	if _, err := svc.GetByExternalID(ctx, "ext_missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing user: got %v, want ErrNotFound", err)
	}

	if err := svc.Sync(ctx, "ext_1", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	user, err := svc.GetByExternalID(ctx, "ext_1")
	if err != nil {
		t.Fatalf("GetByExternalID failed: %v", err)
	}
	if user.ExternalID != "ext_1" {
		t.Errorf("externalID = %q, want ext_1", user.ExternalID)
	}
}
