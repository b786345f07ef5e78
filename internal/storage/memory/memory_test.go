package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

func tx(owner string, i int) core.Transaction {
	at := time.Date(2024, 3, 1, 0, 0, i, 0, time.UTC)
	return core.Transaction{
		ID:        fmt.Sprintf("id-%d", i),
		Owner:     owner,
		Title:     fmt.Sprintf("t%d", i),
		Amount:    decimal.NewFromInt(int64(i + 1)),
		Kind:      core.Expense,
		Category:  "Other",
		Date:      at.Truncate(24 * time.Hour),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 150; i++ {
		if err := s.Insert(ctx, tx("alice", i)); err != nil {
			t.Fatal(err)
		}
	}
	page, err := s.List(ctx, "alice", core.ListFilter{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 100 || page.Total != 150 || page.TotalPages() != 2 {
		t.Fatalf("unexpected page: items=%d total=%d pages=%d", len(page.Items), page.Total, page.TotalPages())
	}
	// Same date everywhere, so createdAt decides.
	if page.Items[0].ID != "id-149" {
		t.Fatalf("expected newest first, got %s", page.Items[0].ID)
	}

	page, _ = s.List(ctx, "alice", core.ListFilter{Limit: 100, Offset: 200})
	if len(page.Items) != 0 || page.Total != 150 {
		t.Fatalf("offset past end: %+v", page)
	}
}

func TestListOrderIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"id-b", "id-c", "id-a"} {
		rec := tx("alice", 0)
		rec.ID = id
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	page, err := s.List(ctx, "alice", core.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "id-b" || page.Items[1].ID != "id-a" {
		t.Fatalf("second page = %+v, want id-b then id-a", page.Items)
	}
}

func TestOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Insert(ctx, tx("alice", 1))

	if _, err := s.Get(ctx, "bob", "id-1"); err != core.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Delete(ctx, "bob", "id-1"); err != core.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Get(ctx, "alice", "id-1"); err != nil {
		t.Fatalf("alice lost her record: %v", err)
	}
}

func TestUpdateErrorLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Insert(ctx, tx("alice", 1))
	_, err := s.Update(ctx, "alice", "id-1", func(c core.Transaction) (core.Transaction, bool, error) {
		c.Title = "changed"
		return c, true, core.NewValidationError("title", "nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	got, _ := s.Get(ctx, "alice", "id-1")
	if got.Title != "t1" {
		t.Fatalf("record modified: %q", got.Title)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Insert(ctx, tx("alice", i))
			_, _ = s.List(ctx, "alice", core.ListFilter{Limit: 10})
		}(i)
	}
	wg.Wait()
	page, _ := s.List(ctx, "alice", core.ListFilter{Unbounded: true})
	if page.Total != 50 {
		t.Fatalf("expected 50, got %d", page.Total)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := core.User{ID: "u1", Email: "a@example.com", Name: "A"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, core.User{ID: "u2", Email: "a@example.com"}); err == nil {
		t.Fatal("expected conflict")
	}
	got, err := s.UserByEmail(ctx, "a@example.com")
	if err != nil || got.ID != "u1" {
		t.Fatalf("lookup failed: %v %+v", err, got)
	}
}
