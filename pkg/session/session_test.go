package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/mailframe/pkg/cache"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewMemoryCache())

	tests := []struct {
		name string
		id   string
	}{
		{"empty id", ""},
		{"malformed id", "../../etc/passwd"},
		{"unknown id", uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := store.Resolve(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if sess.ID == tt.id {
				t.Errorf("expected a fresh session, got %q", sess.ID)
			}
			if _, err := uuid.Parse(sess.ID); err != nil {
				t.Errorf("session id %q is not a UUID", sess.ID)
			}
		})
	}
}

func TestResolveExisting(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewMemoryCache())

	first, err := store.Resolve(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	again, err := store.Resolve(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Errorf("Resolve(%q) = %q, want same session", first.ID, again.ID)
	}
	if !again.ExpiresAt.After(first.CreatedAt) {
		t.Error("expiry not extended")
	}
}

func TestGetExpired(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewMemoryCache())
	sess := New(time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}

	sess.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("deleted session still returned")
	}
}

func TestGetInvalidID(t *testing.T) {
	store := NewStore(cache.NewMemoryCache())
	if _, err := store.Get(context.Background(), "nope"); err != ErrInvalidID {
		t.Errorf("err = %v, want ErrInvalidID", err)
	}
}

func TestScope(t *testing.T) {
	s := &Session{ID: "abc"}
	if got := s.Scope(); got != "client:abc:" {
		t.Errorf("Scope() = %q", got)
	}
	if Local().ID != "00000000-0000-0000-0000-000000000000" {
		t.Errorf("Local().ID = %q", Local().ID)
	}
}
