package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/errors"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.Config.Cache.Config = cache.Config{Backend: cache.BackendFile, Dir: t.TempDir()}
	c.Config.Ledger.Config = cache.Config{Backend: cache.BackendFile, Dir: t.TempDir()}
	return c
}

func TestClearCache(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()

	store, err := cache.Open(ctx, c.Config.Cache.Config)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"export:a", "export:b"} {
		if err := store.Set(ctx, key, []byte("{}"), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.clearCache(ctx)
	if err != nil {
		t.Fatalf("clearCache() error: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d entries, want 2", n)
	}
	if _, hit, _ := store.Get(ctx, "export:a"); hit {
		t.Error("entry survived clear")
	}
}

func TestClearCacheUnsupported(t *testing.T) {
	c := newTestCLI(t)
	c.Config.Cache.Config = cache.Config{Backend: cache.BackendNone}

	_, err := c.clearCache(context.Background())
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("error = %v, want UNSUPPORTED", err)
	}
}

func TestCachePath(t *testing.T) {
	c := newTestCLI(t)

	var out bytes.Buffer
	cmd := c.cachePathCommand()
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if strings.TrimSpace(out.String()) != c.Config.Cache.Dir {
		t.Errorf("cache path = %q, want %q", out.String(), c.Config.Cache.Dir)
	}
}
