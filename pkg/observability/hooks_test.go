package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopExportHooks{}
	e.OnExportStart(ctx, "Newsletter", 2)
	e.OnNodeRendered(ctx, "Hero", "image")
	e.OnNodeSkipped(ctx, "Logo", nil)
	e.OnExportComplete(ctx, "Newsletter", 12, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "export")
	c.OnCacheMiss(ctx, "export")
	c.OnCacheSet(ctx, "ledger", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/api/v1/export")
	h.OnResponse(ctx, "POST", "/api/v1/export", 200, time.Second)
	h.OnError(ctx, "POST", "/api/v1/export", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Export().(NoopExportHooks); !ok {
		t.Error("Export() should return NoopExportHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customExport := &testExportHooks{}
	SetExportHooks(customExport)
	if Export() != customExport {
		t.Error("SetExportHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Export().(NoopExportHooks); !ok {
		t.Error("Reset() should restore NoopExportHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testExportHooks{}
	SetExportHooks(custom)
	SetExportHooks(nil)

	if Export() != custom {
		t.Error("SetExportHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testExportHooks struct{ NoopExportHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
