package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/ledger"
	"github.com/matzehuels/mailframe/pkg/session"
)

const adminSecret = "letmein"

func box(x, y, w, h float64) *design.Box {
	return &design.Box{X: x, Y: y, Width: w, Height: h}
}

// documentJSON is a frame with one [table] region and a plain shape.
func documentJSON(t *testing.T) json.RawMessage {
	t.Helper()
	doc := &design.Document{Name: "test", Nodes: []*design.Node{{
		ID: "1:1", Name: "Spring Sale", Type: design.TypeFrame, Visible: true,
		Box: box(0, 0, 600, 300),
		Children: []*design.Node{
			{
				ID: "1:2", Name: "[table] prices", Type: design.TypeFrame, Visible: true,
				Box: box(0, 0, 200, 40),
				Children: []*design.Node{{
					ID: "1:3", Name: "cell", Type: design.TypeText, Visible: true,
					Box:  box(10, 10, 80, 20),
					Text: &design.Text{Characters: "Price"},
				}},
			},
			{
				ID: "1:4", Name: "bar", Type: design.TypeRectangle, Visible: true,
				Box:   box(0, 100, 600, 10),
				Fills: []design.Paint{design.Solid(design.Color{B: 1})},
			},
		},
	}}}
	var buf bytes.Buffer
	if err := design.WriteJSON(doc, &buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newServer(t *testing.T, initial int) *Server {
	t.Helper()
	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })
	return New(Config{}, Deps{
		Store:  store,
		Ledger: ledger.Options{InitialCredits: initial, AdminSecret: adminSecret},
	})
}

// call performs a request and decodes the JSON response into out when set.
func call(t *testing.T, h http.Handler, method, path, sessionID string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestExport(t *testing.T) {
	h := newServer(t, 5).Handler()
	body := map[string]any{"document": documentJSON(t)}

	var first exportResponse
	rec := call(t, h, http.MethodPost, "/api/v1/export", "", body, &first)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	sid := rec.Header().Get(SessionHeader)
	if sid == "" {
		t.Fatal("no session id returned")
	}
	if first.Filename != "spring-sale" {
		t.Errorf("filename = %q", first.Filename)
	}
	if !first.TableMode {
		t.Error("table layout should default to on")
	}
	if first.Balance != 4 {
		t.Errorf("balance = %d, want 4", first.Balance)
	}
	if !strings.Contains(first.HTML, "<table") {
		t.Error("payload html has no table")
	}

	var second exportResponse
	rec = call(t, h, http.MethodPost, "/api/v1/export", sid, body, &second)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !second.CacheHit {
		t.Error("second export should be served from cache")
	}
	if second.Balance != 3 {
		t.Errorf("balance = %d, want 3", second.Balance)
	}
}

func TestExportErrors(t *testing.T) {
	doc := documentJSON(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   errors.Code
	}{
		{"malformed body", "{", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no document", map[string]any{}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad document", map[string]any{"document": map[string]any{"nodes": "x"}}, http.StatusBadRequest, errors.ErrCodeInvalidDocument},
		{"unknown root", map[string]any{"document": doc, "root_id": "9:9"}, http.StatusBadRequest, errors.ErrCodeSelection},
		{"bad scale", map[string]any{"document": doc, "scale": 10}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, 5).Handler()
			var body errorBody
			rec := call(t, h, http.MethodPost, "/api/v1/export", "", tt.body, &body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
		})
	}
}

func TestExportQuota(t *testing.T) {
	h := newServer(t, 1).Handler()
	body := map[string]any{"document": documentJSON(t)}

	rec := call(t, h, http.MethodPost, "/api/v1/export", "", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	sid := rec.Header().Get(SessionHeader)

	var eb errorBody
	rec = call(t, h, http.MethodPost, "/api/v1/export", sid, body, &eb)
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", rec.Code)
	}
	if want := "Insufficient credits. This export requires 1 credits, but you have 0."; eb.Error.Message != want {
		t.Errorf("message = %q", eb.Error.Message)
	}
}

func TestConvert(t *testing.T) {
	h := newServer(t, 5).Handler()
	markup := `<div style="position:relative; width:600px; height:100px;">` +
		`<table role="presentation" style="position:absolute; left:0px; top:0px; width:600px; height:100px;"><tr><td>hi</td></tr></table></div>`

	var out convertResponse
	rec := call(t, h, http.MethodPost, "/api/v1/convert", "", convertRequest{HTML: markup, Width: 600, Background: "#112233"}, &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if strings.Contains(out.HTML, "left:0px") || !strings.Contains(out.HTML, "<!--[if !mso]><!--><table") {
		t.Error("converted markup still positioned")
	}
	if !strings.Contains(out.HTML, "#112233") {
		t.Error("background color missing")
	}

	rec = call(t, h, http.MethodPost, "/api/v1/convert", "", convertRequest{HTML: markup}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero width status = %d, want 400", rec.Code)
	}
}

func TestCredits(t *testing.T) {
	h := newServer(t, 5).Handler()

	var bal balanceResponse
	rec := call(t, h, http.MethodGet, "/api/v1/credits/", "", nil, &bal)
	sid := rec.Header().Get(SessionHeader)
	if bal.Balance != 5 || bal.Admin {
		t.Fatalf("balance = %+v", bal)
	}

	if rec := call(t, h, http.MethodPost, "/api/v1/credits/codes", sid, codeRequest{Credits: 3}, nil); rec.Code != http.StatusForbidden {
		t.Errorf("generate without admin = %d, want 403", rec.Code)
	}
	if rec := call(t, h, http.MethodPost, "/api/v1/credits/reset", sid, codeRequest{Code: "0000"}, nil); rec.Code != http.StatusForbidden {
		t.Errorf("wrong reset code = %d, want 403", rec.Code)
	}

	var red redeemResponse
	call(t, h, http.MethodPost, "/api/v1/credits/redeem", sid, codeRequest{Code: adminSecret}, &red)
	if !red.Admin || !red.AdminMode {
		t.Fatalf("admin redeem = %+v", red)
	}

	var gen ledger.PromoCode
	rec = call(t, h, http.MethodPost, "/api/v1/credits/codes", sid, codeRequest{Credits: 3}, &gen)
	if rec.Code != http.StatusCreated || len(gen.Code) != ledger.CodeLength {
		t.Fatalf("generate = %d %+v", rec.Code, gen)
	}
	rec = call(t, h, http.MethodPut, "/api/v1/credits/codes/SPRING", sid, codeRequest{Credits: 7}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add code = %d %s", rec.Code, rec.Body)
	}

	var codes codesResponse
	call(t, h, http.MethodGet, "/api/v1/credits/codes", sid, nil, &codes)
	if len(codes.Codes) != 2 {
		t.Errorf("codes = %+v", codes.Codes)
	}

	call(t, h, http.MethodPost, "/api/v1/credits/redeem", sid, codeRequest{Code: gen.Code}, &red)
	if red.Balance != 8 || red.Credits != 3 {
		t.Errorf("redeem = %+v", red)
	}
	var eb errorBody
	rec = call(t, h, http.MethodPost, "/api/v1/credits/redeem", sid, codeRequest{Code: gen.Code}, &eb)
	if rec.Code != http.StatusBadRequest || eb.Error.Message != "Code already used." {
		t.Errorf("second redeem = %d %+v", rec.Code, eb)
	}

	call(t, h, http.MethodPost, "/api/v1/credits/reset", sid, codeRequest{Code: ledger.DefaultResetCode}, &bal)
	if bal.Balance != 5 {
		t.Errorf("reset balance = %d", bal.Balance)
	}
}

func TestSessionsIsolated(t *testing.T) {
	h := newServer(t, 5).Handler()
	body := map[string]any{"document": documentJSON(t)}

	call(t, h, http.MethodPost, "/api/v1/export", "", body, nil)

	var bal balanceResponse
	call(t, h, http.MethodGet, "/api/v1/credits/", "", nil, &bal)
	if bal.Balance != 5 {
		t.Errorf("fresh session balance = %d, want 5", bal.Balance)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeSelection, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeInvalidDocument, "x"), http.StatusBadRequest},
		{&errors.QuotaError{Required: 2, Available: 1}, http.StatusPaymentRequired},
		{errors.New(errors.ErrCodeUnauthorized, "x"), http.StatusForbidden},
		{errors.New(errors.ErrCodeNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeInternal, "x"), http.StatusInternalServerError},
		{bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessage(t *testing.T) {
	if got := publicMessage(bytes.ErrTooLarge); got != "internal error" {
		t.Errorf("uncoded error leaked: %q", got)
	}
	if got := publicMessage(errors.New(errors.ErrCodeSelection, "pick one")); got != "pick one" {
		t.Errorf("coded message = %q", got)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"same host", nil, "http://example.com", true},
		{"other host", nil, "http://evil.com", false},
		{"wildcard", []string{"*"}, "http://evil.com", true},
		{"exact", []string{"https://www.figma.com"}, "https://www.figma.com", true},
		{"subdomain", []string{"*.figma.com"}, "https://www.figma.com", true},
		{"not listed", []string{"https://www.figma.com"}, "https://figma.net", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(tt.allowed)(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	s := newServer(t, 5)
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	var eb errorBody
	rec := call(t, h, http.MethodGet, "/", "", nil, &eb)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if eb.Error.Message != "internal error" {
		t.Errorf("message = %q", eb.Error.Message)
	}
}

func TestHealth(t *testing.T) {
	rec := call(t, newServer(t, 5).Handler(), http.MethodGet, "/healthz", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get(SessionHeader) != "" {
		t.Error("health check should not create a session")
	}
}

func TestLedgerEviction(t *testing.T) {
	s := newServer(t, 5)
	s.maxLedgers = 2

	expired := session.New(time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	s.ledger(expired)
	first := session.New(time.Hour)
	s.ledger(first)

	// Full: the expired handle goes first.
	second := session.New(time.Hour)
	s.ledger(second)
	if _, ok := s.ledgers[expired.ID]; ok {
		t.Error("expired session ledger kept")
	}
	if len(s.ledgers) != 2 {
		t.Fatalf("ledgers = %d, want 2", len(s.ledgers))
	}

	// Full of live sessions: the least recently used one goes.
	s.ledger(first)
	s.ledgers[second.ID].lastUsed = time.Now().Add(-time.Hour)
	third := session.New(time.Hour)
	s.ledger(third)
	if _, ok := s.ledgers[second.ID]; ok {
		t.Error("least recently used ledger kept")
	}
	for _, sess := range []*session.Session{first, third} {
		if _, ok := s.ledgers[sess.ID]; !ok {
			t.Errorf("ledger for %s evicted", sess.ID)
		}
	}
}
