package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// reply is the union of every outbound field the tests look at.
type reply struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Balance  *int              `json:"balance"`
	Code     string            `json:"code"`
	Credits  int               `json:"credits"`
	Filename string            `json:"filename"`
	HTML     string            `json:"html"`
	Codes    []json.RawMessage `json:"codes"`
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func exchange(t *testing.T, ws *websocket.Conn, msg Inbound) reply {
	t.Helper()
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	return next(t, ws)
}

func next(t *testing.T, ws *websocket.Conn) reply {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var r reply
	if err := ws.ReadJSON(&r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return r
}

func TestShellCredits(t *testing.T) {
	ws := dial(t, newServer(t, 5))

	tests := []struct {
		name    string
		msg     Inbound
		typ     string
		message string
	}{
		{"balance", Inbound{Type: MsgGetCredits}, MsgCredits, ""},
		{"empty code", Inbound{Type: MsgCheckCode, Code: "  "}, MsgError, "Please enter a code."},
		{"unknown promo", Inbound{Type: MsgCheckCode, Code: "NOPE"}, MsgError, "Invalid promo code."},
		{"bad reset", Inbound{Type: MsgResetCredits, Code: "1234"}, MsgError, "Invalid reset code."},
		{"generate without admin", Inbound{Type: MsgAdminGenerateCode, Credits: 5}, MsgError, "Unauthorized access. Please enter admin secret."},
		{"list without admin", Inbound{Type: MsgListCodes}, MsgError, "Unauthorized access. Please enter admin secret."},
		{"unknown type", Inbound{Type: "rotate"}, MsgError, "Unknown message type: rotate"},
		{"admin secret", Inbound{Type: MsgCheckCode, Code: adminSecret}, MsgAdminGranted, ""},
		{"bad amount", Inbound{Type: MsgAdminGenerateCode, Credits: 101}, MsgError, "Invalid credits amount."},
		{"bad add", Inbound{Type: MsgAdminAddCode, Code: "WAYTOOLONGCODE", Credits: 5}, MsgError, "Invalid code or credits."},
		{"reset", Inbound{Type: MsgResetCredits, Code: " 2209 "}, MsgCredits, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := exchange(t, ws, tt.msg)
			if r.Type != tt.typ {
				t.Fatalf("type = %q (%q), want %q", r.Type, r.Message, tt.typ)
			}
			if r.Message != tt.message {
				t.Errorf("message = %q, want %q", r.Message, tt.message)
			}
		})
	}
}

func TestShellPromoFlow(t *testing.T) {
	ws := dial(t, newServer(t, 5))

	if r := exchange(t, ws, Inbound{Type: MsgCheckCode, Code: adminSecret}); r.Type != MsgAdminGranted {
		t.Fatalf("admin = %+v", r)
	}
	r := exchange(t, ws, Inbound{Type: MsgListCodes})
	if r.Type != MsgListCodes || r.Codes == nil || len(r.Codes) != 0 {
		t.Fatalf("empty list = %+v", r)
	}

	gen := exchange(t, ws, Inbound{Type: MsgAdminGenerateCode, Credits: 10})
	if gen.Type != MsgCodeGenerated || gen.Credits != 10 || len(gen.Code) != 8 {
		t.Fatalf("generate = %+v", gen)
	}
	if r := exchange(t, ws, Inbound{Type: MsgAdminAddCode, Code: " SUMMER ", Credits: 2}); r.Type != MsgCodeAdded || r.Code != "SUMMER" {
		t.Fatalf("add = %+v", r)
	}
	if r := exchange(t, ws, Inbound{Type: MsgListCodes}); len(r.Codes) != 2 {
		t.Errorf("list = %+v", r)
	}

	r = exchange(t, ws, Inbound{Type: MsgCheckCode, Code: gen.Code})
	if r.Type != MsgRedeemSuccess || r.Balance == nil || *r.Balance != 15 {
		t.Fatalf("redeem = %+v", r)
	}
	if r := exchange(t, ws, Inbound{Type: MsgCheckCode, Code: gen.Code}); r.Message != "Code already used." {
		t.Errorf("reuse = %+v", r)
	}
}

func TestShellExport(t *testing.T) {
	ws := dial(t, newServer(t, 5))

	if err := ws.WriteJSON(Inbound{Type: MsgExportSelection, Document: documentJSON(t)}); err != nil {
		t.Fatal(err)
	}

	var seen []string
	var result reply
	for result.Type != MsgExportResult {
		result = next(t, ws)
		if result.Type == MsgError {
			t.Fatalf("export failed: %s", result.Message)
		}
		if result.Type == MsgCredits && (result.Balance == nil || *result.Balance != 4) {
			t.Errorf("credits = %+v", result)
		}
		seen = append(seen, result.Type)
	}

	if seen[0] != MsgProgress {
		t.Errorf("first message = %q, want progress", seen[0])
	}
	if seen[len(seen)-2] != MsgCredits {
		t.Errorf("messages = %v, want credits before the result", seen)
	}
	if result.Filename != "spring-sale" || !strings.Contains(result.HTML, "<table") {
		t.Errorf("result = %q", result.Filename)
	}
}

func TestShellSelectionError(t *testing.T) {
	ws := dial(t, newServer(t, 5))

	r := exchange(t, ws, Inbound{Type: MsgExportSelection, Document: documentJSON(t), RootID: "1:4"})
	for r.Type == MsgProgress {
		r = next(t, ws)
	}
	if r.Type != MsgError || r.Message != "Please select a single Frame to export." {
		t.Errorf("reply = %+v", r)
	}
}

func TestShellResizeIgnored(t *testing.T) {
	ws := dial(t, newServer(t, 5))

	if err := ws.WriteJSON(Inbound{Type: MsgResize}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if r := exchange(t, ws, Inbound{Type: MsgGetCredits}); r.Type != MsgCredits {
		t.Errorf("reply after resize = %q, want %q", r.Type, MsgCredits)
	}
}

func TestShellMessage(t *testing.T) {
	if got := shellMessage(http.ErrBodyNotAllowed); !strings.HasPrefix(got, "Backend error: ") {
		t.Errorf("shellMessage() = %q", got)
	}
}
