package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/export"
	"github.com/matzehuels/mailframe/pkg/ledger"
)

// Message types of the shell protocol.
const (
	MsgExportSelection   = "export-selection"
	MsgGetCredits        = "get-credits"
	MsgResetCredits      = "reset-credits"
	MsgCheckCode         = "check-code"
	MsgAdminGenerateCode = "admin-generate-code"
	MsgAdminAddCode      = "admin-add-code"
	MsgListCodes         = "list-codes"

	// MsgResize is sent by plugin UIs that own their window; it needs no
	// reply here.
	MsgResize = "resize"

	MsgProgress      = "progress"
	MsgCredits       = "credits"
	MsgExportResult  = "export-result"
	MsgRedeemSuccess = "redeem-success"
	MsgAdminGranted  = "admin-access-granted"
	MsgCodeGenerated = "code-generated"
	MsgCodeAdded     = "code-added"
	MsgError         = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Inbound is a message from the UI.
type Inbound struct {
	Type           string          `json:"type"`
	Document       json.RawMessage `json:"document,omitempty"`
	RootID         string          `json:"rootId,omitempty"`
	UseTableLayout *bool           `json:"useTableLayout,omitempty"`
	Code           string          `json:"code,omitempty"`
	Credits        int             `json:"credits,omitempty"`
}

// Outbound is a reply to the UI. Export results carry the payload fields
// inline.
type Outbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Balance *int   `json:"balance,omitempty"`
	Code    string `json:"code,omitempty"`
	Credits int    `json:"credits,omitempty"`
	*export.Payload
}

type codesMessage struct {
	Type  string             `json:"type"`
	Codes []ledger.PromoCode `json:"codes"`
}

// conn serializes writes to one websocket.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadLimit(s.cfg.MaxBodyBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.keepAlive(ctx, c)

	sess := sessionFrom(ctx)
	s.logger.Debug("shell connected", "session", sess.ID)
	for {
		var msg Inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("shell closed", "session", sess.ID, "err", err)
			}
			return
		}
		if err := s.dispatch(ctx, c, msg); err != nil {
			s.logger.Debug("shell write failed", "session", sess.ID, "err", err)
			return
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, c *conn) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// dispatch handles one message. Handler errors become error replies; only
// write failures are returned.
func (s *Server) dispatch(ctx context.Context, c *conn, msg Inbound) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("shell panic", "type", msg.Type, "panic", rec)
			err = c.send(Outbound{Type: MsgError, Message: "Backend error: internal error"})
		}
	}()

	reply, herr := s.handleMessage(ctx, c, msg)
	if herr != nil {
		return c.send(Outbound{Type: MsgError, Message: shellMessage(herr)})
	}
	for _, m := range reply {
		if err := c.send(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleMessage(ctx context.Context, c *conn, msg Inbound) ([]any, error) {
	l := s.ledger(sessionFrom(ctx))

	switch msg.Type {
	case MsgExportSelection:
		opts := s.exportO
		opts.RootID = msg.RootID
		opts.TableLayout = msg.UseTableLayout == nil || *msg.UseTableLayout
		progress := func(text string) {
			_ = c.send(Outbound{Type: MsgProgress, Message: text})
		}
		res, err := s.export(ctx, msg.Document, opts, progress)
		if err != nil {
			return nil, err
		}
		out := []any{}
		if res.Stats.Tables > 0 {
			bal, err := l.Balance(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, Outbound{Type: MsgCredits, Balance: &bal})
		}
		return append(out, Outbound{Type: MsgExportResult, Payload: res.Payload}), nil

	case MsgGetCredits:
		bal, err := l.Balance(ctx)
		if err != nil {
			return nil, err
		}
		return []any{Outbound{Type: MsgCredits, Balance: &bal}}, nil

	case MsgResetCredits:
		bal, err := l.Reset(ctx, msg.Code)
		if err != nil {
			return nil, err
		}
		return []any{Outbound{Type: MsgCredits, Balance: &bal}}, nil

	case MsgCheckCode:
		red, err := l.Redeem(ctx, msg.Code)
		if err != nil {
			return nil, err
		}
		if red.Admin {
			return []any{Outbound{Type: MsgAdminGranted}}, nil
		}
		return []any{Outbound{Type: MsgRedeemSuccess, Balance: &red.Balance}}, nil

	case MsgAdminGenerateCode:
		code, err := l.Generate(ctx, msg.Credits)
		if err != nil {
			return nil, err
		}
		return []any{Outbound{Type: MsgCodeGenerated, Code: code, Credits: msg.Credits}}, nil

	case MsgAdminAddCode:
		if err := l.AddCode(ctx, msg.Code, msg.Credits); err != nil {
			return nil, err
		}
		return []any{Outbound{Type: MsgCodeAdded, Code: strings.TrimSpace(msg.Code)}}, nil

	case MsgListCodes:
		codes, err := l.Codes(ctx)
		if err != nil {
			return nil, err
		}
		if codes == nil {
			codes = []ledger.PromoCode{}
		}
		return []any{codesMessage{Type: MsgListCodes, Codes: codes}}, nil

	case MsgResize:
		return nil, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "Unknown message type: %s", msg.Type)
}

// shellMessage is the text of an error reply. Coded failures carry their
// user message; anything else is reported as a backend error.
func shellMessage(err error) string {
	switch errors.GetCode(err) {
	case "", errors.ErrCodeInternal:
		return "Backend error: " + err.Error()
	}
	return errors.UserMessage(err)
}
