package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/email"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/export"
	"github.com/matzehuels/mailframe/pkg/ledger"
	"github.com/matzehuels/mailframe/pkg/pipeline"
	"github.com/matzehuels/mailframe/pkg/raster"
)

// MaxConvertWidth bounds the container width accepted by /convert.
const MaxConvertWidth = 4096

// =============================================================================
// Export
// =============================================================================

type exportRequest struct {
	Document json.RawMessage `json:"document"`
	pipeline.Options
}

type exportResponse struct {
	*export.Payload
	CacheHit bool `json:"cacheHit"`
	Balance  int  `json:"balance"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{Options: s.exportO}
	req.TableLayout = true
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := s.export(r.Context(), req.Document, req.Options, nil)
	if err != nil {
		s.fail(r, err)
		respondError(w, err)
		return
	}
	balance, err := s.ledger(sessionFrom(r.Context())).Balance(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, exportResponse{Payload: res.Payload, CacheHit: res.CacheHit, Balance: balance})
}

// export decodes the document and runs it through the pipeline, charging
// the session's ledger.
func (s *Server) export(ctx context.Context, raw json.RawMessage, opts pipeline.Options, progress func(string)) (*pipeline.Result, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document is required")
	}
	doc, err := design.ReadJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	sess := sessionFrom(ctx)
	opts.Quota = s.ledger(sess)
	opts.Fonts = s.fonts
	opts.FontDirs = s.fonts.Dirs()
	opts.Rasterizer = raster.New(doc, s.fonts, s.logger)
	opts.Logger = s.logger.With("session", sess.ID)
	opts.Progress = progress
	return s.runner.Execute(ctx, doc, opts)
}

// =============================================================================
// Convert
// =============================================================================

type convertRequest struct {
	HTML  string `json:"html"`
	Width int    `json:"width"`
	// Background is a "#rrggbb" color or an image URL.
	Background string `json:"background"`
}

type convertResponse struct {
	HTML string `json:"html"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Width <= 0 || req.Width > MaxConvertWidth {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "width must be between 1 and %d", MaxConvertWidth))
		return
	}
	out, err := email.Convert(req.HTML, req.Width, email.ParseBackground(req.Background))
	if err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "could not parse markup"))
		return
	}
	respond(w, http.StatusOK, convertResponse{HTML: out})
}

// =============================================================================
// Credits
// =============================================================================

type balanceResponse struct {
	Balance int  `json:"balance"`
	Admin   bool `json:"admin"`
}

type codeRequest struct {
	Code    string `json:"code"`
	Credits int    `json:"credits"`
}

type redeemResponse struct {
	Admin     bool `json:"admin"`
	AdminMode bool `json:"adminMode"`
	Credits   int  `json:"credits"`
	Balance   int  `json:"balance"`
}

type codesResponse struct {
	Codes []ledger.PromoCode `json:"codes"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(sessionFrom(r.Context()))
	balance, err := l.Balance(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	admin, err := l.IsAdmin(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, balanceResponse{Balance: balance, Admin: admin})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	red, err := s.ledger(sessionFrom(r.Context())).Redeem(r.Context(), req.Code)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, redeemResponse(red))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	balance, err := s.ledger(sessionFrom(r.Context())).Reset(r.Context(), req.Code)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.ledger(sessionFrom(r.Context())).Codes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if codes == nil {
		codes = []ledger.PromoCode{}
	}
	respond(w, http.StatusOK, codesResponse{Codes: codes})
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	code, err := s.ledger(sessionFrom(r.Context())).Generate(r.Context(), req.Credits)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, ledger.PromoCode{Code: code, Credits: req.Credits})
}

func (s *Server) handleAddCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	code := chi.URLParam(r, "code")
	if err := s.ledger(sessionFrom(r.Context())).AddCode(r.Context(), code, req.Credits); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, ledger.PromoCode{Code: code, Credits: req.Credits})
}

func (s *Server) fail(r *http.Request, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
}
