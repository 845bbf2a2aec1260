package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/answer"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/models"
	"github.com/aitarf0921/AI-Secretary/pkg/otp"
	"github.com/aitarf0921/AI-Secretary/pkg/payment"
	"github.com/aitarf0921/AI-Secretary/pkg/provider"
	"github.com/aitarf0921/AI-Secretary/pkg/widget"
)

// decode reads a JSON object into v. Fields of the wrong type decode as
// their zero value instead of failing the request.
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	loose := make(map[string]json.RawMessage, len(raw))
	for k, val := range raw {
		var s string
		if json.Unmarshal(val, &s) == nil {
			loose[k] = val
		}
	}
	b, _ := json.Marshal(loose)
	return json.Unmarshal(b, v)
}

func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large", "BODY_TOO_LARGE")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "Invalid JSON body", "BAD_JSON")
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q models.Query
	if err := decode(r, &q); err != nil {
		bodyError(w, err)
		return
	}

	res, err := s.answers.Answer(r.Context(), q)
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var verr *answer.ValidationError
	var exhausted *provider.ExhaustedError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message})
	case errors.As(err, &exhausted):
		s.log.Error("all candidate models failed", zap.Int("attempts", exhausted.Attempts), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:     "Failed to process query with all candidate models.",
			Code:      "PROVIDER_EXHAUSTED",
			LastError: exhausted.Last,
			Hints:     exhausted.Hints(),
		})
	default:
		s.log.Error("query failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL")
	}
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		bodyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]otp.Status{"code": s.otp.Request(r.Context(), req.Email)})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		bodyError(w, err)
		return
	}
	res, err := s.otp.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		s.log.Error("verify code", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSiteID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Knowledge string `json:"knowledge"`
	}
	if err := decode(r, &req); err != nil {
		bodyError(w, err)
		return
	}

	email, ok := otp.NormalizeEmail(req.Email)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Email is invalid", "")
		return
	}
	if !s.otp.Verified(r.Context(), email) {
		writeJSONError(w, http.StatusBadRequest, "Email is not verified", "")
		return
	}
	text, err := knowledge.Normalize(req.Knowledge)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, capitalize(err.Error()), "")
		return
	}

	rec, err := s.store.SetKnowledge(r.Context(), email, text)
	if errors.Is(err, knowledge.ErrNotFound) {
		writeJSONError(w, http.StatusBadRequest, "Email is not verified", "")
		return
	}
	if err != nil {
		s.log.Error("save knowledge", zap.String("email", email), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL")
		return
	}

	snippet, err := widget.Snippet(widget.PublicConfig(s.publicURL(r), s.cfg.Widget.Endpoint, s.cfg.Widget.Placeholder, rec.SiteID))
	if err != nil {
		s.log.Warn("render snippet", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"siteId": rec.SiteID, "snippet": snippet})
}

func (s *Server) handleIPN(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Payment.IPNSecret == "" {
		writeJSONError(w, http.StatusServiceUnavailable, "IPN is not configured", "")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		bodyError(w, err)
		return
	}

	err = payment.Verify(body, r.Header.Get(payment.SignatureHeader), s.cfg.Payment.IPNSecret)
	switch {
	case errors.Is(err, payment.ErrMissingSignature):
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	case errors.Is(err, payment.ErrBadSignature):
		s.log.Warn("ipn signature mismatch")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	case err != nil:
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ev := payment.ParseEvent(body)
	s.log.Info("ipn received",
		zap.String("payment_id", ev.PaymentID),
		zap.String("payment_status", ev.PaymentStatus),
		zap.String("order_id", ev.OrderID),
	)
	if s.payments != nil {
		if err := s.payments.Record(r.Context(), ev); err != nil {
			s.log.Error("record ipn", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	public := s.publicURL(r)
	data := widget.LandingData{PublicURL: public}

	var err error
	cfg := widget.PublicConfig(public, s.cfg.Widget.Endpoint, s.cfg.Widget.Placeholder, "YOUR_SITE_ID")
	if data.Snippet, err = widget.Snippet(cfg); err != nil {
		s.log.Warn("render snippet", zap.Error(err))
	}

	cfg.Site = ""
	if data.PreviewURL, err = widget.PanelURL(cfg); err != nil {
		s.log.Warn("build preview url", zap.Error(err))
	}
	data.PreviewHeight = widget.ClampResize(cfg.Height)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := widget.RenderLanding(w, data); err != nil {
		s.log.Error("render landing", zap.Error(err))
	}
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := widget.Normalize(widget.Attrs{
		Placeholder: q.Get("placeholder"),
		Accent:      q.Get("accent"),
		Endpoint:    q.Get("endpoint"),
		Site:        q.Get("site"),
	})
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/query"
	}

	h := w.Header()
	h.Del("X-Frame-Options")
	h.Set("Content-Security-Policy", frameAncestors(s.cfg.Server.AllowedEmbedOrigins))
	h.Set("Content-Type", "text/html; charset=utf-8")
	err := widget.RenderPanel(w, widget.PanelData{
		Placeholder: cfg.Placeholder,
		Accent:      cfg.Accent,
		Endpoint:    cfg.Endpoint,
		Site:        cfg.Site,
	})
	if err != nil {
		s.log.Error("render widget", zap.Error(err))
	}
}

// publicURL is the configured public base URL, or one derived from the request.
func (s *Server) publicURL(r *http.Request) string {
	if s.cfg.Widget.PublicURL != "" {
		return strings.TrimRight(s.cfg.Widget.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
