// Package otp implements email ownership verification with single-use codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/cache"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/mailer"
)

// Status is the single-character result code the widget understands.
type Status string

const (
	StatusOK       Status = "1"
	StatusPending  Status = "2"
	StatusRejected Status = "0"
	// StatusMalformed shares the pending code on the verify endpoint.
	StatusMalformed Status = "2"
)

const codeDigits = 6

// VerifiedTTL is how long a successful verification authorises site edits.
const VerifiedTTL = 10 * time.Minute

// VerifyResult is returned by Verify.
type VerifyResult struct {
	Code             Status `json:"code"`
	KnowledgeContext string `json:"knowledgeContext,omitempty"`
	SiteID           string `json:"siteId,omitempty"`
}

// Service issues and checks codes.
type Service struct {
	cache  cache.Cache
	store  knowledge.Store
	sender mailer.Sender
	ttl    time.Duration
	log    *zap.Logger

	newCode func() (string, error)
}

// New creates a Service. Codes live in c for ttl.
func New(c cache.Cache, store knowledge.Store, sender mailer.Sender, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: c, store: store, sender: sender, ttl: ttl, log: logger, newCode: randomCode}
}

// Request sends a fresh code to email unless one is still pending.
func (s *Service) Request(ctx context.Context, email string) Status {
	addr, ok := NormalizeEmail(email)
	if !ok {
		return StatusRejected
	}
	key := cache.EmailKey(addr)
	if _, pending := s.cache.Get(ctx, key); pending {
		return StatusPending
	}

	code, err := s.newCode()
	if err != nil {
		s.log.Error("generate code", zap.Error(err))
		return StatusRejected
	}
	if err := s.cache.Put(ctx, key, code, s.ttl); err != nil {
		s.log.Error("store code", zap.String("email", addr), zap.Error(err))
		return StatusRejected
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.ttl)
	if err := s.sender.Send(ctx, addr, "Your AI Secretary verification code", body); err != nil {
		s.log.Warn("send code", zap.String("email", addr), zap.Error(err))
		_ = s.cache.Delete(ctx, key)
		return StatusRejected
	}
	return StatusOK
}

// Verify checks code for email. A match consumes the code and provisions a
// site for the email on first success.
func (s *Service) Verify(ctx context.Context, email, code string) (VerifyResult, error) {
	addr, ok := NormalizeEmail(email)
	if !ok || !validCode(code) {
		return VerifyResult{Code: StatusMalformed}, nil
	}

	key := cache.EmailKey(addr)
	stored, ok := s.cache.Get(ctx, key)
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return VerifyResult{Code: StatusRejected}, nil
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return VerifyResult{}, fmt.Errorf("consume code: %w", err)
	}

	rec, err := s.store.Provision(ctx, addr)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("provision site: %w", err)
	}
	if err := s.cache.Put(ctx, cache.VerifiedKey(addr), rec.SiteID, VerifiedTTL); err != nil {
		s.log.Warn("mark verified", zap.String("email", addr), zap.Error(err))
	}
	return VerifyResult{Code: StatusOK, KnowledgeContext: rec.KnowledgeContext, SiteID: rec.SiteID}, nil
}

// Verified reports whether email passed Verify within VerifiedTTL.
func (s *Service) Verified(ctx context.Context, email string) bool {
	addr, ok := NormalizeEmail(email)
	if !ok {
		return false
	}
	_, ok = s.cache.Get(ctx, cache.VerifiedKey(addr))
	return ok
}

// NormalizeEmail returns the lower-cased bare address, rejecting display
// names and anything net/mail cannot parse.
func NormalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return "", false
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email || parsed.Name != "" {
		return "", false
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at:], ".") {
		return "", false
	}
	return strings.ToLower(email), true
}

func validCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
