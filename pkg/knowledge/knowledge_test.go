package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/aitarf0921/AI-Secretary/pkg/config"
)

var siteIDPattern = regexp.MustCompile(`^site_[0-9A-Za-z]{12}$`)

func TestNewSiteID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := NewSiteID("")
		if !siteIDPattern.MatchString(id) {
			t.Fatalf("malformed site id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate site id %q", id)
		}
		seen[id] = true
	}
	if id := NewSiteID("aitarf"); !strings.HasPrefix(id, "aitarf_") {
		t.Errorf("expected custom prefix, got %s", id)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "  Acme sells anvils to coyotes.  ", want: "Acme sells anvils to coyotes."},
		{name: "html", in: "<p>Acme sells <strong>anvils</strong> to coyotes.</p>", want: "Acme sells **anvils** to coyotes."},
		{name: "too short", in: "   short   ", wantErr: ErrTooShort},
		{name: "too long", in: strings.Repeat("a", MaxLength+1), wantErr: ErrTooLong},
		{name: "runes not bytes", in: strings.Repeat("恐", MinLength), want: strings.Repeat("恐", MinLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// storeContract runs the Store behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.ByEmail(ctx, "a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetKnowledge(ctx, "a@example.com", "text"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unprovisioned email, got %v", err)
	}

	rec, err := s.Provision(ctx, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !siteIDPattern.MatchString(rec.SiteID) {
		t.Errorf("malformed site id %q", rec.SiteID)
	}

	again, err := s.Provision(ctx, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.SiteID != rec.SiteID {
		t.Errorf("provision should be idempotent: %s != %s", again.SiteID, rec.SiteID)
	}

	updated, err := s.SetKnowledge(ctx, "a@example.com", "Acme sells anvils to coyotes.")
	if err != nil {
		t.Fatal(err)
	}
	if updated.KnowledgeContext != "Acme sells anvils to coyotes." {
		t.Errorf("unexpected knowledge: %q", updated.KnowledgeContext)
	}

	got, err := s.Lookup(ctx, rec.SiteID)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Acme sells anvils to coyotes." {
		t.Errorf("unexpected lookup: %q", got)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "knowledge.db"), "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	storeContract(t, s)

	if _, err := s.Lookup(context.Background(), "site_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStaticStore(t *testing.T) {
	s := NewStatic("Dinosaurs roamed the earth.", "")
	storeContract(t, s)

	got, err := s.Lookup(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Dinosaurs roamed the earth." {
		t.Errorf("expected fixed text, got %q", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.KnowledgeConfig{Backend: "sqlite", DBPath: filepath.Join(t.TempDir(), "k.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}

	if _, err := Open(ctx, config.KnowledgeConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
