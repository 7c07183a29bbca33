package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("alice", secret, 2*time.Hour, epoch)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret, epoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, "alice")
	}
	if !claims.IssuedAt.Time.Equal(epoch) {
		t.Fatalf("iat mismatch: got %v", claims.IssuedAt.Time)
	}
	if !claims.ExpiresAt.Time.Equal(epoch.Add(2 * time.Hour)) {
		t.Fatalf("exp mismatch: got %v", claims.ExpiresAt.Time)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	a, _ := GenerateToken("bob", secret, time.Hour, epoch)
	b, _ := GenerateToken("bob", secret, time.Hour, epoch)
	if a == b {
		t.Fatalf("tokens minted at the same instant must differ")
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u1", secret, 2*time.Hour, epoch)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, secret, epoch.Add(2*time.Hour+time.Second))
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected parser detail to be kept, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", []byte("right-secret"), time.Hour, epoch)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, []byte("wrong-secret"), epoch)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"), epoch)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
	}})
	s, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ParseToken(s, []byte("k"), epoch); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}
}

func TestIssuerVerifierRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("round-trip")
	issuer := NewTokenIssuer(secret, 2*time.Hour)
	issuer.now = func() time.Time { return epoch }
	verifier := NewTokenVerifier(secret)
	verifier.now = func() time.Time { return epoch.Add(119 * time.Minute) }

	tok, err := issuer.Issue(NewPrincipal("carol"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", tok)
	}

	p, err := verifier.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Name != "carol" || len(p.Authorities) != 1 || p.Authorities[0] != common.RoleUser {
		t.Fatalf("unexpected principal %+v", p)
	}

	verifier.now = func() time.Time { return epoch.Add(121 * time.Minute) }
	if _, err := verifier.Verify(tok); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected expiry after two hours, got %v", err)
	}
}
