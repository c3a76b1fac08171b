package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

const demoFarmerPhone = "+919800000001"

func newTestMockGateway() *MockGateway {
	return NewMockGateway(&MockConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Issuer:    "test-issuer",
		OTPTTL:    time.Minute,
	})
}

// plantCode stores a known code for a phone, standing in for the random one
// SendOTP would issue.
func plantCode(t *testing.T, g *MockGateway, phone, code string, ttl time.Duration) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash code: %v", err)
	}
	g.mu.Lock()
	g.codes[phone] = issuedCode{hash: hash, expiresAt: time.Now().Add(ttl)}
	g.mu.Unlock()
}

func TestMockGateway_SendOTP(t *testing.T) {
	g := newTestMockGateway()
	ctx := context.Background()

	t.Run("known phone succeeds", func(t *testing.T) {
		if err := g.SendOTP(ctx, demoFarmerPhone); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		g.mu.Lock()
		_, ok := g.codes[demoFarmerPhone]
		g.mu.Unlock()
		if !ok {
			t.Error("expected a stored code after SendOTP")
		}
	})

	t.Run("unknown phone fails", func(t *testing.T) {
		if err := g.SendOTP(ctx, "+910000000000"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestMockGateway_VerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code mints a token", func(t *testing.T) {
		g := newTestMockGateway()
		plantCode(t, g, demoFarmerPhone, "123456", time.Minute)

		result, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Token == "" {
			t.Error("expected a token")
		}
		if result.Identity.Role != domain.RoleFarmer {
			t.Errorf("expected farmer identity, got %q", result.Identity.Role)
		}

		// Token must be a valid HS256 JWT carrying the role
		parsed, err := jwt.Parse(result.Token, func(tok *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		if err != nil {
			t.Fatalf("token does not parse: %v", err)
		}
		claims := parsed.Claims.(jwt.MapClaims)
		if claims["role"] != "farmer" {
			t.Errorf("expected role claim 'farmer', got %v", claims["role"])
		}
		if claims["iss"] != "test-issuer" {
			t.Errorf("expected issuer 'test-issuer', got %v", claims["iss"])
		}
	})

	t.Run("code is consumed after success", func(t *testing.T) {
		g := newTestMockGateway()
		plantCode(t, g, demoFarmerPhone, "123456", time.Minute)

		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456"); err != ErrInvalidCode {
			t.Errorf("expected ErrInvalidCode for replayed code, got %v", err)
		}
	})

	t.Run("wrong code is rejected but not consumed", func(t *testing.T) {
		g := newTestMockGateway()
		plantCode(t, g, demoFarmerPhone, "123456", time.Minute)

		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "000000"); err != ErrInvalidCode {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
		// Correct code still works afterwards
		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456"); err != nil {
			t.Errorf("expected success after wrong attempt, got %v", err)
		}
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		g := newTestMockGateway()
		plantCode(t, g, demoFarmerPhone, "123456", -time.Second)

		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456"); err != ErrInvalidCode {
			t.Errorf("expected ErrInvalidCode for expired code, got %v", err)
		}
	})

	t.Run("unknown phone is rejected", func(t *testing.T) {
		g := newTestMockGateway()
		if _, err := g.VerifyOTP(ctx, "+910000000000", "123456"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("no code issued is rejected", func(t *testing.T) {
		g := newTestMockGateway()
		if _, err := g.VerifyOTP(ctx, demoFarmerPhone, "123456"); err != ErrInvalidCode {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
	})
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Errorf("expected 6 digits, got %q", code)
		}
		for _, ch := range code {
			if ch < '0' || ch > '9' {
				t.Errorf("non-digit in code %q", code)
			}
		}
	}
}

func TestDemoDirectory_OneUserPerRole(t *testing.T) {
	dir := demoDirectory()

	seen := map[domain.Role]bool{}
	for _, u := range dir {
		if !u.Role.Valid() {
			t.Errorf("demo user %s has invalid role %q", u.ID, u.Role)
		}
		if seen[u.Role] {
			t.Errorf("duplicate demo role %q", u.Role)
		}
		seen[u.Role] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all three roles seeded, got %d", len(seen))
	}
}
