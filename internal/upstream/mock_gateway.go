package upstream

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
)

// MockConfig holds the development issuer settings.
type MockConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
	OTPTTL    time.Duration
}

// MockGateway is a local development AuthGateway. It delivers codes through
// the log instead of SMS, stores them bcrypt-hashed with an expiry, and
// mints HS256 tokens over a seeded demo directory with one user per role.
// Never enabled in production; config validation enforces that.
type MockGateway struct {
	cfg   *MockConfig
	users map[string]*domain.Identity // keyed by phone

	mu    sync.Mutex
	codes map[string]issuedCode

	log *logger.Logger
}

type issuedCode struct {
	hash      []byte
	expiresAt time.Time
}

// NewMockGateway creates the development issuer.
func NewMockGateway(cfg *MockConfig) *MockGateway {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 720 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &MockGateway{
		cfg:   cfg,
		users: demoDirectory(),
		codes: make(map[string]issuedCode),
		log:   logger.Get().With(zap.String("component", "mock_auth_gateway")),
	}
}

// demoDirectory seeds one account per role.
func demoDirectory() map[string]*domain.Identity {
	users := []*domain.Identity{
		{
			ID:        "demo-farmer-1",
			FirstName: "Asha",
			LastName:  "Patel",
			Role:      domain.RoleFarmer,
			Email:     "asha.patel@example.com",
			Phone:     "+919800000001",
		},
		{
			ID:        "demo-staff-1",
			FirstName: "Ravi",
			LastName:  "Sharma",
			Role:      domain.RoleStaff,
			Email:     "ravi.sharma@example.com",
			Phone:     "+919800000002",
		},
		{
			ID:        "demo-govt-1",
			FirstName: "Meera",
			LastName:  "Iyer",
			Role:      domain.RoleGovtOfficial,
			Email:     "meera.iyer@example.com",
			Phone:     "+919800000003",
		},
	}

	dir := make(map[string]*domain.Identity, len(users))
	for _, u := range users {
		dir[u.Phone] = u
	}
	return dir
}

// SendOTP issues a fresh 6-digit code for a known phone and logs it.
func (g *MockGateway) SendOTP(ctx context.Context, phone string) error {
	if _, ok := g.users[phone]; !ok {
		return ErrUserNotFound
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	g.mu.Lock()
	g.codes[phone] = issuedCode{
		hash:      hash,
		expiresAt: time.Now().Add(g.cfg.OTPTTL),
	}
	g.mu.Unlock()

	// The "delivery channel" of the development issuer
	g.log.Info("one-time code issued",
		zap.String("phone", phone),
		zap.String("code", code))
	return nil
}

// VerifyOTP checks the code against the stored hash and mints a token.
// A used code is consumed; a wrong code is not, so the user may retype it.
func (g *MockGateway) VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	user, ok := g.users[phone]
	if !ok {
		return nil, ErrUserNotFound
	}

	g.mu.Lock()
	issued, ok := g.codes[phone]
	g.mu.Unlock()

	if !ok || time.Now().After(issued.expiresAt) {
		return nil, ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword(issued.hash, []byte(code)); err != nil {
		return nil, ErrInvalidCode
	}

	g.mu.Lock()
	delete(g.codes, phone)
	g.mu.Unlock()

	token, err := g.mintToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	identity := *user
	return &AuthResult{Token: token, Identity: &identity}, nil
}

func (g *MockGateway) mintToken(user *domain.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(user.Role),
		"phone": user.Phone,
		"iss":   g.cfg.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(g.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.cfg.JWTSecret))
}

// generateCode returns a uniformly random 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
