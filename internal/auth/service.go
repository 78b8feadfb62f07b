package auth

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/servilocal/backend/internal/models"
)

// ErrDuplicateEmail is returned when signing up with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned on a wrong email/password pair. One
// error for both so callers can't probe which emails are registered.
var ErrInvalidCredentials = errors.New("incorrect email or password")

// RoleProvider is the only role issued at signup today; the permission
// middleware keys off it.
const RoleProvider = "provider"

// ProviderStore is the identity persistence the auth service needs.
type ProviderStore interface {
	Create(ctx context.Context, p *models.Provider) error
	GetByEmail(ctx context.Context, email string) (*models.Provider, error)
}

type SignupInput struct {
	BusinessName string  `json:"business_name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	PhoneNumber  string  `json:"phone_number"`
	ServiceType  string  `json:"service_type"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	Image        *string `json:"image"`
}

type Service interface {
	Signup(ctx context.Context, in SignupInput) (*models.Provider, string, error)
	Login(ctx context.Context, email, password string) (*models.Provider, string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	providers ProviderStore
	secret    []byte
}

func NewService(providers ProviderStore) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretmvp"
	}
	return &service{providers: providers, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Signup(ctx context.Context, in SignupInput) (*models.Provider, string, error) {
	if in.BusinessName == "" || in.Email == "" {
		return nil, "", errors.New("business name and email are required")
	}
	if len(in.Password) < 8 {
		return nil, "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	p := &models.Provider{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		BusinessName: in.BusinessName,
		PasswordHash: string(hash),
		PhoneNumber:  in.PhoneNumber,
		ServiceType:  in.ServiceType,
		Description:  in.Description,
		Location:     in.Location,
		Image:        in.Image,
	}
	if err := s.providers.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", err
	}
	token, err := s.issueToken(p.ID)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.Provider, string, error) {
	p, err := s.providers.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(p.ID)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

func (s *service) issueToken(providerID uuid.UUID) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   providerID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: RoleProvider,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
