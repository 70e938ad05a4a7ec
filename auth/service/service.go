package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goserg/eventserver/auth/storage"
	"github.com/goserg/eventserver/auth/users"
	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/normalize"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
)

const (
	RootName      = "root"
	maxNameLength = 64
	defaultTTL    = 24 * time.Hour
)

var ErrNotAuthorized = errors.New("unauthorized")

var namePattern = regexp.MustCompile(`^\p{L}[\p{L}\p{N}_]*$`)

type Service struct {
	storage storage.AuthStorage
	cfg     Config
	log     *logrus.Entry
}

func New(ctx context.Context, cfg Config, storage storage.AuthStorage, l *logrus.Logger) (*Service, error) {
	log := l.WithField("from", "auth")
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTTL
	}
	if cfg.TokenSecret == "" {
		secret, err := randomBytes(32)
		if err != nil {
			return nil, err
		}
		cfg.TokenSecret = string(secret)
		log.Warn("token secret is not configured, issued tokens will not survive a restart")
	}
	s := Service{
		cfg:     cfg,
		storage: storage,
		log:     log,
	}
	if err := s.EnsureRoot(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

// EnsureRoot creates the root user when a root password is configured and the user is missing.
func (s *Service) EnsureRoot(ctx context.Context) error {
	if s.cfg.RootPassword == "" {
		return nil
	}
	_, _, err := s.storage.GetUserSecret(ctx, RootName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return err
	}
	_, err = s.SignUp(ctx, RootName, s.cfg.RootPassword)
	if err != nil {
		return err
	}
	s.log.Info("root user created")
	return nil
}

func (s *Service) SignUp(ctx context.Context, name string, password string) (users.User, error) {
	name = normalize.Name(name)
	if err := validateCredentials(name, password); err != nil {
		return users.User{}, err
	}
	salt, err := randomBytes(8)
	if err != nil {
		return users.User{}, err
	}
	secret := generateSecret(password, s.cfg.PasswordPepper, salt)
	user, err := s.storage.CreateUser(ctx, users.User{
		Name:         name,
		RegisteredAt: time.Now().UTC().Truncate(time.Second),
	}, secret)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return users.User{}, fmt.Errorf("%w: username already exists", domain.ErrConflict)
		}
		return users.User{}, err
	}
	return user, nil
}

func validateCredentials(name, password string) error {
	var err error
	switch {
	case name == "":
		err = errors.Join(err, fmt.Errorf("%w: username is required", domain.ErrValidation))
	case utf8.RuneCountInString(name) > maxNameLength:
		err = errors.Join(err, fmt.Errorf("%w: username is too long", domain.ErrValidation))
	case !namePattern.MatchString(name):
		err = errors.Join(err, fmt.Errorf("%w: username must start with a letter and contain only letters, digits and underscores", domain.ErrValidation))
	}
	if password == "" {
		err = errors.Join(err, fmt.Errorf("%w: password is required", domain.ErrValidation))
	}
	return err
}

// Login checks the password and returns the user. Any mismatch yields ErrNotAuthorized.
func (s *Service) Login(ctx context.Context, name string, password string) (users.User, error) {
	user, secret, err := s.storage.GetUserSecret(ctx, normalize.Name(name))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return users.User{}, ErrNotAuthorized
		}
		return users.User{}, err
	}
	given := generateSecret(password, s.cfg.PasswordPepper, secret.Salt)
	if subtle.ConstantTimeCompare(given.PasswordHash, secret.PasswordHash) != 1 {
		return users.User{}, ErrNotAuthorized
	}
	return user, nil
}

// SignIn checks the password and issues a bearer token.
func (s *Service) SignIn(ctx context.Context, name string, password string) (string, time.Time, error) {
	user, err := s.Login(ctx, name, password)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.GenerateToken(user.ID)
}

func (s *Service) GenerateToken(userID int64) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(s.cfg.TokenTTL).UTC().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		ExpiresAt: expirationTime.Unix(),
		IssuedAt:  now.Unix(),
		Subject:   strconv.FormatInt(userID, 10),
	})
	tokenString, err := token.SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

// Validate resolves an Authorization header value, either "Basic base64(name:password)" or
// "Bearer <token>". Every failure reports false and nothing else.
func (s *Service) Validate(ctx context.Context, header string) (users.User, bool) {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return users.User{}, false
	}
	credential = strings.TrimSpace(credential)

	var (
		user users.User
		err  error
	)
	switch strings.ToLower(scheme) {
	case "basic":
		user, err = s.validateBasic(ctx, credential)
	case "bearer":
		user, err = s.validateToken(ctx, credential)
	default:
		return users.User{}, false
	}
	if err != nil {
		if !errors.Is(err, ErrNotAuthorized) {
			s.log.WithError(err).Warn("credential check failed")
		}
		return users.User{}, false
	}
	return user, true
}

func (s *Service) validateBasic(ctx context.Context, credential string) (users.User, error) {
	decoded, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return users.User{}, ErrNotAuthorized
	}
	name, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return users.User{}, ErrNotAuthorized
	}
	return s.Login(ctx, name, password)
}

func (s *Service) validateToken(ctx context.Context, tokenString string) (users.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.StandardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrNotAuthorized
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return users.User{}, ErrNotAuthorized
	}
	claims, ok := token.Claims.(*jwt.StandardClaims)
	if !ok {
		return users.User{}, ErrNotAuthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return users.User{}, ErrNotAuthorized
	}
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return users.User{}, ErrNotAuthorized
		}
		return users.User{}, err
	}
	return user, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func generateSecret(password string, pepper string, salt []byte) users.Secret {
	sha := sha256.New()
	sha.Write([]byte(pepper + password))

	sha.Write(salt)
	return users.Secret{
		PasswordHash: sha.Sum(nil),
		Salt:         salt,
	}
}
