// Package auth handles account registration, login, and the signed tokens
// clients present when opening a realtime session.
package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is how long an issued token stays valid.
const tokenTTL = 7 * 24 * time.Hour

const minPasswordLength = 6

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is the account record the service works with.
type User struct {
	ID           uint
	Username     string
	PasswordHash string
}

// UserStore is the persistence surface the service needs. FindByUsername
// reports found=false for unknown names rather than an error.
type UserStore interface {
	CreateUser(username, passwordHash string) (User, error)
	FindByUsername(username string) (User, bool, error)
}

// Claims is what a verified token asserts about its bearer.
type Claims struct {
	UserID   uint
	Username string
}

// Service issues and verifies HMAC-signed tokens backed by bcrypt password
// hashes.
type Service struct {
	users  UserStore
	secret []byte
	logger *log.Logger
	now    func() time.Time
}

// NewService wires an auth service over the given store and signing secret.
func NewService(users UserStore, secret string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a new account and returns it with a fresh token.
func (s *Service) Register(username, password string) (User, string, error) {
	if username == "" || password == "" {
		return User{}, "", ErrMissingCredentials
	}
	if len(password) < minPasswordLength {
		return User{}, "", ErrPasswordTooShort
	}
	if _, found, err := s.users.FindByUsername(username); err != nil {
		return User{}, "", fmt.Errorf("look up username: %w", err)
	} else if found {
		return User{}, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(username, string(hash))
	if err != nil {
		return User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}
	s.logger.Printf("registered user %s", username)
	return user, token, nil
}

// Login checks the password and returns the account with a fresh token.
// Unknown usernames and wrong passwords are indistinguishable to callers.
func (s *Service) Login(username, password string) (User, string, error) {
	if username == "" || password == "" {
		return User{}, "", ErrMissingCredentials
	}
	user, found, err := s.users.FindByUsername(username)
	if err != nil {
		return User{}, "", fmt.Errorf("look up username: %w", err)
	}
	if !found {
		return User{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Verify parses and validates a token, returning the claims it carries.
func (s *Service) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	userID, _ := claims["userId"].(float64)
	if username == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uint(userID), Username: username}, nil
}

func (s *Service) issueToken(user User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":   user.ID,
		"username": user.Username,
		"exp":      s.now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
