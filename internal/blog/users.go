package blog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("blog: username already taken")
	ErrInvalidCredentials = errors.New("blog: invalid username or password")
	ErrUserNotFound       = errors.New("blog: user not found")
	ErrInvalidInput       = errors.New("blog: invalid input")
)

const minPasswordLen = 8

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`

	hash string
}

// Users is an in-memory account store keyed by username.
type Users struct {
	mu     sync.RWMutex
	byName map[string]*User
	byID   map[string]*User
	cost   int
}

// NewUsers returns an empty store hashing with cost. A cost below
// bcrypt.MinCost uses bcrypt.DefaultCost.
func NewUsers(cost int) *Users {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Users{
		byName: make(map[string]*User),
		byID:   make(map[string]*User),
		cost:   cost,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash reports whether password matches hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	return nil
}

// Register creates an account.
func (u *Users) Register(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return User{}, err
	}

	hash, err := HashPassword(password, u.cost)
	if err != nil {
		return User{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, taken := u.byName[username]; taken {
		return User{}, ErrUserExists
	}
	user := &User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
		hash:      hash,
	}
	u.byName[username] = user
	u.byID[user.ID] = user
	return *user, nil
}

// Authenticate returns the user when password matches.
func (u *Users) Authenticate(username, password string) (User, error) {
	u.mu.RLock()
	var snapshot User
	user, ok := u.byName[strings.TrimSpace(username)]
	if ok {
		snapshot = *user
	}
	u.mu.RUnlock()

	if !ok || !CheckPasswordHash(password, snapshot.hash) {
		return User{}, ErrInvalidCredentials
	}
	return snapshot, nil
}

// Get returns the user with id.
func (u *Users) Get(id string) (User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return *user, nil
}

// UpdatePassword replaces the password of id after checking oldPassword.
func (u *Users) UpdatePassword(id, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	u.mu.RLock()
	user, ok := u.byID[id]
	var current string
	if ok {
		current = user.hash
	}
	u.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}
	if !CheckPasswordHash(oldPassword, current) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword, u.cost)
	if err != nil {
		return err
	}

	u.mu.Lock()
	user.hash = hash
	u.mu.Unlock()
	return nil
}
