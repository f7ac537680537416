package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type localAccount struct {
	identity Identity
	hash     []byte
}

// LocalProvider keeps bcrypt-hashed accounts in memory. It backs the
// development setup where no Firebase project is configured.
type LocalProvider struct {
	mu       sync.RWMutex
	accounts map[string]*localAccount // by lower-cased email
	byUID    map[string]*localAccount
	cost     int
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{
		accounts: make(map[string]*localAccount),
		byUID:    make(map[string]*localAccount),
		cost:     bcrypt.DefaultCost,
	}
}

func (p *LocalProvider) CreateAccount(_ context.Context, email, password, displayName string) (*Identity, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[key]; ok {
		return nil, ErrEmailTaken
	}
	acc := &localAccount{
		identity: Identity{UID: uuid.NewString(), Email: key, DisplayName: displayName},
		hash:     hash,
	}
	p.accounts[key] = acc
	p.byUID[acc.identity.UID] = acc
	id := acc.identity
	return &id, nil
}

func (p *LocalProvider) Authenticate(_ context.Context, email, password string) (*Identity, error) {
	p.mu.RLock()
	acc, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	id := acc.identity
	return &id, nil
}

func (p *LocalProvider) UpdateProfile(_ context.Context, uid string, update ProfileUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.byUID[uid]
	if !ok {
		return ErrInvalidCredentials
	}
	if update.DisplayName != nil {
		acc.identity.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		photo := *update.PhotoURL
		acc.identity.PhotoURL = &photo
	}
	return nil
}

// SignOut has nothing to revoke locally; sessions are tracked by Sessions.
func (p *LocalProvider) SignOut(context.Context, string) error { return nil }

func (p *LocalProvider) VerifyIDToken(context.Context, string) (*Identity, error) {
	return nil, ErrUnsupported
}
