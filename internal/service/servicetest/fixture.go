package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/crypto"
	"actiapp.dev/backend/internal/pkg/token"
	"actiapp.dev/backend/internal/service"
)

// MemLocker is a per-user in-process SessionLocker.
type MemLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	busy  map[string]bool
}

func NewMemLocker() *MemLocker {
	return &MemLocker{locks: map[string]*sync.Mutex{}, busy: map[string]bool{}}
}

// SetBusy makes every following Lock for the user fail as if another instance held it.
func (l *MemLocker) SetBusy(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy[userID] = true
}

func (l *MemLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	if l.busy[userID] {
		l.mu.Unlock()
		return nil, acterr.ErrSessionBusy
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type MemEvents struct {
	mu     sync.Mutex
	events []*service.SessionEvent
}

func (p *MemEvents) Publish(ctx context.Context, events ...*service.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

// Types lists the published event types in order.
func (p *MemEvents) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.events, func(e *service.SessionEvent, _ int) string { return e.Type })
}

// PassthroughUserCache never caches.
type PassthroughUserCache struct{}

func (PassthroughUserCache) MutexGetSet(ctx context.Context, key string, dest *model.User, valueFunc func() (*model.User, error), expire time.Duration) (bool, error) {
	u, err := valueFunc()
	if err != nil {
		return true, err
	}
	*dest = *u
	return true, nil
}

func (PassthroughUserCache) Delete(ctx context.Context, key string) error {
	return nil
}

// T0 is the instant fixture clocks start at.
var T0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// Fixture wires every service onto the same in-memory store and fake clock.
type Fixture struct {
	Store  *MemStore
	Locker *MemLocker
	Events *MemEvents
	Clock  clockwork.FakeClock
	Issuer *token.Issuer

	Activity     *service.Activity
	Auth         *service.Auth
	Organization *service.Organization
	User         *service.User
}

func NewFixture(visibility, stopMode string) *Fixture {
	f := &Fixture{
		Store:  NewMemStore(),
		Locker: NewMemLocker(),
		Events: &MemEvents{},
		Clock:  clockwork.NewFakeClockAt(T0),
	}
	f.Issuer = token.NewIssuer(token.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "actiapp", TTL: constant.TokenTTL}, f.Clock)
	pol := policy.New(visibility)

	f.Activity = &service.Activity{
		Repo:     f.Store,
		Tx:       f.Store,
		Locker:   f.Locker,
		Events:   f.Events,
		Policy:   pol,
		Clock:    f.Clock,
		StopMode: stopMode,

		UniqueViolation: UniqueViolation,
	}
	f.Auth = &service.Auth{
		Users:  f.Store,
		Orgs:   f.Store,
		Tx:     f.Store,
		Hasher: crypto.NewPasswordHasher(bcrypt.MinCost),
		Tokens: f.Issuer,
		Policy: pol,
		Clock:  f.Clock,
	}
	f.User = &service.User{Repo: f.Store, Cache: PassthroughUserCache{}}
	f.Organization = &service.Organization{
		Repo:   f.Store,
		Users:  f.Store,
		User:   f.User,
		Tx:     f.Store,
		Policy: pol,
		Clock:  f.Clock,
	}
	return f
}
