package middlewares_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/middlewares"
	"actiapp.dev/backend/internal/pkg/token"
	"actiapp.dev/backend/internal/server/httpserver"
)

type mapStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet bool
}

func newMapStorage() *mapStorage {
	return &mapStorage{data: map[string][]byte{}}
}

func (s *mapStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *mapStorage) Set(key string, val []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errors.New("storage unavailable")
	}
	s.data[key] = val
	return nil
}

func (s *mapStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string][]byte{}
	return nil
}

func (s *mapStorage) Close() error { return nil }

type userMap map[string]*model.User

func (m userMap) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	if u, ok := m[userID]; ok {
		return u, nil
	}
	return nil, acterr.ErrNotFound
}

var (
	t0    = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	alice = &model.User{UserID: "01HWALICE", Username: "alice", Role: constant.RoleUser}
	bob   = &model.User{UserID: "01HWBOB", Username: "bob", Role: constant.RoleUser}
)

func newIssuer(clock clockwork.Clock) *token.Issuer {
	return token.NewIssuer(token.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "actiapp-test", TTL: time.Hour}, clock)
}

func bearer(t *testing.T, issuer *token.Issuer, u *model.User) string {
	tok, _, err := issuer.Issue(u.UserID, u.Role)
	require.NoError(t, err)
	return constant.AuthorizationRealm + " " + tok
}

func authApp(issuer *token.Issuer, required bool) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpserver.ErrorHandler})
	app.Get("/whoami", middlewares.Authenticate(issuer, userMap{alice.UserID: alice, bob.UserID: bob}, required), func(c *fiber.Ctx) error {
		actor := middlewares.Actor(c)
		if actor == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(actor.UserID)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthenticate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	issuer := newIssuer(clock)
	app := authApp(issuer, true)

	status, body := get(t, app, "/whoami", bearer(t, issuer, alice))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, alice.UserID, body)

	status, _ = get(t, app, "/whoami", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/whoami", "Basic Zm9vOmJhcg==")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/whoami", constant.AuthorizationRealm+" garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	ghost := &model.User{UserID: "01HWGHOST", Role: constant.RoleUser}
	status, _ = get(t, app, "/whoami", bearer(t, issuer, ghost))
	assert.Equal(t, fiber.StatusUnauthorized, status, "token of a deleted user")

	expired := bearer(t, issuer, bob)
	clock.Advance(2 * time.Hour)
	status, _ = get(t, app, "/whoami", expired)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthenticateOptional(t *testing.T) {
	issuer := newIssuer(clockwork.NewFakeClockAt(t0))
	app := authApp(issuer, false)

	status, body := get(t, app, "/whoami", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, _ = get(t, app, "/whoami", constant.AuthorizationRealm+" garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status, "a bad token is never downgraded to anonymous")
}

func TestIdempotencyReplaysPerActor(t *testing.T) {
	issuer := newIssuer(clockwork.NewFakeClockAt(t0))
	storage := newMapStorage()
	calls := 0

	app := fiber.New(fiber.Config{ErrorHandler: httpserver.ErrorHandler})
	app.Post("/things",
		middlewares.Authenticate(issuer, userMap{alice.UserID: alice, bob.UserID: bob}, true),
		middlewares.Idempotency(&middlewares.IdempotencyConfig{
			Lifetime:  time.Hour,
			KeyHeader: constant.IdempotencyKeyHeader,
			Storage:   storage,
		}),
		func(c *fiber.Ctx) error {
			calls++
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": calls})
		})

	post := func(u *model.User, key string) (*httpResult, error) {
		req := httptest.NewRequest(fiber.MethodPost, "/things", nil)
		req.Header.Set(fiber.HeaderAuthorization, bearer(t, issuer, u))
		if key != "" {
			req.Header.Set(constant.IdempotencyKeyHeader, key)
		}
		resp, err := app.Test(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		return &httpResult{status: resp.StatusCode, body: string(body), marker: resp.Header.Get(constant.IdempotencyHeader)}, err
	}

	first, err := post(alice, "k1")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, first.status)
	assert.Equal(t, "saved", first.marker)

	again, err := post(alice, "k1")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, again.status)
	assert.Equal(t, "hit", again.marker)
	assert.Equal(t, first.body, again.body)
	assert.Equal(t, 1, calls)

	other, err := post(bob, "k1")
	require.NoError(t, err)
	assert.Equal(t, "saved", other.marker, "keys are scoped to the caller")
	assert.Equal(t, 2, calls)

	_, err = post(alice, "")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestIdempotencyKeepsResponseWhenSaveFails(t *testing.T) {
	issuer := newIssuer(clockwork.NewFakeClockAt(t0))
	storage := newMapStorage()
	storage.failSet = true
	calls := 0

	app := fiber.New(fiber.Config{ErrorHandler: httpserver.ErrorHandler})
	app.Post("/things",
		middlewares.Authenticate(issuer, userMap{alice.UserID: alice}, true),
		middlewares.Idempotency(&middlewares.IdempotencyConfig{
			Lifetime:  time.Hour,
			KeyHeader: constant.IdempotencyKeyHeader,
			Storage:   storage,
		}),
		func(c *fiber.Ctx) error {
			calls++
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": calls})
		})

	req := httptest.NewRequest(fiber.MethodPost, "/things", nil)
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, issuer, alice))
	req.Header.Set(constant.IdempotencyKeyHeader, "k1")
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"n":1}`, string(body))
	assert.Empty(t, resp.Header.Get(constant.IdempotencyHeader))
	assert.Equal(t, 1, calls)
}

type httpResult struct {
	status int
	body   string
	marker string
}

func TestRequireRole(t *testing.T) {
	issuer := newIssuer(clockwork.NewFakeClockAt(t0))
	admin := &model.User{UserID: "01HWADMIN", Role: constant.RoleAdminGeneral}

	app := fiber.New(fiber.Config{ErrorHandler: httpserver.ErrorHandler})
	app.Get("/admin",
		middlewares.Authenticate(issuer, userMap{admin.UserID: admin, alice.UserID: alice}, true),
		middlewares.RequireRole(constant.RoleAdminGeneral),
		func(c *fiber.Ctx) error { return c.SendString("ok") })

	status, _ := get(t, app, "/admin", bearer(t, issuer, admin))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = get(t, app, "/admin", bearer(t, issuer, alice))
	assert.Equal(t, fiber.StatusForbidden, status)
}
