package pairing

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hallgard/authgate/internal/cache"
	"github.com/hallgard/authgate/internal/domain/auth"
	"github.com/hallgard/authgate/internal/domain/role"
	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// fakePairingRepo keeps pairings in a map keyed by auth key
type fakePairingRepo struct {
	byKey  map[string]*Pairing
	nextID uint
}

func newFakePairingRepo() *fakePairingRepo {
	return &fakePairingRepo{byKey: make(map[string]*Pairing)}
}

func (r *fakePairingRepo) Create(authKey string) error {
	r.nextID++
	r.byKey[authKey] = &Pairing{ID: r.nextID, AuthKey: authKey, CreatedAt: time.Now()}
	return nil
}

func (r *fakePairingRepo) FindByKey(authKey string) (*Pairing, error) {
	p, ok := r.byKey[authKey]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePairingRepo) AttachChat(id uint, chatID string) error {
	for _, p := range r.byKey {
		if p.ID == id {
			p.ChatID = &chatID
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePairingRepo) WithTx(tx *gorm.DB) Repository { return r }

// fakeUserRepo keeps users in memory keyed by id and telegram chat id
type fakeUserRepo struct {
	byID   map[uint]*user.User
	byChat map[string]*user.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[uint]*user.User), byChat: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(u *user.User) error {
	r.nextID++
	u.ID = r.nextID
	r.byID[u.ID] = u
	if u.TelegramID != nil {
		r.byChat[*u.TelegramID] = u
	}
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*user.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByLogin(login string) (*user.User, error) {
	for _, u := range r.byID {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByTelegramID(chatID string) (*user.User, error) {
	u, ok := r.byChat[chatID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Update(u *user.User) error {
	r.byID[u.ID] = u
	if u.TelegramID != nil {
		r.byChat[*u.TelegramID] = u
	}
	return nil
}

func (r *fakeUserRepo) WithTx(tx *gorm.DB) user.Repository { return r }

// MockRoleRepository is a mock implementation of role.Repository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) FindByName(name string) (*role.Role, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*role.Role), args.Error(1)
}

func (m *MockRoleRepository) WithTx(tx *gorm.DB) role.Repository { return m }

// passthroughTx runs the unit of work against the fixture repositories
// without a real database transaction
type passthroughTx struct {
	pairings Repository
	users    user.Repository
	roles    role.Repository
}

func (t *passthroughTx) Do(_ context.Context, fn func(Repository, user.Repository, role.Repository) error) error {
	return fn(t.pairings, t.users, t.roles)
}

type memoryBlacklist struct {
	tokens map[string]bool
}

func (b *memoryBlacklist) Exists(token string) (bool, error) { return b.tokens[token], nil }
func (b *memoryBlacklist) Insert(token string) error         { b.tokens[token] = true; return nil }
func (b *memoryBlacklist) Delete(token string) error         { delete(b.tokens, token); return nil }

type fixture struct {
	service  *Service
	pairings *fakePairingRepo
	users    *fakeUserRepo
	roles    *MockRoleRepository
	sessions session.Store
	tokens   *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys, err := auth.NewKeyStore(priv, "test")
	require.NoError(t, err)

	pairings := newFakePairingRepo()
	users := newFakeUserRepo()
	roles := new(MockRoleRepository)
	sessions := session.NewStore(cache.NewMemoryStore(), time.Hour, 5)
	blacklist := &memoryBlacklist{tokens: make(map[string]bool)}
	tokens := auth.NewTokenService(keys, users, sessions, blacklist, "test-issuer", 15*time.Minute)
	tx := &passthroughTx{pairings: pairings, users: users, roles: roles}

	return &fixture{
		service:  NewService(tx, pairings, users, sessions, tokens, "authgate_bot"),
		pairings: pairings,
		users:    users,
		roles:    roles,
		sessions: sessions,
		tokens:   tokens,
	}
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)

	authKey, link, err := f.service.Generate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, authKey)
	assert.Equal(t, "https://t.me/authgate_bot?start="+authKey, link)

	p, err := f.pairings.FindByKey(authKey)
	require.NoError(t, err)
	assert.Nil(t, p.ChatID, "fresh pairing has no chat attached")
}

func TestService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key is rejected", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.Confirm(ctx, "missing", "chat-1")
		assert.ErrorIs(t, err, auth.ErrPairingNotFound)
	})

	t.Run("first contact provisions a minimal identity", func(t *testing.T) {
		f := newFixture(t)
		f.roles.On("FindByName", "user").Return(&role.Role{ID: 1, Name: "user"}, nil)

		authKey, _, err := f.service.Generate(ctx)
		require.NoError(t, err)

		require.NoError(t, f.service.Confirm(ctx, authKey, "chat-1"))

		u, err := f.users.FindByTelegramID("chat-1")
		require.NoError(t, err)
		assert.Equal(t, "user_chat-1", u.Name)
		assert.Equal(t, []string{"user"}, u.RoleNames())
		assert.NotEmpty(t, u.Password)
		assert.Contains(t, u.Login, "@tg.local")

		p, err := f.pairings.FindByKey(authKey)
		require.NoError(t, err)
		require.NotNil(t, p.ChatID)
		assert.Equal(t, "chat-1", *p.ChatID)
	})

	t.Run("known chat id reuses the existing identity", func(t *testing.T) {
		f := newFixture(t)

		chatID := "chat-2"
		existing := &user.User{Login: "bob", Name: "Bob", TelegramID: &chatID}
		require.NoError(t, f.users.Create(existing))

		authKey, _, err := f.service.Generate(ctx)
		require.NoError(t, err)

		require.NoError(t, f.service.Confirm(ctx, authKey, chatID))

		u, err := f.users.FindByTelegramID(chatID)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, u.ID, "no second identity should be created")
		f.roles.AssertNotCalled(t, "FindByName", "user")
	})
}

func TestService_CompleteLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key is invalid", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.CompleteLogin(ctx, "missing")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("unconfirmed key has no identity yet", func(t *testing.T) {
		f := newFixture(t)

		authKey, _, err := f.service.Generate(ctx)
		require.NoError(t, err)

		_, err = f.service.CompleteLogin(ctx, authKey)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("confirmed key yields a working token and session", func(t *testing.T) {
		f := newFixture(t)
		f.roles.On("FindByName", "user").Return(&role.Role{ID: 1, Name: "user"}, nil)

		authKey, _, err := f.service.Generate(ctx)
		require.NoError(t, err)
		require.NoError(t, f.service.Confirm(ctx, authKey, "chat-3"))

		raw, err := f.service.CompleteLogin(ctx, authKey)
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		identity, err := f.tokens.Verify(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, identity.User.TelegramID)
		assert.Equal(t, "chat-3", *identity.User.TelegramID)

		sess, err := f.sessions.Get(ctx, identity.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "telegram_chat-3", sess.Device.DeviceID)
		assert.Equal(t, "Telegram Bot", sess.Device.DeviceName)
	})

	t.Run("a confirmed key stays usable for repeated logins", func(t *testing.T) {
		f := newFixture(t)
		f.roles.On("FindByName", "user").Return(&role.Role{ID: 1, Name: "user"}, nil)

		authKey, _, err := f.service.Generate(ctx)
		require.NoError(t, err)
		require.NoError(t, f.service.Confirm(ctx, authKey, "chat-4"))

		first, err := f.service.CompleteLogin(ctx, authKey)
		require.NoError(t, err)
		second, err := f.service.CompleteLogin(ctx, authKey)
		require.NoError(t, err)

		assert.NotEmpty(t, first)
		assert.NotEmpty(t, second)
	})
}
