package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/utils"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*entity.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == entity.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*entity.User, 0, len(f.users))
	for _, u := range f.users {
		items = append(items, u)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := f.GetByEmail(ctx, email)
	return u != nil, err
}

type sentCode struct {
	to   string
	code string
}

type fakeSender struct {
	sent []sentCode
}

func (f *fakeSender) SendVerificationCode(_ context.Context, to, code string) {
	f.sent = append(f.sent, sentCode{to: to, code: code})
}

func (f *fakeSender) last() sentCode {
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	svc    *Service
	users  *fakeUsers
	sender *fakeSender
	jwt    *utils.JWTManager
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  newFakeUsers(),
		sender: &fakeSender{},
		jwt:    utils.NewJWTManager("test-secret", "unibook", time.Hour),
		now:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.users, f.jwt, f.sender, func(email string) bool {
		return email == "boss@unibook.dev"
	}, 5*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestRegisterSendsCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, " Alice@Example.com ", "secret1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsVerified)
	assert.Equal(t, entity.UserRoleMember, user.Role)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "alice@example.com", f.sender.last().to)
	assert.Len(t, f.sender.last().code, 6)

	_, err = f.svc.Register(ctx, "alice@example.com", "other12", "")
	assert.True(t, errors.Is(err, apperrors.ErrEmailRegistered))
}

func TestVerifyIssuesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "a@b.com", "000000x")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCode))

	res, err := f.svc.Verify(ctx, "a@b.com", f.sender.last().code)
	require.NoError(t, err)
	assert.True(t, res.User.IsVerified)

	claims, err := f.jwt.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)

	// 已验证用户再次验证直接签发
	again, err := f.svc.Verify(ctx, "a@b.com", "whatever")
	require.NoError(t, err)
	assert.NotEmpty(t, again.Token)
}

func TestVerifyExpiredAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Verify(ctx, "nobody@b.com", "123456")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))

	_, err = f.svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)
	code := f.sender.last().code

	f.now = f.now.Add(6 * time.Minute)
	_, err = f.svc.Verify(ctx, "a@b.com", code)
	assert.True(t, errors.Is(err, apperrors.ErrCodeExpired))
}

func TestResendCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ResendCode(ctx, "nobody@b.com")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))

	_, err = f.svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)
	first := f.sender.last().code

	f.now = f.now.Add(10 * time.Minute)
	verified, err := f.svc.ResendCode(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, verified)
	require.Len(t, f.sender.sent, 2)

	second := f.sender.last().code
	if first != second {
		_, err = f.svc.Verify(ctx, "a@b.com", first)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCode))
	}
	_, err = f.svc.Verify(ctx, "a@b.com", second)
	require.NoError(t, err)

	verified, err = f.svc.ResendCode(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Len(t, f.sender.sent, 2)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "a@b.com", "secret1")
	assert.True(t, errors.Is(err, apperrors.ErrEmailNotVerified))

	_, err = f.svc.Verify(ctx, "a@b.com", f.sender.last().code)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "a@b.com", "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrBadCredentials))
	_, err = f.svc.Login(ctx, "missing@b.com", "secret1")
	assert.True(t, errors.Is(err, apperrors.ErrBadCredentials))

	res, err := f.svc.Login(ctx, "A@B.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, entity.UserRoleMember, res.User.Role)

	stored, err := f.svc.CurrentUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginPromotesAdminEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, "boss@unibook.dev", "secret1", "Boss")
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, "boss@unibook.dev", f.sender.last().code)
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "boss@unibook.dev", "secret1")
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin())

	claims, err := f.jwt.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, string(entity.UserRoleAdmin), claims.Role)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CurrentUser(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	_, err = f.svc.CurrentUser(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
}
