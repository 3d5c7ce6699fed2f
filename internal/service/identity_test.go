package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"localchat/internal/domain"
	"localchat/internal/service"
	"localchat/internal/store/unavailable"
	"localchat/internal/testutil"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserStore) UpdateLastSeen(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		users := new(MockUserStore)
		sessions := new(MockSessionStore)
		svc := service.NewIdentity(users, sessions, testutil.MakeNoopLogger())

		users.On("GetByUsername", mock.Anything, "newuser").Return(nil, nil)
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.Password == "Password1"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 1
		}).Return(nil)
		sessions.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
			return s.ID == domain.SessionKey && s.User.Username == "newuser"
		})).Return(nil)

		user, err := svc.Register(context.Background(), "newuser", "Password1", nil)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(1), user.ID)
		assert.Contains(t, user.PhotoURL, "name=newuser")
		assert.True(t, svc.IsAuthenticated())
		users.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		users := new(MockUserStore)
		sessions := new(MockSessionStore)
		svc := service.NewIdentity(users, sessions, testutil.MakeNoopLogger())

		users.On("GetByUsername", mock.Anything, "existing").Return(&domain.User{Username: "existing"}, nil)

		user, err := svc.Register(context.Background(), "existing", "Password1", nil)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.False(t, svc.IsAuthenticated())
	})

	t.Run("UsernameTooShort", func(t *testing.T) {
		svc := service.NewIdentity(new(MockUserStore), new(MockSessionStore), testutil.MakeNoopLogger())

		user, err := svc.Register(context.Background(), "ab", "secret1", nil)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("PasswordTooShort", func(t *testing.T) {
		svc := service.NewIdentity(new(MockUserStore), new(MockSessionStore), testutil.MakeNoopLogger())

		user, err := svc.Register(context.Background(), "alice", "12345", nil)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		store := unavailable.NewStore()
		svc := service.NewIdentity(store.Users, store.Sessions, testutil.MakeNoopLogger())

		user, err := svc.Register(context.Background(), "alice", "secret1", nil)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}

func TestLogin(t *testing.T) {
	stored := func() *domain.User {
		return &domain.User{
			ID:       1,
			Username: "alice",
			Password: "secret1",
			LastSeen: time.Now().Add(-time.Hour),
		}
	}

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserStore)
		sessions := new(MockSessionStore)
		svc := service.NewIdentity(users, sessions, testutil.MakeNoopLogger())

		users.On("GetByUsername", mock.Anything, "alice").Return(stored(), nil)
		users.On("UpdateLastSeen", mock.Anything, int64(1), mock.Anything).Return(nil)
		sessions.On("Put", mock.Anything, mock.Anything).Return(nil)

		user, err := svc.Login(context.Background(), "alice", "secret1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.WithinDuration(t, time.Now(), user.LastSeen, time.Minute)
		assert.True(t, svc.IsAuthenticated())
		users.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		users := new(MockUserStore)
		svc := service.NewIdentity(users, new(MockSessionStore), testutil.MakeNoopLogger())

		users.On("GetByUsername", mock.Anything, "ghost").Return(nil, nil)

		user, err := svc.Login(context.Background(), "ghost", "secret1")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		users := new(MockUserStore)
		svc := service.NewIdentity(users, new(MockSessionStore), testutil.MakeNoopLogger())

		users.On("GetByUsername", mock.Anything, "alice").Return(stored(), nil)

		user, err := svc.Login(context.Background(), "alice", "wrong")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrAuth)
		assert.False(t, svc.IsAuthenticated())
	})
}

func TestLogout(t *testing.T) {
	users := new(MockUserStore)
	sessions := new(MockSessionStore)
	svc := service.NewIdentity(users, sessions, testutil.MakeNoopLogger())

	sessions.On("Delete", mock.Anything).Return(nil)

	// Logging out while logged out is a no-op.
	require.NoError(t, svc.Logout(context.Background()))
	assert.False(t, svc.IsAuthenticated())

	users.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{ID: 1, Username: "alice", Password: "secret1"}, nil)
	users.On("UpdateLastSeen", mock.Anything, int64(1), mock.Anything).Return(nil)
	sessions.On("Put", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.True(t, svc.IsAuthenticated())

	require.NoError(t, svc.Logout(context.Background()))
	assert.False(t, svc.IsAuthenticated())
}

func TestCurrentUser(t *testing.T) {
	t.Run("ColdCacheReadsSessionSlot", func(t *testing.T) {
		sessions := new(MockSessionStore)
		svc := service.NewIdentity(new(MockUserStore), sessions, testutil.MakeNoopLogger())

		sessions.On("Get", mock.Anything).Return(&domain.Session{
			ID:   domain.SessionKey,
			User: domain.User{ID: 1, Username: "alice"},
		}, nil).Once()

		u, err := svc.CurrentUser(context.Background())
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)

		// Warm now: no second store read.
		u, err = svc.CurrentUser(context.Background())
		require.NoError(t, err)
		require.NotNil(t, u)
		sessions.AssertExpectations(t)
	})

	t.Run("NoSession", func(t *testing.T) {
		sessions := new(MockSessionStore)
		svc := service.NewIdentity(new(MockUserStore), sessions, testutil.MakeNoopLogger())

		sessions.On("Get", mock.Anything).Return(nil, nil)

		u, err := svc.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.False(t, svc.IsAuthenticated())
	})
}

func TestSearchUsers(t *testing.T) {
	t.Run("BlankQueryReturnsNothing", func(t *testing.T) {
		users := new(MockUserStore)
		svc := service.NewIdentity(users, new(MockSessionStore), testutil.MakeNoopLogger())

		res, err := svc.SearchUsers(context.Background(), "   ")
		require.NoError(t, err)
		assert.Empty(t, res)
		users.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("CaseInsensitiveSubstring", func(t *testing.T) {
		users := new(MockUserStore)
		svc := service.NewIdentity(users, new(MockSessionStore), testutil.MakeNoopLogger())

		users.On("List", mock.Anything).Return([]*domain.User{
			{Username: "Alice"},
			{Username: "bob"},
			{Username: "malice"},
		}, nil)

		res, err := svc.SearchUsers(context.Background(), "ALI")
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "Alice", res[0].Username)
		assert.Equal(t, "malice", res[1].Username)
	})
}
