package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	createFunc        func(ctx context.Context, u *user.User) (int64, error)
	getByIDFunc       func(ctx context.Context, id int64) (*user.User, error)
	getByUsernameFunc func(ctx context.Context, username string) (*user.User, error)
	listFunc          func(ctx context.Context) ([]user.User, error)
	getProfileFunc    func(ctx context.Context, userID int64) (*user.Profile, error)
	updateProfileFunc func(ctx context.Context, userID int64, update user.ProfileUpdate) error
	getAddressFunc    func(ctx context.Context, userID int64) (*user.Address, error)
}

func (m *mockRepository) Create(ctx context.Context, u *user.User) (int64, error) {
	return m.createFunc(ctx, u)
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return m.getByUsernameFunc(ctx, username)
}

func (m *mockRepository) List(ctx context.Context) ([]user.User, error) {
	return m.listFunc(ctx)
}

func (m *mockRepository) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	return m.getProfileFunc(ctx, userID)
}

func (m *mockRepository) UpdateProfile(ctx context.Context, userID int64, update user.ProfileUpdate) error {
	return m.updateProfileFunc(ctx, userID, update)
}

func (m *mockRepository) GetDefaultAddress(ctx context.Context, userID int64) (*user.Address, error) {
	return m.getAddressFunc(ctx, userID)
}

func TestUserService_Register(t *testing.T) {
	t.Run("hashes_password_with_bcrypt", func(t *testing.T) {
		var stored string
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (int64, error) {
				stored = u.PasswordHash
				u.ID = 1
				return 1, nil
			},
		}
		svc := user.NewService(repo)

		got, err := svc.Register(context.Background(), &user.User{
			Username: "alice", Email: "alice@example.com",
		}, "s3cret")

		assert.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
		assert.NotEqual(t, "s3cret", stored)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("s3cret")))
	})

	t.Run("empty_password", func(t *testing.T) {
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (int64, error) {
				t.Fatal("Create should not be called without a password")
				return 0, nil
			},
		}
		svc := user.NewService(repo)

		_, err := svc.Register(context.Background(), &user.User{Username: "alice"}, "")
		assert.True(t, errors.Is(err, user.ErrPasswordRequired))
	})

	t.Run("duplicate_email", func(t *testing.T) {
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (int64, error) {
				return 0, user.ErrEmailExists
			},
		}
		svc := user.NewService(repo)

		_, err := svc.Register(context.Background(), &user.User{Username: "alice"}, "s3cret")
		assert.True(t, errors.Is(err, user.ErrEmailExists))
	})

	t.Run("duplicate_username", func(t *testing.T) {
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (int64, error) {
				return 0, user.ErrUserExists
			},
		}
		svc := user.NewService(repo)

		_, err := svc.Register(context.Background(), &user.User{Username: "alice"}, "s3cret")
		assert.True(t, errors.Is(err, user.ErrUserExists))
	})
}

func TestUserService_GetProfile(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		repo := &mockRepository{
			getProfileFunc: func(ctx context.Context, userID int64) (*user.Profile, error) {
				return nil, user.ErrNotFound
			},
		}
		svc := user.NewService(repo)

		_, err := svc.GetProfile(context.Background(), 7)
		assert.True(t, errors.Is(err, user.ErrNotFound))
	})

	t.Run("with_default_address", func(t *testing.T) {
		want := &user.Profile{
			User: user.User{ID: 7, Username: "alice", Email: "alice@example.com", Roles: []string{user.RoleBuyer}},
			Address: &user.Address{
				ID: 3, UserID: 7, Label: "Home", Line1: "1 Main St", City: "Springfield",
				PostalCode: "12345", Country: "US", IsDefault: true,
			},
		}
		repo := &mockRepository{
			getProfileFunc: func(ctx context.Context, userID int64) (*user.Profile, error) {
				return want, nil
			},
		}
		svc := user.NewService(repo)

		got, err := svc.GetProfile(context.Background(), 7)
		assert.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(user.User{}, "CreatedAt", "UpdatedAt")); diff != "" {
			t.Errorf("profile mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	tests := []struct {
		name      string
		repoErr   error
		wantErrIs error
	}{
		{name: "success"},
		{name: "not_found", repoErr: user.ErrNotFound, wantErrIs: user.ErrNotFound},
		{name: "email_taken", repoErr: user.ErrEmailExists, wantErrIs: user.ErrEmailExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUpdate user.ProfileUpdate
			repo := &mockRepository{
				updateProfileFunc: func(ctx context.Context, userID int64, update user.ProfileUpdate) error {
					gotUpdate = update
					return tt.repoErr
				},
			}
			svc := user.NewService(repo)

			update := user.ProfileUpdate{
				FirstName: "Alice", LastName: "Smith", Email: "alice@example.com",
				Line1: "1 Main St", City: "Springfield",
			}
			err := svc.UpdateProfile(context.Background(), 7, update)

			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, update, gotUpdate)
		})
	}
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id int64) (*user.User, error) {
			return nil, user.ErrNotFound
		},
	}
	svc := user.NewService(repo)

	_, err := svc.GetUserByID(context.Background(), 7)
	assert.True(t, errors.Is(err, user.ErrNotFound))
}
