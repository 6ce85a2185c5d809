package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocktrack/stocktrack/internal/shared"
)

type fakeCredentialRepo struct {
	users map[string]User
}

func (f *fakeCredentialRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeCredentialRepo{users: map[string]User{
		"a@b.test": {ID: 1, Email: "a@b.test", Role: shared.RoleStaff, IsActive: true, PasswordHash: string(hash)},
	}}
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "a@b.test", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(context.Background(), "a@b.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "missing@b.test", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
