package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testService() *Service {
	return NewService(storage.NewMemoryStorage(), "test-signing-key")
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.example.co",
		"UPPER@EXAMPLE.COM",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user @example.com",
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("abcdefg1"))
	assert.True(t, ValidatePassword("longer password 42"))

	assert.False(t, ValidatePassword("short1"), "too short")
	assert.False(t, ValidatePassword("allletters"), "no numbers")
	assert.False(t, ValidatePassword("12345678"), "no letters")
}

func TestSignUp(t *testing.T) {
	service := testService()

	user, err := service.SignUp(context.Background(), "ada", "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Equal(t, RoleMember, user.Role)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash, "password is stored hashed")

	_, err = service.SignUp(context.Background(), "bob", "not-an-email", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = service.SignUp(context.Background(), "bob", "bob@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// The email unique index rejects a second account on the same address.
	_, err = service.SignUp(context.Background(), "ada2", "ada@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestSignInAndParse(t *testing.T) {
	service := testService()

	user, err := service.SignUp(context.Background(), "ada", "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)

	access, refresh, err := service.SignIn(context.Background(), "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	parsed, err := service.ParseUserID(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)

	parsed, err = service.ParseUserID(refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	service := testService()

	_, err := service.SignUp(context.Background(), "ada", "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, _, err = service.SignIn(context.Background(), "ada@example.com", "wrongpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// An unknown account reports the same error as a wrong password.
	_, _, err = service.SignIn(context.Background(), "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseUserIDRejectsForgedTokens(t *testing.T) {
	service := testService()
	other := NewService(storage.NewMemoryStorage(), "different-key")

	user, err := service.SignUp(context.Background(), "ada", "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)

	access, _, err := service.SignIn(context.Background(), "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = other.ParseUserID(access)
	assert.Error(t, err, "a token signed with another key does not parse")

	_, err = service.ParseUserID("not.a.token")
	assert.Error(t, err)

	found, err := service.FindUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)

	_, err = service.FindUser(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
