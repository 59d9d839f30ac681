package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := SignToken("secret", userID, time.Minute)
	require.NoError(t, err)

	got, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := SignToken("secret", uuid.New(), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := SignToken("secret", uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleDoctor.Valid())
	assert.True(t, RolePatient.Valid())
	assert.False(t, Role("nurse").Valid())
}

func TestCanManage(t *testing.T) {
	assert.True(t, Identity{Role: RoleAdmin}.CanManage())
	assert.True(t, Identity{Role: RolePatient, Elevated: true}.CanManage())
	assert.True(t, Identity{Role: RoleDoctor}.CanManage())
	assert.False(t, Identity{Role: RolePatient}.CanManage())
}
