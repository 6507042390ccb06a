package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(secret, Identity{UserID: "u1", BranchID: "B1", Role: RoleCashier}, "stock-ledger-test", 60)
	require.NoError(t, err)

	id, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", BranchID: "B1", Role: RoleCashier}, id)
}

func TestParse_Rejects(t *testing.T) {
	expired, err := Generate(secret, Identity{UserID: "u1"}, "t", -1)
	require.NoError(t, err)
	_, err = Parse(secret, expired)
	assert.Error(t, err, "token expirado")

	tok, err := Generate(secret, Identity{UserID: "u1"}, "t", 60)
	require.NoError(t, err)
	_, err = Parse("otro-secret", tok)
	assert.Error(t, err, "firma incorrecta")

	noUser, err := Generate(secret, Identity{BranchID: "B1"}, "t", 60)
	require.NoError(t, err)
	_, err = Parse(secret, noUser)
	assert.Error(t, err, "sin user_id")

	_, err = Generate("", Identity{UserID: "u1"}, "t", 60)
	assert.Error(t, err)
}
