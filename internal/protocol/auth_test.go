package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStore_VerifyMatchesExactToken(t *testing.T) {
	store := NewTokenStore()
	sender := FormatSender(RoleManager, "manager")
	store.Put(sender, "tok_mgrmanager_abc123")

	assert.True(t, store.Verify(sender, "tok_mgrmanager_abc123"))
	assert.False(t, store.Verify(sender, "tok_mgrmanager_wrong"))
	assert.False(t, store.Verify(sender, ""))
}

func TestTokenStore_VerifyUnknownSenderFails(t *testing.T) {
	store := NewTokenStore()
	assert.False(t, store.Verify(FormatSender(RolePlayer, "p1"), "anything"))
}

func TestTokenStore_DeleteForgetsSender(t *testing.T) {
	store := NewTokenStore()
	sender := FormatSender(RoleReferee, "r1")
	store.Put(sender, "tok_refr1_xyz")
	assert.True(t, store.Verify(sender, "tok_refr1_xyz"))

	store.Delete(sender)
	assert.False(t, store.Verify(sender, "tok_refr1_xyz"))
}

func TestNewAuthToken_UniqueAndPrefixed(t *testing.T) {
	t1, err := NewAuthToken(RolePlayer, "p1")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Contains(t1, "tok_ply")

	t2, err := NewAuthToken(RolePlayer, "p1")
	assert.NoError(err)
	assert.NotEqual(t1, t2)
}
