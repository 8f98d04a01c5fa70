package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_RoundTripsBody(t *testing.T) {
	body := RefereeRegisterRequest{
		DisplayName: "referee-1",
		Endpoint:    "http://localhost:7100",
		Version:     "1.0.0",
		GameTypes:   []string{GameTypeEvenOdd},
	}

	env, err := NewEnvelope(MsgRefereeRegisterRequest, FormatSender(RoleReferee, "unregistered"), body)
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, env.Protocol)
	assert.Equal(t, MsgRefereeRegisterRequest, env.MessageType)
	assert.NotEmpty(t, env.Timestamp)

	var decoded RefereeRegisterRequest
	require.NoError(t, env.DecodeBody(&decoded))
	assert.Equal(t, body, decoded)
}

func TestEnvelope_DecodeBody_EmptyIsError(t *testing.T) {
	var env Envelope
	var v RefereeRegisterRequest
	assert.Error(t, env.DecodeBody(&v))
}

func TestFormatSender_ParseSender_RoundTrip(t *testing.T) {
	sender := FormatSender(RolePlayer, "p-42")
	role, id, err := ParseSender(sender)
	require.NoError(t, err)
	assert.Equal(t, RolePlayer, role)
	assert.Equal(t, "p-42", id)
}

func TestParseSender_Malformed(t *testing.T) {
	_, _, err := ParseSender("not-a-sender")
	assert.Error(t, err)

	_, _, err = ParseSender(":missing-role")
	assert.Error(t, err)

	_, _, err = ParseSender("referee:")
	assert.Error(t, err)
}

func TestFormatTime_ParseTime_RoundTrip(t *testing.T) {
	now := mustParse(t, "20260115T120000Z")
	formatted := FormatTime(now)
	assert.Equal(t, "20260115T120000Z", formatted)

	parsed, err := ParseTime(formatted)
	require.NoError(t, err)
	assert.True(t, now.Equal(parsed))
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := ParseTime(s)
	require.NoError(t, err)
	return tm
}
