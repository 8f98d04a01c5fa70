// Package protocol defines the wire-level types shared by every agent in
// the league: the message envelope, agent identity and auth token shapes,
// and the catalog of domain message types and error codes. It is the
// league's equivalent of a shared IDL — every RPC server and client in
// this repository imports it instead of redefining these shapes locally.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolVersion is carried on every envelope so a future breaking change
// to the wire format can be detected by either side before it causes
// confusing downstream errors.
const ProtocolVersion = "league.v2"

// Role identifies which kind of agent sent or should receive a message.
type Role string

const (
	RoleManager Role = "manager"
	RoleReferee Role = "referee"
	RolePlayer  Role = "player"
)

// MessageType enumerates the domain message types carried in envelopes,
// per the wire protocol contract.
type MessageType string

const (
	MsgRefereeRegisterRequest  MessageType = "REFEREE_REGISTER_REQUEST"
	MsgRefereeRegisterResponse MessageType = "REFEREE_REGISTER_RESPONSE"
	MsgLeagueRegisterRequest   MessageType = "LEAGUE_REGISTER_REQUEST"
	MsgLeagueRegisterResponse  MessageType = "LEAGUE_REGISTER_RESPONSE"
	MsgRoundAnnouncement       MessageType = "ROUND_ANNOUNCEMENT"
	MsgGameInvitation          MessageType = "GAME_INVITATION"
	MsgGameJoinAck             MessageType = "GAME_JOIN_ACK"
	MsgChooseParityCall        MessageType = "CHOOSE_PARITY_CALL"
	MsgChooseParityResponse    MessageType = "CHOOSE_PARITY_RESPONSE"
	MsgGameOver                MessageType = "GAME_OVER"
	MsgMatchResultReport       MessageType = "MATCH_RESULT_REPORT"
	MsgLeagueStandingsUpdate   MessageType = "LEAGUE_STANDINGS_UPDATE"
	MsgRoundCompleted          MessageType = "ROUND_COMPLETED"
	MsgLeagueCompleted         MessageType = "LEAGUE_COMPLETED"
	MsgLeagueError             MessageType = "LEAGUE_ERROR"
	MsgGameError               MessageType = "GAME_ERROR"
	MsgStartLeagueRequest      MessageType = "START_LEAGUE_REQUEST"
	MsgLeagueQueryRequest      MessageType = "LEAGUE_QUERY_REQUEST"
)

// TimeLayout is the compact ISO-8601 format mandated for envelope timestamps:
// YYYYMMDDTHHMMSSZ, always UTC.
const TimeLayout = "20060102T150405Z"

// FormatTime renders t in the envelope's compact ISO-8601 layout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a compact ISO-8601 envelope timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Envelope is the outer shape of every RPC carried over /mcp. Body holds
// the message-specific payload and is typically decoded a second time by
// the handler into a concrete request struct once the envelope itself has
// been validated and authenticated.
type Envelope struct {
	Protocol       string      `json:"protocol"`
	MessageType    MessageType `json:"message_type"`
	Sender         string      `json:"sender"`
	Timestamp      string      `json:"timestamp"`
	ConversationID string      `json:"conversation_id"`
	AuthToken      string      `json:"auth_token,omitempty"`
	LeagueID       string      `json:"league_id,omitempty"`
	RoundID        string      `json:"round_id,omitempty"`
	MatchID        string          `json:"match_id,omitempty"`
	Body           json.RawMessage `json:"body,omitempty"`
}

// NewEnvelope builds an envelope with protocol, timestamp, and sender
// pre-filled, marshaling body into the envelope's raw Body field. Callers
// set ConversationID, AuthToken, and the league/round/match scoping fields
// as needed before sending.
func NewEnvelope(msgType MessageType, sender string, body any) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: marshaling %s body: %w", msgType, err)
	}
	return Envelope{
		Protocol:    ProtocolVersion,
		MessageType: msgType,
		Sender:      sender,
		Timestamp:   FormatTime(time.Now()),
		Body:        raw,
	}, nil
}

// DecodeBody unmarshals the envelope's raw body into v.
func (e Envelope) DecodeBody(v any) error {
	if len(e.Body) == 0 {
		return fmt.Errorf("protocol: empty body")
	}
	return json.Unmarshal(e.Body, v)
}
