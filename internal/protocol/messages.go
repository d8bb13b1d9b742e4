package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Locale          string            `json:"locale,omitempty"`
}

type HelloCapabilities struct {
	// Stats asks for a stats block on every STATE.
	Stats    bool `json:"stats,omitempty"`
	MaxQueue int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	GameParams      GameParams `json:"game_params"`
	ActionTypes     []string   `json:"action_types"`
	Seq             uint64     `json:"seq"`
	Digest          string     `json:"digest"`
}

type GameParams struct {
	StartYear      int     `json:"start_year"`
	EndYear        int     `json:"end_year"`
	StartingBudget float64 `json:"starting_budget"`
	Fields         int     `json:"fields"`
	MaxCapacity    int     `json:"max_capacity"`
}

// ACT (client -> server). Action is a "type"-tagged action object.
type ActMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Action          json.RawMessage `json:"action"`
}

// ACK (server -> client) answers one ACT. Accepted is false when the action
// decoded but left the game unchanged.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Suggestion      string `json:"suggestion,omitempty"`
	Seq             uint64 `json:"seq,omitempty"`
}

// STATE (server -> client) is pushed to every session after each dispatch.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Seq             uint64          `json:"seq"`
	Digest          string          `json:"digest"`
	State           json.RawMessage `json:"state"`
	Stats           json.RawMessage `json:"stats,omitempty"`
}

// ERROR (server -> client) reports a message that could not be handled.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Suggestion      string `json:"suggestion,omitempty"`
	RefID           string `json:"ref_id,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
