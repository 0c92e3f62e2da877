package infrastructure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"lostFoundWs/internal/modules/realtime/domain"
)

// The socket speaks the JSON hub protocol, version 1: every message is a JSON object
// terminated by the record separator, and a text frame may carry several of them.
const (
	recordSeparator    byte = 0x1e
	hubProtocolName         = "json"
	hubProtocolVersion      = 1
)

var (
	ErrHandshakeFailed  = errors.New("hub handshake failed")
	ErrUnknownHubMethod = errors.New("unknown hub method")
)

var pingRecord = append([]byte(`{"type":6}`), recordSeparator)

// handshakeRequest is the first record a client sends.
type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

// handshakeResponse is "{}" on success.
type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

// Command is one client-to-server record after the handshake. Invocations name a hub
// method in Target; an InvocationID asks for a completion record.
type Command struct {
	Type         domain.MessageType `json:"type"`
	InvocationID string             `json:"invocationId,omitempty"`
	Target       string             `json:"target,omitempty"`
	Arguments    []json.RawMessage  `json:"arguments,omitempty"`
}

type completionMessage struct {
	Type         domain.MessageType `json:"type"`
	InvocationID string             `json:"invocationId"`
	Error        string             `json:"error,omitempty"`
}

type closeMessage struct {
	Type           domain.MessageType `json:"type"`
	Error          string             `json:"error,omitempty"`
	AllowReconnect bool               `json:"allowReconnect,omitempty"`
}

func encodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, recordSeparator), nil
}

// splitRecords cuts a text message into its records, dropping empty ones.
func splitRecords(raw []byte) [][]byte {
	var records [][]byte
	for _, record := range bytes.Split(raw, []byte{recordSeparator}) {
		if len(bytes.TrimSpace(record)) > 0 {
			records = append(records, record)
		}
	}
	return records
}

// parseHandshake validates the handshake record and returns the records that arrived
// after it in the same message.
func parseHandshake(raw []byte) ([][]byte, error) {
	records := splitRecords(raw)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty handshake", ErrHandshakeFailed)
	}
	var req handshakeRequest
	if err := json.Unmarshal(records[0], &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if req.Protocol != hubProtocolName {
		return nil, fmt.Errorf("%w: requested protocol '%s' is not available", ErrHandshakeFailed, req.Protocol)
	}
	if req.Version != hubProtocolVersion {
		return nil, fmt.Errorf("%w: protocol version %d is not supported", ErrHandshakeFailed, req.Version)
	}
	return records[1:], nil
}
