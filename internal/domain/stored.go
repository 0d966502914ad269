package domain

import (
	"encoding/json"
	"time"
)

// StoredRecord is a record accepted by the collector server.
type StoredRecord struct {
	ReceivedAt time.Time       `json:"received_at"`
	ClientID   string          `json:"client_id,omitempty"`
	RemoteIP   string          `json:"remote_ip,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ID         int64           `json:"id"`
}

// Stats summarizes what the collector has stored.
type Stats struct {
	LastReceived time.Time `json:"last_received,omitzero"`
	Records      int64     `json:"records"`
	Clients      int64     `json:"clients"`
}
