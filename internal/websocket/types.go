package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeScanCompleted is sent after every successful scan
	EventTypeScanCompleted EventType = "scan_completed"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ScanCompletedEvent summarises a finished scan. Findings are not included;
// dashboards fetch them from the scan response.
type ScanCompletedEvent struct {
	ScanID           string        `json:"scan_id"`
	Source           string        `json:"filename"`
	TotalFindings    int           `json:"total_leaks"`
	RiskLevel        string        `json:"risk_score"`
	ComplianceStatus string        `json:"compliance_status"`
	UnitsScanned     int           `json:"units_scanned"`
	Skipped          int           `json:"skipped"`
	Duration         time.Duration `json:"duration"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	Events      map[EventType]bool
	ConnectedAt time.Time
	IP          string
}

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastScans       bool
	BroadcastConnections bool
	AllowedOrigins       []string
}
