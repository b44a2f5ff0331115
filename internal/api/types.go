package api

import (
	"time"

	"github.com/avalonlabs/vesper/domain/entities"
)

// LoginRequest is the payload for profile login.
type LoginRequest struct {
	ProfileID string `json:"profile_id"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Profile   *entities.UserProfile `json:"profile"`
}

// ConnectRequest names the profile to open a voice session for.
type ConnectRequest struct {
	ProfileID string `json:"profile_id"`
}

// SessionStateResponse reports the session state machine.
type SessionStateResponse struct {
	State entities.ConnectionState `json:"state"`
}

// LogsResponse wraps the system log listing.
type LogsResponse struct {
	Entries []entities.SystemLogEntry `json:"entries"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
