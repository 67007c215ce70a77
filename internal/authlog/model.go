// Package authlog records authentication lifecycle events. Every sign-in,
// sign-up, sign-out, password reset, profile update, and session refresh is
// captured as an Event and handed to a Recorder, successes and failures
// alike. The admin security feed reads the persisted events back.
//
// Recording is strictly best-effort -- a recorder must never fail or slow
// down the auth flow that triggered it.
package authlog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- Event Types ---
// One constant per auth lifecycle transition. The admin feed filters on
// these values, so they are stored as-is in the event_type column.

const (
	// EventSignIn is recorded for every credential sign-in attempt.
	EventSignIn EventType = "sign_in"

	// EventSignUp is recorded for every account registration attempt.
	EventSignUp EventType = "sign_up"

	// EventSignOut is recorded when a session is destroyed on request.
	EventSignOut EventType = "sign_out"

	// EventPasswordReset is recorded when a reset email is requested.
	EventPasswordReset EventType = "password_reset"

	// EventProfileUpdate is recorded when account profile fields change.
	EventProfileUpdate EventType = "profile_update"

	// EventSessionRefresh is recorded when a token pair is renewed, either
	// inline during a request or by the background sweep.
	EventSessionRefresh EventType = "session_refresh"
)

// EventType names an auth lifecycle transition.
type EventType string

// ValidEventType reports whether t is one of the recorded lifecycle types.
func ValidEventType(t EventType) bool {
	switch t {
	case EventSignIn, EventSignUp, EventSignOut, EventPasswordReset,
		EventProfileUpdate, EventSessionRefresh:
		return true
	}
	return false
}

// SourceServer is the sentinel recorded for user agent and path when an
// event did not originate from a browser request (background refresh,
// CLI-triggered flows).
const SourceServer = "server"

// Source carries the navigation context of the request that triggered an
// event. The zero value means "no request": NewEvent substitutes the
// SourceServer sentinel.
type Source struct {
	UserAgent string
	Path      string
}

// Event is one recorded auth lifecycle transition.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	UserID    string         `json:"userId,omitempty"`
	Email     string         `json:"email,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	UserAgent string         `json:"userAgent"`
	Path      string         `json:"path"`
	ErrorCode string         `json:"errorCode,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Failed reports whether the recorded flow ended in an error.
func (e Event) Failed() bool {
	return e.ErrorCode != ""
}

// NewEvent builds an Event of the given type with a fresh ID, the current
// timestamp, and the source context filled in. Missing source fields get
// the SourceServer sentinel so every stored event has a usable origin.
func NewEvent(eventType EventType, src Source) Event {
	userAgent := strings.TrimSpace(src.UserAgent)
	if userAgent == "" {
		userAgent = SourceServer
	}
	path := strings.TrimSpace(src.Path)
	if path == "" {
		path = SourceServer
	}

	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserAgent: userAgent,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
}
