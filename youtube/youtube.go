// Package youtube provides the remote status gateway over the YouTube
// Data API v3: broadcast discovery for tracked channels, display-name
// lookup, and broadcast-state classification of videos.
package youtube

import (
	"context"
	"errors"
	"fmt"
)

// BroadcastState classifies a video's current broadcast status.
type BroadcastState string

const (
	// StateNone means the channel has no known current broadcast.
	StateNone BroadcastState = "none"
	// StateLive means the broadcast is currently live.
	StateLive BroadcastState = "live"
	// StateUpcoming means the broadcast is scheduled but not started.
	StateUpcoming BroadcastState = "upcoming"
	// StateEnded means the broadcast has finished.
	StateEnded BroadcastState = "ended"
	// StateUnknown means the classification is not yet trustworthy.
	// It deliberately blocks automatic deletion.
	StateUnknown BroadcastState = "unknown"
)

// DefaultDisplayName is the placeholder label used when a channel's
// display name cannot be fetched.
const DefaultDisplayName = "(unnamed channel)"

// Broadcast is an active or upcoming broadcast discovered for a channel.
type Broadcast struct {
	// VideoID is the broadcast's video identifier.
	VideoID string
	// State is StateLive or StateUpcoming.
	State BroadcastState
}

// Classification is the current broadcast state of a single video.
type Classification struct {
	// State is the derived broadcast state.
	State BroadcastState
	// Title is the video title, empty when the video was not found.
	Title string
}

// Sentinel errors for gateway operations.
var (
	// ErrNoCredential indicates no API key is configured. This is a
	// precondition failure, not an API error.
	ErrNoCredential = errors.New("youtube: api key not configured")
	// ErrChannelNotFound indicates the channel does not exist.
	ErrChannelNotFound = errors.New("youtube: channel not found")
)

// APIError is an error reported by the Data API itself (quota exceeded,
// bad credential). It is distinguished from "not found", which is a
// normal negative result: callers must never treat an APIError as
// "broadcast ended".
//
// Use errors.As() to extract it:
//
//	var apiErr *youtube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("api error %d: %s\n", apiErr.Code, apiErr.Message)
//	}
type APIError struct {
	// Code is the HTTP status code of the API response.
	Code int
	// Reason is the API error reason ("quotaExceeded", "keyInvalid", ...).
	Reason string
	// Message is the human-readable API error message.
	Message string
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: api error %d (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube: api error %d: %s", e.Code, e.Message)
}

// searchResult is one item of a broadcast search response.
type searchResult struct {
	VideoID   string
	ChannelID string
	Title     string
}

// videoResult is one item of a videos.list response.
type videoResult struct {
	ID                   string
	Title                string
	ChannelID            string
	LiveBroadcastContent string
	HasActualEndTime     bool
}

// broadcastAPI is the thin seam over the Data API wire calls. The
// production implementation is dataAPI; tests substitute a fake.
type broadcastAPI interface {
	// searchBroadcasts runs a search.list for the given event type
	// ("live" or "upcoming") restricted to one channel.
	searchBroadcasts(ctx context.Context, channelID, eventType string, max int64) ([]searchResult, error)
	// channelTitle fetches a channel's snippet title. Returns
	// ErrChannelNotFound when the channel does not exist.
	channelTitle(ctx context.Context, channelID string) (string, error)
	// listVideos fetches snippet and live-streaming details for up to
	// 50 video ids. Ids absent from the result were not found.
	listVideos(ctx context.Context, ids []string) ([]videoResult, error)
}
