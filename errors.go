package multiview

import (
	"multiview/engine"
	"multiview/retry"
	"multiview/store"
	"multiview/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, multiview.ErrChannelExists) {
//		fmt.Println("channel already tracked")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var apiErr *multiview.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("api error %d (%s): %s\n", apiErr.Code, apiErr.Reason, apiErr.Message)
//	}

// Type aliases for convenient error handling.
type (
	// APIError carries a remote API failure's code and reason.
	APIError = youtube.APIError
	// StoreError wraps errors during snapshot persistence.
	StoreError = store.StoreError
)

// Sentinel errors exported from sub-packages.
var (
	// Engine errors
	// ErrNoCredential indicates no API key is configured.
	ErrNoCredential = engine.ErrNoCredential
	// ErrNoChannels indicates the operation requires at least one tracked channel.
	ErrNoChannels = engine.ErrNoChannels
	// ErrChannelExists indicates the channel is already tracked.
	ErrChannelExists = engine.ErrChannelExists
	// ErrChannelNotFound indicates the channel is not tracked.
	ErrChannelNotFound = engine.ErrChannelNotFound
	// ErrNoVideoID indicates no video identifier was found in the input.
	ErrNoVideoID = engine.ErrNoVideoID
	// ErrVideoExists indicates the video is already tracked.
	ErrVideoExists = engine.ErrVideoExists
	// ErrVideoNotFound indicates the video is not tracked.
	ErrVideoNotFound = engine.ErrVideoNotFound
	// ErrOwnerUnresolved indicates the video's owning channel could not be resolved.
	ErrOwnerUnresolved = engine.ErrOwnerUnresolved
	// ErrOwnerNotTracked indicates the video belongs to an untracked channel.
	ErrOwnerNotTracked = engine.ErrOwnerNotTracked

	// Store errors
	// ErrSnapshotCorrupt indicates the snapshot file could not be parsed.
	ErrSnapshotCorrupt = store.ErrSnapshotCorrupt
	// ErrLockTimeout indicates a timeout acquiring the snapshot file lock.
	ErrLockTimeout = store.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
// It returns false for permanent errors like context cancellation.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
