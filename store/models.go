package store

import (
	"encoding/json"
	"time"
)

// Snapshot is the persisted state layout: the ordered tracked video
// ids, the ordered channel records, and the user preferences. The API
// credential is deliberately not part of the snapshot.
type Snapshot struct {
	// Version is the schema version of the snapshot document.
	Version string `json:"version"`
	// UpdatedAt is when the snapshot was last written.
	UpdatedAt time.Time `json:"updated_at"`
	// Videos is the ordered list of tracked video identifiers.
	Videos []string `json:"videos"`
	// Channels is the ordered list of tracked channel records.
	Channels []ChannelRecord `json:"channels"`
	// Preferences holds the user preference flags.
	Preferences Preferences `json:"preferences"`
}

// ChannelRecord is one tracked channel as persisted.
type ChannelRecord struct {
	// ChannelID is the YouTube channel id (e.g. "UCxxxxxxxx...").
	ChannelID string `json:"channel_id"`
	// Name is the best-effort display name.
	Name string `json:"name"`
	// VideoID is the bound broadcast video id, empty when none.
	VideoID string `json:"video_id,omitempty"`
	// Status is the last known broadcast state for VideoID.
	Status string `json:"status"`
	// Keywords is the normalized keyword filter; empty means
	// unrestricted.
	Keywords []string `json:"keyword_filter,omitempty"`
}

// Preferences holds the flags controlling engine and display behavior.
type Preferences struct {
	// PollIntervalMinutes is the refresh interval in minutes.
	PollIntervalMinutes int `json:"poll_interval_minutes"`
	// Autoplay starts embedded players automatically.
	Autoplay bool `json:"autoplay"`
	// AutoMute mutes autoplaying players.
	AutoMute bool `json:"auto_mute"`
	// ShowStatusBadge shows the live/upcoming badge on players.
	ShowStatusBadge bool `json:"show_status_badge"`
	// RestrictToTrackedChannels limits display to channel-bound videos.
	RestrictToTrackedChannels bool `json:"restrict_to_tracked_channels"`
	// AutoRemoveEnded drops ended broadcasts during the poll cycle.
	AutoRemoveEnded bool `json:"auto_remove_ended"`
	// Layout is the display layout ("grid", "pip", ...).
	Layout string `json:"layout"`
	// Columns is the grid column count.
	Columns int `json:"columns"`
}

// DefaultPreferences returns the preference defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		PollIntervalMinutes:       5,
		Autoplay:                  true,
		AutoMute:                  true,
		ShowStatusBadge:           true,
		RestrictToTrackedChannels: false,
		AutoRemoveEnded:           true,
		Layout:                    "grid",
		Columns:                   2,
	}
}

// UnmarshalJSON defaults each preference field independently, so a
// partial document loses nothing but the fields it actually omits.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	type prefsDoc struct {
		PollIntervalMinutes       *int    `json:"poll_interval_minutes"`
		Autoplay                  *bool   `json:"autoplay"`
		AutoMute                  *bool   `json:"auto_mute"`
		ShowStatusBadge           *bool   `json:"show_status_badge"`
		RestrictToTrackedChannels *bool   `json:"restrict_to_tracked_channels"`
		AutoRemoveEnded           *bool   `json:"auto_remove_ended"`
		Layout                    *string `json:"layout"`
		Columns                   *int    `json:"columns"`
	}

	var doc prefsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*p = DefaultPreferences()
	if doc.PollIntervalMinutes != nil && *doc.PollIntervalMinutes > 0 {
		p.PollIntervalMinutes = *doc.PollIntervalMinutes
	}
	if doc.Autoplay != nil {
		p.Autoplay = *doc.Autoplay
	}
	if doc.AutoMute != nil {
		p.AutoMute = *doc.AutoMute
	}
	if doc.ShowStatusBadge != nil {
		p.ShowStatusBadge = *doc.ShowStatusBadge
	}
	if doc.RestrictToTrackedChannels != nil {
		p.RestrictToTrackedChannels = *doc.RestrictToTrackedChannels
	}
	if doc.AutoRemoveEnded != nil {
		p.AutoRemoveEnded = *doc.AutoRemoveEnded
	}
	if doc.Layout != nil && *doc.Layout != "" {
		p.Layout = *doc.Layout
	}
	if doc.Columns != nil && *doc.Columns > 0 {
		p.Columns = *doc.Columns
	}
	return nil
}

// NewSnapshot returns an empty snapshot with default preferences.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:     schemaVersion,
		Preferences: DefaultPreferences(),
	}
}
