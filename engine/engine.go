// Package engine implements the reconciliation engine: it owns the
// tracked channels, the tracked video set, and the video-to-channel
// cache, and keeps them consistent across user mutations and poll
// cycles.
//
// All mutation goes through dedup-preserving operations: after any
// structural change the engine re-establishes its two uniqueness
// invariants (no duplicate video ids in the tracked set, no two
// channels bound to the same video) and persists a snapshot.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"multiview/filter"
	"multiview/store"
	"multiview/videoid"
	"multiview/youtube"
)

// Sentinel errors for engine operations.
var (
	// ErrNoCredential indicates no API key is configured.
	ErrNoCredential = errors.New("engine: api key not configured")
	// ErrNoChannels indicates the operation requires at least one tracked channel.
	ErrNoChannels = errors.New("engine: no channels tracked")
	// ErrEmptyChannelID indicates an empty channel id was supplied.
	ErrEmptyChannelID = errors.New("engine: channel id is empty")
	// ErrChannelExists indicates the channel is already tracked.
	ErrChannelExists = errors.New("engine: channel already tracked")
	// ErrChannelNotFound indicates the channel is not tracked.
	ErrChannelNotFound = errors.New("engine: channel not tracked")
	// ErrNoVideoID indicates no video identifier was found in the input.
	ErrNoVideoID = errors.New("engine: no video id found in input")
	// ErrVideoExists indicates the video is already tracked.
	ErrVideoExists = errors.New("engine: video already tracked")
	// ErrVideoNotFound indicates the video is not tracked.
	ErrVideoNotFound = errors.New("engine: video not tracked")
	// ErrOwnerUnresolved indicates the video's owning channel could not be resolved.
	ErrOwnerUnresolved = errors.New("engine: video owner could not be resolved")
	// ErrOwnerNotTracked indicates the video belongs to an untracked channel.
	ErrOwnerNotTracked = errors.New("engine: video owner is not a tracked channel")
)

// Gateway is the remote status surface the engine polls. The production
// implementation is youtube.Gateway.
type Gateway interface {
	// Ready reports whether an API credential is configured.
	Ready() bool
	// FindBroadcast returns the channel's current live or upcoming
	// broadcast, nil when there is none. An error means the query
	// failed and must not be read as "no broadcast".
	FindBroadcast(ctx context.Context, channelID string, keywords []string) (*youtube.Broadcast, error)
	// DisplayName returns the channel's display name, best-effort.
	DisplayName(ctx context.Context, channelID string) string
	// ClassifyVideo returns a video's broadcast classification,
	// StateUnknown on any failure.
	ClassifyVideo(ctx context.Context, videoID string) youtube.Classification
	// ClassifyVideos classifies a batch of videos.
	ClassifyVideos(ctx context.Context, videoIDs []string) map[string]youtube.Classification
	// ResolveOwners resolves owning channel ids; missing videos map to
	// the empty string.
	ResolveOwners(ctx context.Context, videoIDs []string) (map[string]string, error)
}

// SnapshotStore persists engine state across restarts.
type SnapshotStore interface {
	Load() (*store.Snapshot, error)
	Save(snap *store.Snapshot) error
}

// Channel is a tracked subscription.
type Channel struct {
	// ChannelID is the external channel identifier, the unique key.
	ChannelID string
	// Name is the best-effort display name.
	Name string
	// VideoID is the video currently considered this channel's
	// broadcast, empty when none. At most one channel holds a given
	// video id at a time.
	VideoID string
	// Status is the last known classification for VideoID.
	Status youtube.BroadcastState
	// Keywords is the normalized keyword filter; empty admits all.
	Keywords []string
}

// Engine owns the canonical collections and the polling cycle.
// All methods are safe for concurrent use; mutation is serialized on
// one mutex so each operation observes and leaves consistent state.
type Engine struct {
	gw        Gateway
	snapshots SnapshotStore

	mu       sync.Mutex
	videos   []string
	channels []*Channel
	// owners memoizes video id -> owning channel id. Presence means
	// resolved; the empty string is an explicit "none". Entries are
	// never invalidated within a session.
	owners  map[string]string
	prefs   store.Preferences
	polling bool
}

// New creates an engine, restores the last snapshot from the store, and
// runs the dedup pass once before anything is rendered.
func New(gw Gateway, snapshots SnapshotStore) (*Engine, error) {
	e := &Engine{
		gw:        gw,
		snapshots: snapshots,
		owners:    make(map[string]string),
		prefs:     store.DefaultPreferences(),
	}

	snap, err := snapshots.Load()
	if err != nil {
		return nil, err
	}
	e.restore(snap)

	e.mu.Lock()
	if e.dedupeLocked() {
		e.persistLocked()
	}
	e.mu.Unlock()

	return e, nil
}

// AddChannel registers a channel subscription and looks up its current
// broadcast. The channel is registered even when no broadcast is found;
// an API error aborts the whole operation without mutating state.
func (e *Engine) AddChannel(ctx context.Context, channelID string) (Channel, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Channel{}, ErrEmptyChannelID
	}
	if !e.gw.Ready() {
		return Channel{}, ErrNoCredential
	}

	e.mu.Lock()
	exists := e.findChannelLocked(channelID) != nil
	e.mu.Unlock()
	if exists {
		return Channel{}, ErrChannelExists
	}

	name := e.gw.DisplayName(ctx, channelID)
	broadcast, err := e.gw.FindBroadcast(ctx, channelID, nil)
	if err != nil {
		return Channel{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.findChannelLocked(channelID) != nil {
		return Channel{}, ErrChannelExists
	}

	ch := &Channel{ChannelID: channelID, Name: name, Status: youtube.StateNone}
	if broadcast != nil {
		if e.claimantLocked(broadcast.VideoID, "") == nil {
			ch.VideoID = broadcast.VideoID
			ch.Status = broadcast.State
			e.appendVideoLocked(broadcast.VideoID)
			e.owners[broadcast.VideoID] = channelID
		} else {
			log.Printf("multiview: broadcast %s already claimed, registering %s unbound", broadcast.VideoID, channelID)
		}
	}
	e.channels = append(e.channels, ch)

	e.dedupeLocked()
	e.persistLocked()
	return *ch, nil
}

// RemoveChannel drops a channel subscription and releases its bound
// video from the tracked set when no other channel claims it.
func (e *Engine) RemoveChannel(channelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, ch := range e.channels {
		if ch.ChannelID == channelID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrChannelNotFound
	}

	bound := e.channels[idx].VideoID
	e.channels = append(e.channels[:idx], e.channels[idx+1:]...)
	if bound != "" && e.claimantLocked(bound, "") == nil {
		e.removeVideoLocked(bound)
	}

	e.dedupeLocked()
	e.persistLocked()
	return nil
}

// SetChannelKeywords replaces a channel's keyword filter with the
// normalized tokens of the given free text. Returns the stored tokens.
func (e *Engine) SetChannelKeywords(channelID, text string) ([]string, error) {
	tokens := filter.Normalize(text)

	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannelLocked(channelID)
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	ch.Keywords = tokens
	e.persistLocked()
	return tokens, nil
}

// AddVideo admits a manually supplied video (URL or raw id) into the
// tracked set. The video must belong to a tracked channel: its owner is
// resolved through the gateway and memoized.
func (e *Engine) AddVideo(ctx context.Context, input string) (string, error) {
	id, ok := videoid.Extract(input)
	if !ok {
		return "", ErrNoVideoID
	}
	if !e.gw.Ready() {
		return "", ErrNoCredential
	}

	e.mu.Lock()
	if len(e.channels) == 0 {
		e.mu.Unlock()
		return "", ErrNoChannels
	}
	if e.containsVideoLocked(id) {
		e.mu.Unlock()
		return "", ErrVideoExists
	}
	owner, known := e.owners[id]
	e.mu.Unlock()

	if !known {
		resolved, err := e.gw.ResolveOwners(ctx, []string{id})
		if err != nil {
			return "", err
		}
		owner = resolved[id]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Memoize even an explicit "none": it is not re-fetched.
	e.owners[id] = owner

	if owner == "" {
		return "", ErrOwnerUnresolved
	}
	if e.findChannelLocked(owner) == nil {
		return "", ErrOwnerNotTracked
	}
	if e.containsVideoLocked(id) {
		return "", ErrVideoExists
	}

	e.appendVideoLocked(id)
	e.dedupeLocked()
	e.persistLocked()
	return id, nil
}

// RemoveVideo drops a video from the tracked set and unbinds any
// channel that claimed it.
func (e *Engine) RemoveVideo(videoID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.containsVideoLocked(videoID) {
		return ErrVideoNotFound
	}
	e.removeVideoLocked(videoID)

	for _, ch := range e.channels {
		if ch.VideoID == videoID {
			ch.VideoID = ""
			ch.Status = youtube.StateNone
		}
	}

	e.dedupeLocked()
	e.persistLocked()
	return nil
}

// Clear drops every tracked channel and video in one operation.
// Preferences, the owner cache, and the stored credential are untouched.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.channels = nil
	e.videos = nil

	e.dedupeLocked()
	e.persistLocked()
}

// Channels returns a copy of the tracked channels in tracked order.
func (e *Engine) Channels() []Channel {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Channel, 0, len(e.channels))
	for _, ch := range e.channels {
		c := *ch
		c.Keywords = append([]string(nil), ch.Keywords...)
		out = append(out, c)
	}
	return out
}

// Videos returns a copy of the tracked video ids in discovery order.
func (e *Engine) Videos() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.videos...)
}

// Preferences returns the current preference flags.
func (e *Engine) Preferences() store.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

// UpdatePreferences replaces the preference flags and persists them.
func (e *Engine) UpdatePreferences(p store.Preferences) error {
	if p.PollIntervalMinutes <= 0 {
		return errors.New("engine: poll interval must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefs = p
	e.persistLocked()
	return nil
}

// --- invariant enforcement ---

// dedupeLocked restores the uniqueness invariants. It is idempotent:
// running it twice in a row produces the same result as running it
// once. Must be called after every structural mutation, with the
// engine lock held. Reports whether anything changed.
func (e *Engine) dedupeLocked() bool {
	changed := false

	// 1. Collapse the video set, preserving first-seen order.
	if e.collapseVideosLocked() {
		changed = true
	}

	// 2. Walk channels in tracked order; a binding already claimed by
	// an earlier channel is severed from the later one.
	claimed := make(map[string]bool, len(e.channels))
	var orphans []string
	for _, ch := range e.channels {
		if ch.VideoID == "" {
			continue
		}
		if claimed[ch.VideoID] {
			log.Printf("multiview: channel %s lost duplicate claim on %s", ch.ChannelID, ch.VideoID)
			orphans = append(orphans, ch.VideoID)
			ch.VideoID = ""
			ch.Status = youtube.StateNone
			changed = true
			continue
		}
		claimed[ch.VideoID] = true
	}

	// 3. An orphaned id kept alive only by the severed binding is
	// dropped; one still claimed by a surviving binding is kept.
	for _, id := range orphans {
		if claimed[id] {
			continue
		}
		if e.containsVideoLocked(id) {
			e.removeVideoLocked(id)
			changed = true
		}
	}

	// 4. Collapse once more.
	if e.collapseVideosLocked() {
		changed = true
	}

	return changed
}

// collapseVideosLocked removes duplicate video ids, keeping first-seen
// order. Reports whether duplicates were dropped.
func (e *Engine) collapseVideosLocked() bool {
	seen := make(map[string]bool, len(e.videos))
	unique := e.videos[:0]
	for _, id := range e.videos {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	dropped := len(e.videos) - len(unique)
	e.videos = unique
	if dropped > 0 {
		log.Printf("multiview: dropped %d duplicate video ids", dropped)
		return true
	}
	return false
}

// --- locked helpers ---

func (e *Engine) findChannelLocked(channelID string) *Channel {
	for _, ch := range e.channels {
		if ch.ChannelID == channelID {
			return ch
		}
	}
	return nil
}

// claimantLocked returns the channel currently bound to videoID,
// ignoring the channel named by exclude.
func (e *Engine) claimantLocked(videoID, exclude string) *Channel {
	for _, ch := range e.channels {
		if ch.ChannelID == exclude {
			continue
		}
		if ch.VideoID == videoID {
			return ch
		}
	}
	return nil
}

func (e *Engine) containsVideoLocked(videoID string) bool {
	for _, id := range e.videos {
		if id == videoID {
			return true
		}
	}
	return false
}

func (e *Engine) appendVideoLocked(videoID string) {
	if !e.containsVideoLocked(videoID) {
		e.videos = append(e.videos, videoID)
	}
}

func (e *Engine) removeVideoLocked(videoID string) {
	for i, id := range e.videos {
		if id == videoID {
			e.videos = append(e.videos[:i], e.videos[i+1:]...)
			return
		}
	}
}
