package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"multiview/filter"
	"multiview/youtube"
)

// exportVersion is the channel export document schema version.
const exportVersion = 1

// ExportDocument is a portable list of channel subscriptions. It
// carries no bindings, no tracked videos, and no credential; the
// importing side re-discovers broadcasts itself.
type ExportDocument struct {
	Version    int             `json:"version"`
	ExportID   string          `json:"export_id"`
	ExportDate time.Time       `json:"export_date"`
	Channels   []ExportChannel `json:"channels"`
}

// ExportChannel is one exported channel subscription.
type ExportChannel struct {
	ChannelID     string   `json:"channel_id"`
	Name          string   `json:"name"`
	KeywordFilter []string `json:"keyword_filter,omitempty"`
}

// ImportResult reports the outcome of an Import.
type ImportResult struct {
	// Added is the number of channels newly registered.
	Added int
	// Skipped is the number of channels already tracked.
	Skipped int
}

// Export produces an export document for the current channel list.
func (e *Engine) Export() *ExportDocument {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := &ExportDocument{
		Version:    exportVersion,
		ExportID:   uuid.NewString(),
		ExportDate: time.Now().UTC(),
		Channels:   make([]ExportChannel, 0, len(e.channels)),
	}
	for _, ch := range e.channels {
		doc.Channels = append(doc.Channels, ExportChannel{
			ChannelID:     ch.ChannelID,
			Name:          ch.Name,
			KeywordFilter: append([]string(nil), ch.Keywords...),
		})
	}
	return doc
}

// Import merges an export document into the tracked channels. Import is
// additive: channels already tracked are skipped and counted, never
// overwritten. For each new channel a broadcast lookup is attempted
// best-effort; a lookup failure registers the channel unbound.
func (e *Engine) Import(ctx context.Context, doc *ExportDocument) (ImportResult, error) {
	if doc == nil {
		return ImportResult{}, errors.New("engine: nil import document")
	}

	var res ImportResult
	for _, rec := range doc.Channels {
		channelID := strings.TrimSpace(rec.ChannelID)
		if channelID == "" {
			continue
		}

		e.mu.Lock()
		exists := e.findChannelLocked(channelID) != nil
		e.mu.Unlock()
		if exists {
			res.Skipped++
			continue
		}

		ch := &Channel{
			ChannelID: channelID,
			Name:      rec.Name,
			Status:    youtube.StateNone,
			Keywords:  filter.Normalize(strings.Join(rec.KeywordFilter, ",")),
		}
		if ch.Name == "" {
			if e.gw.Ready() {
				ch.Name = e.gw.DisplayName(ctx, channelID)
			} else {
				ch.Name = youtube.DefaultDisplayName
			}
		}

		var broadcast *youtube.Broadcast
		if e.gw.Ready() {
			b, err := e.gw.FindBroadcast(ctx, channelID, ch.Keywords)
			if err != nil {
				log.Printf("multiview: import: broadcast lookup for %s failed: %v", channelID, err)
			} else {
				broadcast = b
			}
		}

		e.mu.Lock()
		if e.findChannelLocked(channelID) != nil {
			e.mu.Unlock()
			res.Skipped++
			continue
		}
		if broadcast != nil && e.claimantLocked(broadcast.VideoID, "") == nil {
			ch.VideoID = broadcast.VideoID
			ch.Status = broadcast.State
			e.appendVideoLocked(broadcast.VideoID)
			e.owners[broadcast.VideoID] = channelID
		}
		e.channels = append(e.channels, ch)
		e.mu.Unlock()
		res.Added++
	}

	e.mu.Lock()
	e.dedupeLocked()
	e.persistLocked()
	e.mu.Unlock()
	return res, nil
}
