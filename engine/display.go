package engine

import (
	"context"
	"log"

	"multiview/youtube"
)

// Entry is one video eligible for display.
type Entry struct {
	// VideoID identifies the video.
	VideoID string
	// State is live or upcoming; nothing else is displayed.
	State youtube.BroadcastState
	// Title is the video title, empty when unavailable.
	Title string
	// ChannelID is the claiming channel, empty for an unbound video.
	ChannelID string
}

// Display computes the current display list: tracked videos classified
// live or upcoming, live entries first, each group in discovery order.
// An empty result is valid and distinct from having no channels
// configured; use ChannelCount to tell the two apart.
func (e *Engine) Display(ctx context.Context) ([]Entry, error) {
	if !e.gw.Ready() {
		return nil, ErrNoCredential
	}

	e.mu.Lock()
	candidates := append([]string(nil), e.videos...)
	bindings := make(map[string]string, len(e.channels))
	for _, ch := range e.channels {
		if ch.VideoID != "" {
			bindings[ch.VideoID] = ch.ChannelID
		}
	}
	owners := make(map[string]string, len(e.owners))
	for id, owner := range e.owners {
		owners[id] = owner
	}
	restrict := e.prefs.RestrictToTrackedChannels
	e.mu.Unlock()

	if restrict {
		candidates = e.restrictToBound(ctx, candidates, bindings, owners)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	classes := e.gw.ClassifyVideos(ctx, candidates)

	var live, upcoming []Entry
	for _, id := range candidates {
		cls := classes[id]
		entry := Entry{
			VideoID:   id,
			State:     cls.State,
			Title:     cls.Title,
			ChannelID: bindings[id],
		}
		switch cls.State {
		case youtube.StateLive:
			live = append(live, entry)
		case youtube.StateUpcoming:
			upcoming = append(upcoming, entry)
		}
	}
	return append(live, upcoming...), nil
}

// restrictToBound keeps only channel-bound videos whose known owner
// matches the binding. Owners not yet cached are resolved here and
// memoized; a resolution failure admits the affected videos
// provisionally so a transient outage never blanks the display.
func (e *Engine) restrictToBound(ctx context.Context, candidates []string, bindings, owners map[string]string) []string {
	var unresolved []string
	for _, id := range candidates {
		if _, bound := bindings[id]; !bound {
			continue
		}
		if _, known := owners[id]; !known {
			unresolved = append(unresolved, id)
		}
	}
	if len(unresolved) > 0 {
		resolved, err := e.gw.ResolveOwners(ctx, unresolved)
		if err != nil {
			log.Printf("multiview: display: owner resolution failed, admitting provisionally: %v", err)
		} else {
			e.mu.Lock()
			for id, owner := range resolved {
				if _, known := e.owners[id]; !known {
					e.owners[id] = owner
				}
				owners[id] = owner
			}
			e.mu.Unlock()
		}
	}

	kept := candidates[:0]
	for _, id := range candidates {
		channelID, bound := bindings[id]
		if !bound {
			continue
		}
		if owner, known := owners[id]; known && owner != channelID {
			// The binding is stale: the video's real owner is some
			// other (or no) channel.
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// ChannelCount returns the number of tracked channels.
func (e *Engine) ChannelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}
