package engine

import (
	"log"
	"time"

	"multiview/store"
	"multiview/youtube"
)

// restore rebuilds in-memory state from a snapshot. Channel bindings
// recorded in the snapshot re-seed the owner cache: a persisted binding
// was only ever written for a resolved broadcast.
func (e *Engine) restore(snap *store.Snapshot) {
	e.videos = append([]string(nil), snap.Videos...)
	e.channels = make([]*Channel, 0, len(snap.Channels))
	for _, rec := range snap.Channels {
		ch := &Channel{
			ChannelID: rec.ChannelID,
			Name:      rec.Name,
			VideoID:   rec.VideoID,
			Status:    youtube.BroadcastState(rec.Status),
			Keywords:  append([]string(nil), rec.Keywords...),
		}
		if ch.Status == "" {
			ch.Status = youtube.StateNone
		}
		if ch.Name == "" {
			ch.Name = youtube.DefaultDisplayName
		}
		if ch.VideoID != "" {
			// First claimant wins: dedup keeps the earlier binding.
			if _, ok := e.owners[ch.VideoID]; !ok {
				e.owners[ch.VideoID] = ch.ChannelID
			}
		}
		e.channels = append(e.channels, ch)
	}
	e.prefs = snap.Preferences
}

// snapshotLocked serializes current state. Caller holds the lock.
func (e *Engine) snapshotLocked() *store.Snapshot {
	snap := store.NewSnapshot()
	snap.UpdatedAt = time.Now().UTC()
	snap.Videos = append([]string(nil), e.videos...)
	snap.Preferences = e.prefs
	snap.Channels = make([]store.ChannelRecord, 0, len(e.channels))
	for _, ch := range e.channels {
		snap.Channels = append(snap.Channels, store.ChannelRecord{
			ChannelID: ch.ChannelID,
			Name:      ch.Name,
			VideoID:   ch.VideoID,
			Status:    string(ch.Status),
			Keywords:  append([]string(nil), ch.Keywords...),
		})
	}
	return snap
}

// persistLocked writes a snapshot through the store. A write failure is
// logged, not propagated: in-memory state stays authoritative and the
// next mutation retries the write.
func (e *Engine) persistLocked() {
	if err := e.snapshots.Save(e.snapshotLocked()); err != nil {
		log.Printf("multiview: snapshot save failed: %v", err)
	}
}
