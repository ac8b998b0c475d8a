package engine

import (
	"context"
	"log"
	"time"

	"multiview/youtube"
)

// RunPollCycle reconciles every tracked channel against its current
// remote broadcast state. Only one cycle runs at a time: a cycle
// arriving while another is in flight is dropped, not queued.
//
// A remote failure on one channel is logged and does not stop the
// cycle; the remaining channels are still reconciled.
func (e *Engine) RunPollCycle(ctx context.Context) error {
	e.mu.Lock()
	if e.polling {
		e.mu.Unlock()
		log.Printf("multiview: poll cycle already in flight, dropping")
		return nil
	}
	e.polling = true
	ids := make([]string, 0, len(e.channels))
	for _, ch := range e.channels {
		ids = append(ids, ch.ChannelID)
	}
	autoRemove := e.prefs.AutoRemoveEnded
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.polling = false
		e.mu.Unlock()
	}()

	if !e.gw.Ready() {
		return ErrNoCredential
	}

	for _, channelID := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		ch := e.findChannelLocked(channelID)
		if ch == nil {
			// Removed while the cycle was running.
			e.mu.Unlock()
			continue
		}
		keywords := append([]string(nil), ch.Keywords...)
		bound := ch.VideoID
		e.mu.Unlock()

		broadcast, err := e.gw.FindBroadcast(ctx, channelID, keywords)
		if err != nil {
			log.Printf("multiview: poll: channel %s lookup failed: %v", channelID, err)
			continue
		}

		if broadcast != nil {
			e.applyBroadcast(channelID, broadcast)
			continue
		}
		if bound == "" {
			continue
		}

		// No current broadcast but a binding remains: decide its fate
		// from the bound video's own classification.
		cls := e.gw.ClassifyVideo(ctx, bound)
		e.applyClassification(channelID, bound, cls.State, autoRemove)
	}

	if autoRemove {
		e.sweepEnded(ctx)
	}

	e.mu.Lock()
	e.dedupeLocked()
	e.persistLocked()
	e.mu.Unlock()
	return nil
}

// applyBroadcast installs a freshly discovered broadcast as a channel's
// binding. The previous binding, if different, is released from the
// tracked set unless another channel still claims it.
func (e *Engine) applyBroadcast(channelID string, b *youtube.Broadcast) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannelLocked(channelID)
	if ch == nil {
		return
	}
	if ch.VideoID == b.VideoID {
		ch.Status = b.State
		return
	}

	if other := e.claimantLocked(b.VideoID, channelID); other != nil {
		// Another channel already holds this broadcast; dedup would
		// sever one of the claims anyway, so do not take it.
		log.Printf("multiview: poll: broadcast %s already claimed by %s, leaving %s as is", b.VideoID, other.ChannelID, channelID)
		return
	}

	if old := ch.VideoID; old != "" && e.claimantLocked(old, channelID) == nil {
		e.removeVideoLocked(old)
	}
	ch.VideoID = b.VideoID
	ch.Status = b.State
	e.appendVideoLocked(b.VideoID)
	e.owners[b.VideoID] = channelID
	log.Printf("multiview: poll: channel %s now %s on %s", channelID, b.State, b.VideoID)
}

// applyClassification reconciles a channel whose bound video no longer
// shows up as a current broadcast. StateUnknown never removes anything.
func (e *Engine) applyClassification(channelID, videoID string, state youtube.BroadcastState, autoRemove bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.findChannelLocked(channelID)
	if ch == nil || ch.VideoID != videoID {
		// Binding changed while the classification was in flight; the
		// stale result is dropped.
		return
	}

	switch state {
	case youtube.StateEnded, youtube.StateNone:
		if autoRemove {
			if e.claimantLocked(videoID, channelID) == nil {
				e.removeVideoLocked(videoID)
			}
			ch.VideoID = ""
			ch.Status = youtube.StateNone
			log.Printf("multiview: poll: removed ended broadcast %s from channel %s", videoID, channelID)
		} else {
			ch.Status = youtube.StateEnded
		}
	default:
		// Live, upcoming, or unknown: adopt the classification as-is
		// and keep the binding. Unknown covers transient failures and
		// missing videos; it never destroys state.
		if state == youtube.StateUnknown {
			log.Printf("multiview: poll: classification for %s unknown, keeping binding", videoID)
		}
		ch.Status = state
	}
}

// sweepEnded batch-classifies all channel-bound videos and removes the
// ones whose broadcast has ended. Videos classifying as unknown are
// logged and skipped.
func (e *Engine) sweepEnded(ctx context.Context) {
	e.mu.Lock()
	bound := make(map[string]string) // video id -> claiming channel id
	for _, ch := range e.channels {
		if ch.VideoID != "" {
			bound[ch.VideoID] = ch.ChannelID
		}
	}
	e.mu.Unlock()
	if len(bound) == 0 {
		return
	}

	ids := make([]string, 0, len(bound))
	for id := range bound {
		ids = append(ids, id)
	}
	classes := e.gw.ClassifyVideos(ctx, ids)

	for id, channelID := range bound {
		switch classes[id].State {
		case youtube.StateEnded:
			e.applyClassification(channelID, id, youtube.StateEnded, true)
		case youtube.StateUnknown:
			log.Printf("multiview: sweep: classification for %s unknown, skipping", id)
		}
	}
}

// Poller drives RunPollCycle on a fixed interval.
type Poller struct {
	engine   *Engine
	interval time.Duration
	timeout  time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. Start must be called to begin polling.
func NewPoller(e *Engine, interval, timeout time.Duration) *Poller {
	return &Poller{
		engine:   e,
		interval: interval,
		timeout:  timeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine. The first
// cycle runs after one full interval.
func (p *Poller) Start() {
	ticker := time.NewTicker(p.interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
				if err := p.engine.RunPollCycle(ctx); err != nil {
					log.Printf("multiview: poll cycle failed: %v", err)
				}
				cancel()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop halts the polling loop. An in-flight cycle is allowed to finish
// and apply its results; Stop returns once the loop has exited.
func (p *Poller) Stop() {
	close(p.stop)
	<-p.done
}
