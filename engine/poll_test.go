package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"multiview/store"
	"multiview/youtube"
)

func snapWithBinding(channelID, videoID, status string) *store.Snapshot {
	snap := store.NewSnapshot()
	snap.Videos = []string{videoID}
	snap.Channels = []store.ChannelRecord{
		{ChannelID: channelID, Name: "Streamer", VideoID: videoID, Status: status},
	}
	return snap
}

func TestPollAdoptsNewBroadcast(t *testing.T) {
	gw := newFakeGateway()
	gw.broadcasts["UC1"] = liveBroadcast("vidNew")
	e := newTestEngine(t, gw, &memStore{snap: snapWithBinding("UC1", "vidOld", "live")})

	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatalf("RunPollCycle() error = %v", err)
	}

	channels := e.Channels()
	if channels[0].VideoID != "vidNew" || channels[0].Status != youtube.StateLive {
		t.Errorf("channel = %+v, want bound to vidNew live", channels[0])
	}
	videos := e.Videos()
	if len(videos) != 1 || videos[0] != "vidNew" {
		t.Errorf("videos = %v, want old binding released", videos)
	}
}

func TestPollUpcomingGoesLive(t *testing.T) {
	gw := newFakeGateway()
	gw.broadcasts["UC1"] = liveBroadcast("vid1")
	e := newTestEngine(t, gw, &memStore{snap: snapWithBinding("UC1", "vid1", "upcoming")})

	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := e.Channels()[0].Status; got != youtube.StateLive {
		t.Errorf("status = %v, want live", got)
	}
	if videos := e.Videos(); len(videos) != 1 {
		t.Errorf("videos = %v, want unchanged", videos)
	}
}

func TestPollEndedBroadcast(t *testing.T) {
	tests := []struct {
		name       string
		autoRemove bool
		wantVideos int
		wantBound  string
		wantStatus youtube.BroadcastState
	}{
		{"auto remove on", true, 0, "", youtube.StateNone},
		{"auto remove off", false, 1, "vid1", youtube.StateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.classes["vid1"] = youtube.Classification{State: youtube.StateEnded}
			snap := snapWithBinding("UC1", "vid1", "live")
			snap.Preferences.AutoRemoveEnded = tt.autoRemove
			e := newTestEngine(t, gw, &memStore{snap: snap})

			if err := e.RunPollCycle(context.Background()); err != nil {
				t.Fatal(err)
			}
			if videos := e.Videos(); len(videos) != tt.wantVideos {
				t.Errorf("videos = %v, want %d entries", videos, tt.wantVideos)
			}
			ch := e.Channels()[0]
			if ch.VideoID != tt.wantBound || ch.Status != tt.wantStatus {
				t.Errorf("channel = %+v, want bound %q status %v", ch, tt.wantBound, tt.wantStatus)
			}
		})
	}
}

func TestPollUnknownNeverRemoves(t *testing.T) {
	// No broadcast found and the bound video classifies unknown: the
	// binding and the tracked video must both survive, with the unknown
	// classification adopted as the channel's status.
	gw := newFakeGateway()
	e := newTestEngine(t, gw, &memStore{snap: snapWithBinding("UC1", "vid1", "live")})

	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	ch := e.Channels()[0]
	if ch.VideoID != "vid1" {
		t.Errorf("channel = %+v, want binding kept", ch)
	}
	if ch.Status != youtube.StateUnknown {
		t.Errorf("status = %v, want unknown adopted", ch.Status)
	}
	if videos := e.Videos(); len(videos) != 1 {
		t.Errorf("videos = %v, want vid1 kept", videos)
	}
}

func TestPollChannelFailureContinues(t *testing.T) {
	gw := newFakeGateway()
	gw.findErr["UC1"] = &youtube.APIError{Code: 500, Reason: "backendError"}
	gw.broadcasts["UC2"] = liveBroadcast("vid2")

	snap := store.NewSnapshot()
	snap.Channels = []store.ChannelRecord{
		{ChannelID: "UC1", Status: "none"},
		{ChannelID: "UC2", Status: "none"},
	}
	e := newTestEngine(t, gw, &memStore{snap: snap})

	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatalf("RunPollCycle() error = %v, want nil despite per-channel failure", err)
	}
	channels := e.Channels()
	if channels[1].VideoID != "vid2" {
		t.Errorf("UC2 = %+v, want bound despite UC1 failure", channels[1])
	}
}

func TestPollDropsConcurrentCycle(t *testing.T) {
	gw := newFakeGateway()
	gw.started = make(chan struct{}, 1)
	gw.release = make(chan struct{})
	e := newTestEngine(t, gw, &memStore{snap: snapWithBinding("UC1", "vid1", "live")})

	firstDone := make(chan error, 1)
	go func() { firstDone <- e.RunPollCycle(context.Background()) }()
	<-gw.started

	// Second cycle while the first is blocked inside the gateway.
	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Errorf("concurrent RunPollCycle() error = %v, want silent drop", err)
	}
	if gw.findCalls != 1 {
		t.Errorf("findCalls = %d, want 1 (second cycle dropped)", gw.findCalls)
	}

	close(gw.release)
	if err := <-firstDone; err != nil {
		t.Errorf("first RunPollCycle() error = %v", err)
	}

	// After the first cycle finishes, polling is allowed again.
	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gw.findCalls != 2 {
		t.Errorf("findCalls = %d, want 2", gw.findCalls)
	}
}

func TestPollNoCredential(t *testing.T) {
	gw := newFakeGateway()
	gw.ready = false
	e := newTestEngine(t, gw, &memStore{})

	if err := e.RunPollCycle(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("RunPollCycle() error = %v, want ErrNoCredential", err)
	}
}

func TestSweepRemovesEndedBinding(t *testing.T) {
	// The per-channel pass keeps the binding (the search still returns
	// the broadcast), but by the time the batch sweep classifies it the
	// stream has ended.
	gw := newFakeGateway()
	gw.broadcasts["UC1"] = liveBroadcast("vid1")
	gw.classes["vid1"] = youtube.Classification{State: youtube.StateEnded}
	e := newTestEngine(t, gw, &memStore{snap: snapWithBinding("UC1", "vid1", "live")})

	if err := e.RunPollCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if videos := e.Videos(); len(videos) != 0 {
		t.Errorf("videos = %v, want ended broadcast swept", videos)
	}
	ch := e.Channels()[0]
	if ch.VideoID != "" || ch.Status != youtube.StateNone {
		t.Errorf("channel = %+v, want unbound", ch)
	}
}

func TestPollerStops(t *testing.T) {
	gw := newFakeGateway()
	e := newTestEngine(t, gw, &memStore{})

	p := NewPoller(e, 5*time.Millisecond, time.Second)
	p.Start()
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	// Stop returned, so the loop has exited; no further cycles run.
	calls := gw.findCalls
	time.Sleep(15 * time.Millisecond)
	if gw.findCalls != calls {
		t.Error("poller still running after Stop")
	}
}
