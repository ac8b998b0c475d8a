package engine

import (
	"context"
	"errors"
	"testing"

	"multiview/store"
	"multiview/youtube"
)

func TestDisplayOrdering(t *testing.T) {
	// Live entries come first; within each group, discovery order is
	// preserved.
	gw := newFakeGateway()
	gw.classes["v1"] = youtube.Classification{State: youtube.StateUpcoming, Title: "one"}
	gw.classes["v2"] = youtube.Classification{State: youtube.StateLive, Title: "two"}
	gw.classes["v3"] = youtube.Classification{State: youtube.StateLive, Title: "three"}
	gw.classes["v4"] = youtube.Classification{State: youtube.StateUpcoming, Title: "four"}

	snap := store.NewSnapshot()
	snap.Videos = []string{"v1", "v2", "v3", "v4"}
	e := newTestEngine(t, gw, &memStore{snap: snap})

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatalf("Display() error = %v", err)
	}

	var got []string
	for _, entry := range entries {
		got = append(got, entry.VideoID)
	}
	want := []string{"v2", "v3", "v1", "v4"}
	if len(got) != len(want) {
		t.Fatalf("Display() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Display() = %v, want %v", got, want)
		}
	}
}

func TestDisplayDropsNonDisplayable(t *testing.T) {
	gw := newFakeGateway()
	gw.classes["v1"] = youtube.Classification{State: youtube.StateEnded}
	// v2 classifies unknown by default.
	gw.classes["v3"] = youtube.Classification{State: youtube.StateLive, Title: "on air"}

	snap := store.NewSnapshot()
	snap.Videos = []string{"v1", "v2", "v3"}
	e := newTestEngine(t, gw, &memStore{snap: snap})

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].VideoID != "v3" {
		t.Errorf("Display() = %+v, want only v3", entries)
	}
	if entries[0].Title != "on air" {
		t.Errorf("title = %q, want on air", entries[0].Title)
	}
}

func TestDisplayEmptyIsNotAnError(t *testing.T) {
	snap := store.NewSnapshot()
	snap.Videos = []string{"v1"} // classifies unknown

	e := newTestEngine(t, newFakeGateway(), &memStore{snap: snap})

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatalf("Display() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Display() = %+v, want empty", entries)
	}
}

func TestAddChannelThenDisplay(t *testing.T) {
	gw := newFakeGateway()
	gw.broadcasts["UC1"] = liveBroadcast("vid1")
	gw.classes["vid1"] = youtube.Classification{State: youtube.StateLive, Title: "on air"}
	e := newTestEngine(t, gw, &memStore{})

	if _, err := e.AddChannel(context.Background(), "UC1"); err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, id := range e.Videos() {
		if id == "vid1" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("vid1 tracked %d times, want exactly once", count)
	}

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].VideoID != "vid1" || entries[0].State != youtube.StateLive {
		t.Errorf("Display() = %+v, want vid1 live", entries)
	}
}

func TestDisplayNoCredential(t *testing.T) {
	gw := newFakeGateway()
	gw.ready = false
	e := newTestEngine(t, gw, &memStore{})

	if _, err := e.Display(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Display() error = %v, want ErrNoCredential", err)
	}
}

func restrictedSnapshot() *store.Snapshot {
	snap := store.NewSnapshot()
	snap.Videos = []string{"v1", "v2", "v3"}
	snap.Channels = []store.ChannelRecord{
		{ChannelID: "UC1", VideoID: "v1", Status: "live"},
		{ChannelID: "UC2", VideoID: "v2", Status: "live"},
	}
	snap.Preferences.RestrictToTrackedChannels = true
	return snap
}

func TestDisplayRestrictToTrackedChannels(t *testing.T) {
	gw := newFakeGateway()
	gw.classes["v1"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v2"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v3"] = youtube.Classification{State: youtube.StateLive}
	e := newTestEngine(t, gw, &memStore{snap: restrictedSnapshot()})

	// v2's real owner turns out to be a different channel: the cached
	// resolution wins over the nominal binding.
	e.mu.Lock()
	e.owners["v2"] = "UCelsewhere"
	e.mu.Unlock()

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// v1 is bound and owned by UC1, v2 is stale, v3 is unbound.
	if len(entries) != 1 || entries[0].VideoID != "v1" {
		t.Errorf("Display() = %+v, want only v1", entries)
	}
	if entries[0].ChannelID != "UC1" {
		t.Errorf("ChannelID = %q, want UC1", entries[0].ChannelID)
	}
}

func TestDisplayRestrictResolvesMissingOwners(t *testing.T) {
	gw := newFakeGateway()
	gw.classes["v1"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v2"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v3"] = youtube.Classification{State: youtube.StateLive}
	gw.owners["v2"] = "UCelsewhere"
	e := newTestEngine(t, gw, &memStore{snap: restrictedSnapshot()})

	// Forget the owner cache entry so the display pass must resolve it.
	e.mu.Lock()
	delete(e.owners, "v2")
	e.mu.Unlock()

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].VideoID != "v1" {
		t.Errorf("Display() = %+v, want stale v2 excluded after resolution", entries)
	}

	// The fresh resolution is memoized.
	e.mu.Lock()
	owner, known := e.owners["v2"]
	e.mu.Unlock()
	if !known || owner != "UCelsewhere" {
		t.Errorf("cached owner = %q (known %v), want UCelsewhere", owner, known)
	}
}

func TestDisplayRestrictResolveFailureAdmits(t *testing.T) {
	gw := newFakeGateway()
	gw.classes["v1"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v2"] = youtube.Classification{State: youtube.StateLive}
	gw.classes["v3"] = youtube.Classification{State: youtube.StateLive}
	gw.ownersErr = errors.New("transport down")
	e := newTestEngine(t, gw, &memStore{snap: restrictedSnapshot()})

	e.mu.Lock()
	delete(e.owners, "v2")
	e.mu.Unlock()

	entries, err := e.Display(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// v2 could not be verified, so it is admitted rather than hidden.
	if len(entries) != 2 {
		t.Errorf("Display() = %+v, want v1 and v2", entries)
	}

	// The failure is not memoized as "no owner".
	e.mu.Lock()
	_, known := e.owners["v2"]
	e.mu.Unlock()
	if known {
		t.Error("resolution failure was cached")
	}
}
