package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"multiview/store"
	"multiview/youtube"
)

func TestExportDocument(t *testing.T) {
	snap := store.NewSnapshot()
	snap.Videos = []string{"vid1"}
	snap.Channels = []store.ChannelRecord{
		{ChannelID: "UC1", Name: "One", VideoID: "vid1", Status: "live", Keywords: []string{"asmr"}},
		{ChannelID: "UC2", Name: "Two", Status: "none"},
	}
	e := newTestEngine(t, newFakeGateway(), &memStore{snap: snap})

	doc := e.Export()
	if doc.Version != exportVersion {
		t.Errorf("Version = %d, want %d", doc.Version, exportVersion)
	}
	if _, err := uuid.Parse(doc.ExportID); err != nil {
		t.Errorf("ExportID = %q, not a UUID: %v", doc.ExportID, err)
	}
	if doc.ExportDate.IsZero() {
		t.Error("ExportDate is zero")
	}
	if len(doc.Channels) != 2 {
		t.Fatalf("Channels = %+v, want 2 entries", doc.Channels)
	}
	if doc.Channels[0].ChannelID != "UC1" || doc.Channels[0].Name != "One" {
		t.Errorf("first channel = %+v", doc.Channels[0])
	}
	if len(doc.Channels[0].KeywordFilter) != 1 || doc.Channels[0].KeywordFilter[0] != "asmr" {
		t.Errorf("keywords = %v, want [asmr]", doc.Channels[0].KeywordFilter)
	}
}

func TestImportAdditive(t *testing.T) {
	gw := newFakeGateway()
	gw.broadcasts["UC2"] = liveBroadcast("vid2")
	e := newTestEngine(t, gw, &memStore{})
	if _, err := e.AddChannel(context.Background(), "UC1"); err != nil {
		t.Fatal(err)
	}

	doc := &ExportDocument{
		Version: exportVersion,
		Channels: []ExportChannel{
			{ChannelID: "UC1", Name: "Renamed"}, // already tracked
			{ChannelID: "UC2", Name: "Two", KeywordFilter: []string{"歌", "ASMR"}},
			{ChannelID: ""}, // malformed entry
		},
	}

	res, err := e.Import(context.Background(), doc)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Added != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want Added 1 Skipped 1", res)
	}

	channels := e.Channels()
	if len(channels) != 2 {
		t.Fatalf("channels = %+v, want 2", channels)
	}
	if channels[0].Name == "Renamed" {
		t.Error("import overwrote an existing channel")
	}
	ch := channels[1]
	if ch.ChannelID != "UC2" || ch.Name != "Two" {
		t.Errorf("imported channel = %+v", ch)
	}
	if len(ch.Keywords) != 2 || ch.Keywords[0] != "歌" || ch.Keywords[1] != "asmr" {
		t.Errorf("keywords = %v, want normalized [歌 asmr]", ch.Keywords)
	}
	if ch.VideoID != "vid2" || ch.Status != youtube.StateLive {
		t.Errorf("imported channel = %+v, want bound to its live broadcast", ch)
	}
}

func TestImportLookupFailureRegistersUnbound(t *testing.T) {
	gw := newFakeGateway()
	gw.findErr["UC1"] = &youtube.APIError{Code: 503, Reason: "backendError"}
	e := newTestEngine(t, gw, &memStore{})

	doc := &ExportDocument{Channels: []ExportChannel{{ChannelID: "UC1", Name: "One"}}}
	res, err := e.Import(context.Background(), doc)
	if err != nil {
		t.Fatalf("Import() error = %v, want best-effort success", err)
	}
	if res.Added != 1 {
		t.Errorf("result = %+v, want Added 1", res)
	}
	ch := e.Channels()[0]
	if ch.VideoID != "" || ch.Status != youtube.StateNone {
		t.Errorf("channel = %+v, want unbound", ch)
	}
}

func TestImportWithoutCredential(t *testing.T) {
	gw := newFakeGateway()
	gw.ready = false
	e := newTestEngine(t, gw, &memStore{})

	doc := &ExportDocument{Channels: []ExportChannel{{ChannelID: "UC1"}}}
	res, err := e.Import(context.Background(), doc)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Added != 1 {
		t.Errorf("result = %+v, want Added 1", res)
	}
	ch := e.Channels()[0]
	if ch.Name != youtube.DefaultDisplayName {
		t.Errorf("name = %q, want placeholder", ch.Name)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	snap := store.NewSnapshot()
	snap.Channels = []store.ChannelRecord{
		{ChannelID: "UC1", Name: "One", Status: "none", Keywords: []string{"asmr"}},
		{ChannelID: "UC2", Name: "Two", Status: "none"},
	}
	src := newTestEngine(t, newFakeGateway(), &memStore{snap: snap})

	dst := newTestEngine(t, newFakeGateway(), &memStore{})
	res, err := dst.Import(context.Background(), src.Export())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Added != 2 || res.Skipped != 0 {
		t.Errorf("result = %+v, want Added 2 Skipped 0", res)
	}

	channels := dst.Channels()
	if len(channels) != 2 || channels[0].ChannelID != "UC1" || channels[1].ChannelID != "UC2" {
		t.Errorf("channels = %+v", channels)
	}
	if len(channels[0].Keywords) != 1 || channels[0].Keywords[0] != "asmr" {
		t.Errorf("keywords = %v, want [asmr]", channels[0].Keywords)
	}
}
