package youtube

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"multiview/filter"
	"multiview/retry"
)

const (
	// searchPageSize bounds one search.list result page.
	searchPageSize = 10
	// maxBatchIDs is the videos.list batch limit.
	maxBatchIDs = 50
)

// Gateway is the remote status gateway over the YouTube Data API v3.
// All operations carry the configured API key; Ready reports whether a
// key is configured at all. Gateway methods never panic: remote
// failures surface as typed outcomes (nil broadcast, StateUnknown,
// placeholder name) or as *APIError for API-reported failures.
type Gateway struct {
	api    broadcastAPI
	apiKey string
}

// NewGateway creates a gateway using the given API key and retry
// configuration. An empty key produces a gateway that is not Ready;
// operations requiring the credential return ErrNoCredential.
func NewGateway(ctx context.Context, apiKey string, retryCfg retry.Config) (*Gateway, error) {
	g := &Gateway{apiKey: apiKey}
	if apiKey == "" {
		return g, nil
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	g.api = &dataAPI{
		service:     service,
		retryConfig: retryCfg,
	}
	return g, nil
}

// Ready reports whether an API credential is configured.
func (g *Gateway) Ready() bool {
	return g.apiKey != "" && g.api != nil
}

// FindBroadcast looks for the channel's current broadcast: live results
// first, then upcoming results ordered by start date. Among the results
// it takes the first whose owning channel matches and whose title
// passes the keyword filter. A nil broadcast with nil error means no
// broadcast was found; an error means the query itself failed and must
// not be interpreted as "no broadcast".
func (g *Gateway) FindBroadcast(ctx context.Context, channelID string, keywords []string) (*Broadcast, error) {
	if !g.Ready() {
		return nil, ErrNoCredential
	}

	phases := []struct {
		eventType string
		state     BroadcastState
	}{
		{"live", StateLive},
		{"upcoming", StateUpcoming},
	}

	for _, phase := range phases {
		results, err := g.api.searchBroadcasts(ctx, channelID, phase.eventType, searchPageSize)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if r.VideoID == "" {
				continue
			}
			if r.ChannelID != "" && r.ChannelID != channelID {
				continue
			}
			if !filter.Admits(r.Title, keywords) {
				continue
			}
			return &Broadcast{VideoID: r.VideoID, State: phase.state}, nil
		}
	}

	return nil, nil
}

// DisplayName fetches the channel's display name. Best-effort: on any
// failure or empty result it returns DefaultDisplayName, never an error.
func (g *Gateway) DisplayName(ctx context.Context, channelID string) string {
	if !g.Ready() {
		return DefaultDisplayName
	}

	title, err := g.api.channelTitle(ctx, channelID)
	if err != nil {
		log.Printf("multiview: display name lookup for %s failed: %v", channelID, err)
		return DefaultDisplayName
	}
	if title == "" {
		return DefaultDisplayName
	}
	return title
}

// ClassifyVideo returns the current broadcast classification of one
// video. Transport and parse failures degrade to StateUnknown.
func (g *Gateway) ClassifyVideo(ctx context.Context, videoID string) Classification {
	return g.ClassifyVideos(ctx, []string{videoID})[videoID]
}

// ClassifyVideos classifies a set of videos, batching videos.list calls
// at 50 ids per request. Every requested id is present in the result;
// ids missing from the response, and entire failed batches, map to
// StateUnknown.
func (g *Gateway) ClassifyVideos(ctx context.Context, videoIDs []string) map[string]Classification {
	out := make(map[string]Classification, len(videoIDs))
	for _, id := range videoIDs {
		out[id] = Classification{State: StateUnknown}
	}
	if !g.Ready() || len(videoIDs) == 0 {
		return out
	}

	for _, batch := range batches(videoIDs, maxBatchIDs) {
		results, err := g.api.listVideos(ctx, batch)
		if err != nil {
			log.Printf("multiview: classify batch of %d failed: %v", len(batch), err)
			continue
		}
		for _, v := range results {
			out[v.ID] = classify(v)
		}
	}
	return out
}

// ResolveOwners resolves the owning channel id of each video, batching
// at 50 ids per request. Ids missing from the response map to the empty
// string (explicit "none"). Unlike classification, a failed query is an
// error: callers memoize results and must not record "none" for videos
// that were never looked up.
func (g *Gateway) ResolveOwners(ctx context.Context, videoIDs []string) (map[string]string, error) {
	if !g.Ready() {
		return nil, ErrNoCredential
	}

	out := make(map[string]string, len(videoIDs))
	for _, id := range videoIDs {
		out[id] = ""
	}

	for _, batch := range batches(videoIDs, maxBatchIDs) {
		results, err := g.api.listVideos(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, v := range results {
			out[v.ID] = v.ChannelID
		}
	}
	return out, nil
}

// classify derives the broadcast state from a videos.list item:
// flag "live" is live; flag "upcoming" is upcoming; flag "none" is
// ended only when an actual end timestamp is present, otherwise
// unknown; any other flag value is ended.
func classify(v videoResult) Classification {
	switch v.LiveBroadcastContent {
	case "live":
		return Classification{State: StateLive, Title: v.Title}
	case "upcoming":
		return Classification{State: StateUpcoming, Title: v.Title}
	case "none":
		if v.HasActualEndTime {
			return Classification{State: StateEnded, Title: v.Title}
		}
		return Classification{State: StateUnknown, Title: v.Title}
	default:
		return Classification{State: StateEnded, Title: v.Title}
	}
}

// batches splits ids into chunks of at most size.
func batches(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
