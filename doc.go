// Package multiview maintains a live view of a user-curated set of
// YouTube streams.
//
// Tracked channels are polled against the YouTube Data API v3, each
// channel's current broadcast is classified (live, upcoming, ended, or
// unknown), and discovered videos are merged into a canonical
// deduplicated video set. On demand the engine computes an ordered
// displayable list: live broadcasts first, then upcoming ones, each
// group in discovery order.
//
// # Overview
//
// The module is organized around a small set of packages:
//
//   - engine: the reconciliation engine owning all tracked state
//   - youtube: the remote status gateway over the Data API v3
//   - store: JSON snapshot persistence
//   - videoid: video identifier extraction from URLs and raw ids
//   - filter: keyword-based admission filtering
//   - config: configuration management
//   - retry: exponential backoff retry logic
//
// # Quick Start
//
// Track a channel and compute the displayable set:
//
//	st, err := store.NewFileStore("state.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer st.Close()
//
//	gw, err := youtube.NewGateway(ctx, apiKey, retry.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng, err := engine.New(gw, st)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := eng.AddChannel(ctx, "UCxxxxxxxxxxxxxxxxxxxxxx"); err != nil {
//		log.Fatal(err)
//	}
//	entries, err := eng.Display(ctx)
//
// # Configuration
//
// Settings load from multiple sources, highest priority first:
//
//  1. Environment variables (MULTIVIEW_*)
//  2. Config file (multiview.json or ~/.config/multiview/multiview.json)
//  3. Default values
//
// # Error Handling
//
// All operations return errors that implement standard Go error
// handling. Sentinel errors:
//
//	if errors.Is(err, multiview.ErrChannelExists) {
//		fmt.Println("channel already tracked")
//	}
//
// API-reported errors (quota, bad credential) carry details:
//
//	var apiErr *multiview.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("api error %d: %s\n", apiErr.Code, apiErr.Message)
//	}
package multiview
