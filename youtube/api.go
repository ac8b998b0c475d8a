package youtube

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"multiview/retry"
)

// dataAPI implements broadcastAPI using the YouTube Data API v3.
// All calls go through retry.Do with apiErrorClassifier.
type dataAPI struct {
	service     *youtube.Service
	retryConfig retry.Config
}

func (a *dataAPI) searchBroadcasts(ctx context.Context, channelID, eventType string, max int64) ([]searchResult, error) {
	var out []searchResult

	err := retry.Do(ctx, a.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			EventType(eventType).
			Type("video").
			MaxResults(max).
			Context(ctx)
		if eventType == "upcoming" {
			call = call.Order("date")
		}

		resp, err := call.Do()
		if err != nil {
			return wrapAPIError(err)
		}

		out = out[:0]
		for _, item := range resp.Items {
			var r searchResult
			if item.Id != nil {
				r.VideoID = item.Id.VideoId
			}
			if item.Snippet != nil {
				r.ChannelID = item.Snippet.ChannelId
				r.Title = item.Snippet.Title
			}
			out = append(out, r)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *dataAPI) channelTitle(ctx context.Context, channelID string) (string, error) {
	var title string

	err := retry.Do(ctx, a.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Channels.List([]string{"snippet"}).
			Id(channelID).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return wrapAPIError(err)
		}

		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}
		if resp.Items[0].Snippet != nil {
			title = resp.Items[0].Snippet.Title
		}
		return nil
	})

	if err != nil {
		return "", err
	}
	return title, nil
}

func (a *dataAPI) listVideos(ctx context.Context, ids []string) ([]videoResult, error) {
	var out []videoResult

	err := retry.Do(ctx, a.retryConfig, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Videos.List([]string{"snippet", "liveStreamingDetails"}).
			Id(ids...).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return wrapAPIError(err)
		}

		out = out[:0]
		for _, item := range resp.Items {
			v := videoResult{ID: item.Id}
			if item.Snippet != nil {
				v.Title = item.Snippet.Title
				v.ChannelID = item.Snippet.ChannelId
				v.LiveBroadcastContent = item.Snippet.LiveBroadcastContent
			}
			if item.LiveStreamingDetails != nil && item.LiveStreamingDetails.ActualEndTime != "" {
				v.HasActualEndTime = true
			}
			out = append(out, v)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// wrapAPIError converts googleapi errors into *APIError so callers can
// distinguish API-reported failures from transport problems.
func wrapAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 {
			reason = gerr.Errors[0].Reason
		}
		return &APIError{Code: gerr.Code, Reason: reason, Message: gerr.Message}
	}
	return err
}

// apiErrorClassifier determines if a Data API error is retryable.
// Client-side API errors (bad key, quota) are permanent; rate limits
// and server errors are retried.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrChannelNotFound) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Reason == "rateLimitExceeded" {
			return true
		}
		return apiErr.Code >= 500
	}

	// Transport errors default to retryable.
	return true
}
