package transcript

import (
	"context"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// YouTubeFetcher fetches transcripts from YouTube.
type YouTubeFetcher struct {
	client *youtube.Client
}

var _ Fetcher = (*YouTubeFetcher)(nil)

// NewYouTubeFetcher creates a fetcher. A nil httpClient uses http.DefaultClient.
func NewYouTubeFetcher(httpClient *http.Client) *YouTubeFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeFetcher{
		client: &youtube.Client{HTTPClient: httpClient},
	}
}

// FetchTranscript returns the text of each caption segment in order.
func (f *YouTubeFetcher) FetchTranscript(ctx context.Context, videoID, language string) ([]string, error) {
	video, err := f.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, err
	}

	transcript, err := f.client.GetTranscriptCtx(ctx, video, language)
	if err != nil {
		return nil, err
	}

	segments := make([]string, 0, len(transcript))
	for _, seg := range transcript {
		segments = append(segments, seg.Text)
	}
	return segments, nil
}
