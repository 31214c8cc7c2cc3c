package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"

	"clipmorph/internal/config"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

// Twitter endpoints and chunked-upload bounds.
const (
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	twitterTweetURL  = "https://api.twitter.com/2/tweets"

	twitterChunkSize    = 4 * 1024 * 1024
	twitterPollInterval = 5 * time.Second
	twitterMaxPolls     = 30
)

// TwitterPlatform publishes clips through the v1.1 chunked media upload flow
// (INIT, APPEND, FINALIZE, STATUS) followed by a v2 tweet referencing the
// uploaded media. Requests are OAuth1-signed.
type TwitterPlatform struct {
	client       *http.Client
	uploadURL    string
	tweetURL     string
	pollInterval time.Duration
}

// NewTwitterPlatform builds an OAuth1-signing client from the configured
// credentials.
func NewTwitterPlatform(cfg config.Twitter, base *http.Client) *TwitterPlatform {
	oauthCfg := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	}
	return &TwitterPlatform{
		client:       oauthCfg.Client(ctx, token),
		uploadURL:    twitterUploadURL,
		tweetURL:     twitterTweetURL,
		pollInterval: twitterPollInterval,
	}
}

func (p *TwitterPlatform) Name() string { return "twitter" }

func (p *TwitterPlatform) Upload(ctx context.Context, clip Clip) (queue.UploadResult, error) {
	var zero queue.UploadResult

	video, err := os.ReadFile(clip.ArtifactPath)
	if err != nil {
		return zero, services.Wrap(services.ErrConfiguration, p.Name(), "read artifact", "", err)
	}

	mediaID, err := p.initUpload(ctx, len(video))
	if err != nil {
		return zero, err
	}
	if err := p.appendChunks(ctx, mediaID, video); err != nil {
		return zero, err
	}
	if err := p.finalize(ctx, mediaID); err != nil {
		return zero, err
	}
	if err := p.waitForProcessing(ctx, mediaID); err != nil {
		return zero, err
	}

	tweetID, err := p.createTweet(ctx, clip.Title, mediaID)
	if err != nil {
		return zero, err
	}
	return newResult(p.Name(), tweetID, "https://x.com/i/status/"+tweetID), nil
}

type twitterMediaResponse struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

func (p *TwitterPlatform) initUpload(ctx context.Context, size int) (string, error) {
	form := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(size)},
		"media_type":     {"video/mp4"},
		"media_category": {"tweet_video"},
	}
	body, err := p.postForm(ctx, "init upload", form)
	if err != nil {
		return "", err
	}

	var media twitterMediaResponse
	if err := json.Unmarshal(body, &media); err != nil || media.MediaIDString == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "init upload", "missing media id", err)
	}
	return media.MediaIDString, nil
}

func (p *TwitterPlatform) appendChunks(ctx context.Context, mediaID string, video []byte) error {
	for index := 0; index*twitterChunkSize < len(video); index++ {
		start := index * twitterChunkSize
		end := min(start+twitterChunkSize, len(video))
		if err := p.appendChunk(ctx, mediaID, index, video[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *TwitterPlatform) appendChunk(ctx context.Context, mediaID string, index int, chunk []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("command", "APPEND")
	_ = writer.WriteField("media_id", mediaID)
	_ = writer.WriteField("segment_index", strconv.Itoa(index))
	part, err := writer.CreateFormFile("media", "clip.mp4")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, p.Name(), "append chunk", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyHTTPStatus(p.Name(), "append chunk", resp.StatusCode, drainBody(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p *TwitterPlatform) finalize(ctx context.Context, mediaID string) error {
	form := url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	}
	_, err := p.postForm(ctx, "finalize upload", form)
	return err
}

// waitForProcessing polls STATUS until the media transcode succeeds or fails.
func (p *TwitterPlatform) waitForProcessing(ctx context.Context, mediaID string) error {
	endpoint := fmt.Sprintf("%s?command=STATUS&media_id=%s", p.uploadURL, url.QueryEscape(mediaID))

	for poll := 0; poll < twitterMaxPolls; poll++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return services.Wrap(services.ErrTransient, p.Name(), "poll status", "", err)
		}
		body := drainBody(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return classifyHTTPStatus(p.Name(), "poll status", resp.StatusCode, body)
		}

		var media twitterMediaResponse
		if err := json.Unmarshal(body, &media); err != nil {
			return services.Wrap(services.ErrExternalTool, p.Name(), "poll status", "parse response", err)
		}
		if media.ProcessingInfo == nil {
			return nil
		}
		switch media.ProcessingInfo.State {
		case "succeeded":
			return nil
		case "failed":
			detail := "media processing failed"
			if media.ProcessingInfo.Error != nil {
				detail = media.ProcessingInfo.Error.Message
			}
			return services.Wrap(services.ErrExternalTool, p.Name(), "poll status", detail, nil)
		}

		wait := p.pollInterval
		if secs := media.ProcessingInfo.CheckAfterSecs; secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return services.Wrap(services.ErrUpstreamTimeout, p.Name(), "poll status",
		"media did not finish processing within the poll budget", nil)
}

func (p *TwitterPlatform) createTweet(ctx context.Context, text, mediaID string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"text": text,
		"media": map[string]any{
			"media_ids": []string{mediaID},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tweetURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, p.Name(), "create tweet", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyHTTPStatus(p.Name(), "create tweet", resp.StatusCode, drainBody(resp.Body))
	}

	var tweet struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tweet); err != nil || tweet.Data.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "create tweet", "missing tweet id", err)
	}
	return tweet.Data.ID, nil
}

func (p *TwitterPlatform) postForm(ctx context.Context, op string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, p.Name(), op, "", err)
	}
	defer resp.Body.Close()
	body := drainBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyHTTPStatus(p.Name(), op, resp.StatusCode, body)
	}
	return body, nil
}
