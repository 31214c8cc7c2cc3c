package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"clipmorph/internal/config"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

const tiktokInitURL = "https://open.tiktokapis.com/v2/post/publish/video/init/"

// TikTokPlatform publishes clips through the TikTok Content Posting API
// direct-post flow: an init call returns an upload URL, then the video bytes
// go to that URL in a single range.
type TikTokPlatform struct {
	cfg     config.TikTok
	client  *http.Client
	initURL string
}

// NewTikTokPlatform builds a client from the configured access token.
func NewTikTokPlatform(cfg config.TikTok, client *http.Client) *TikTokPlatform {
	if client == nil {
		client = http.DefaultClient
	}
	return &TikTokPlatform{cfg: cfg, client: client, initURL: tiktokInitURL}
}

func (p *TikTokPlatform) Name() string { return "tiktok" }

func (p *TikTokPlatform) Upload(ctx context.Context, clip Clip) (queue.UploadResult, error) {
	var zero queue.UploadResult

	video, err := os.ReadFile(clip.ArtifactPath)
	if err != nil {
		return zero, services.Wrap(services.ErrConfiguration, p.Name(), "read artifact", "", err)
	}

	publishID, uploadURL, err := p.initPublish(ctx, clip.Title, len(video))
	if err != nil {
		return zero, err
	}
	if err := p.sendVideo(ctx, uploadURL, video); err != nil {
		return zero, err
	}
	return newResult(p.Name(), publishID, ""), nil
}

func (p *TikTokPlatform) initPublish(ctx context.Context, title string, size int) (string, string, error) {
	payload, err := json.Marshal(map[string]any{
		"post_info": map[string]any{
			"title":           title,
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_duet":    false,
			"disable_comment": false,
			"disable_stitch":  false,
		},
		"source_info": map[string]any{
			"source":            "FILE_UPLOAD",
			"video_size":        size,
			"chunk_size":        size,
			"total_chunk_count": 1,
		},
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.initURL, bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", services.Wrap(services.ErrTransient, p.Name(), "init publish", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", classifyHTTPStatus(p.Name(), "init publish", resp.StatusCode, drainBody(resp.Body))
	}

	var body struct {
		Data struct {
			PublishID string `json:"publish_id"`
			UploadURL string `json:"upload_url"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, p.Name(), "init publish", "parse response", err)
	}
	if body.Error.Code != "" && body.Error.Code != "ok" {
		return "", "", services.Wrap(services.ErrExternalTool, p.Name(), "init publish",
			fmt.Sprintf("%s: %s", body.Error.Code, body.Error.Message), nil)
	}
	if body.Data.PublishID == "" || body.Data.UploadURL == "" {
		return "", "", services.Wrap(services.ErrExternalTool, p.Name(), "init publish", "incomplete init response", nil)
	}
	return body.Data.PublishID, body.Data.UploadURL, nil
}

func (p *TikTokPlatform) sendVideo(ctx context.Context, uploadURL string, video []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(video))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(video)-1, len(video)))
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, p.Name(), "send video", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return classifyHTTPStatus(p.Name(), "send video", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}
