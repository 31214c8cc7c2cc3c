package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"clipmorph/internal/config"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

// Graph API endpoints and polling bounds.
const (
	instagramGraphURL   = "https://graph.facebook.com/v23.0"
	instagramRuploadURL = "https://rupload.facebook.com/ig-api-upload/v23.0"

	instagramPollInterval = 5 * time.Second
	instagramMaxPolls     = 60
)

// InstagramPlatform publishes clips as Reels through the Graph API resumable
// upload flow: create a media container, push the bytes, poll until processing
// finishes, then publish.
type InstagramPlatform struct {
	cfg          config.Instagram
	client       *http.Client
	graphURL     string
	ruploadURL   string
	pollInterval time.Duration
}

// NewInstagramPlatform builds a client from the configured credentials.
func NewInstagramPlatform(cfg config.Instagram, client *http.Client) *InstagramPlatform {
	if client == nil {
		client = http.DefaultClient
	}
	return &InstagramPlatform{
		cfg:          cfg,
		client:       client,
		graphURL:     instagramGraphURL,
		ruploadURL:   instagramRuploadURL,
		pollInterval: instagramPollInterval,
	}
}

func (p *InstagramPlatform) Name() string { return "instagram" }

func (p *InstagramPlatform) Upload(ctx context.Context, clip Clip) (queue.UploadResult, error) {
	var zero queue.UploadResult

	video, err := os.ReadFile(clip.ArtifactPath)
	if err != nil {
		return zero, services.Wrap(services.ErrConfiguration, p.Name(), "read artifact", "", err)
	}

	containerID, err := p.createContainer(ctx, clip.Title)
	if err != nil {
		return zero, err
	}
	if err := p.sendVideo(ctx, containerID, video); err != nil {
		return zero, err
	}
	if err := p.waitForProcessing(ctx, containerID); err != nil {
		return zero, err
	}
	mediaID, err := p.publish(ctx, containerID)
	if err != nil {
		return zero, err
	}
	return newResult(p.Name(), mediaID, ""), nil
}

func (p *InstagramPlatform) createContainer(ctx context.Context, caption string) (string, error) {
	form := url.Values{
		"media_type":    {"REELS"},
		"upload_type":   {"resumable"},
		"caption":       {caption},
		"share_to_feed": {"true"},
		"access_token":  {p.cfg.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/media", p.graphURL, p.cfg.UserID)
	body, err := p.postForm(ctx, "create container", endpoint, form)
	if err != nil {
		return "", err
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &container); err != nil || container.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "create container", "missing container id", err)
	}
	return container.ID, nil
}

func (p *InstagramPlatform) sendVideo(ctx context.Context, containerID string, video []byte) error {
	endpoint := fmt.Sprintf("%s/%s", p.ruploadURL, containerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(video))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+p.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Offset", "0")
	req.Header.Set("File_size", fmt.Sprintf("%d", len(video)))
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, p.Name(), "send video", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(p.Name(), "send video", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

// waitForProcessing polls the container status until Instagram finishes
// transcoding. A container stuck in progress past the poll budget counts as a
// timeout so the caller may retry.
func (p *InstagramPlatform) waitForProcessing(ctx context.Context, containerID string) error {
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		p.graphURL, containerID, url.QueryEscape(p.cfg.AccessToken))

	for poll := 0; poll < instagramMaxPolls; poll++ {
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

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return services.Wrap(services.ErrExternalTool, p.Name(), "poll status", "parse response", err)
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return services.Wrap(services.ErrExternalTool, p.Name(), "poll status", "container processing failed", nil)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	return services.Wrap(services.ErrUpstreamTimeout, p.Name(), "poll status",
		"container did not finish processing within the poll budget", nil)
}

func (p *InstagramPlatform) publish(ctx context.Context, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {p.cfg.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/media_publish", p.graphURL, p.cfg.UserID)
	body, err := p.postForm(ctx, "publish", endpoint, form)
	if err != nil {
		return "", err
	}

	var published struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &published); err != nil || published.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "publish", "missing media id", err)
	}
	return published.ID, nil
}

func (p *InstagramPlatform) postForm(ctx context.Context, op, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(form.Encode())))
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
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(p.Name(), op, resp.StatusCode, body)
	}
	return body, nil
}
