package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"clipmorph/internal/config"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

// Google API endpoints, overridable in tests.
const (
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	youtubeUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"
)

// YouTubePlatform publishes clips through the YouTube Data API v3 resumable
// upload flow. The refresh token is exchanged for a short-lived access token
// on every upload.
type YouTubePlatform struct {
	cfg       config.YouTube
	client    *http.Client
	tokenURL  string
	uploadURL string
}

// NewYouTubePlatform builds a client from the configured credentials.
func NewYouTubePlatform(cfg config.YouTube, client *http.Client) *YouTubePlatform {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTubePlatform{
		cfg:       cfg,
		client:    client,
		tokenURL:  googleTokenURL,
		uploadURL: youtubeUploadURL,
	}
}

func (p *YouTubePlatform) Name() string { return "youtube" }

// Upload starts a resumable session, streams the video in one shot, and
// returns the assigned video ID.
func (p *YouTubePlatform) Upload(ctx context.Context, clip Clip) (queue.UploadResult, error) {
	var zero queue.UploadResult

	accessToken, err := p.exchangeRefreshToken(ctx)
	if err != nil {
		return zero, err
	}

	video, err := os.ReadFile(clip.ArtifactPath)
	if err != nil {
		return zero, services.Wrap(services.ErrConfiguration, p.Name(), "read artifact", "", err)
	}

	sessionURL, err := p.startSession(ctx, accessToken, clip, len(video))
	if err != nil {
		return zero, err
	}

	videoID, err := p.sendVideo(ctx, accessToken, sessionURL, video)
	if err != nil {
		return zero, err
	}

	return newResult(p.Name(), videoID, "https://youtube.com/shorts/"+videoID), nil
}

func (p *YouTubePlatform) exchangeRefreshToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {p.cfg.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, p.Name(), "token exchange", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPStatus(p.Name(), "token exchange", resp.StatusCode, drainBody(resp.Body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "token exchange", "parse response", err)
	}
	if token.AccessToken == "" {
		return "", services.Wrap(services.ErrConfiguration, p.Name(), "token exchange", "empty access token", nil)
	}
	return token.AccessToken, nil
}

func (p *YouTubePlatform) startSession(ctx context.Context, accessToken string, clip Clip, size int) (string, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"title":       clip.Title,
			"description": clip.Description,
			"categoryId":  p.cfg.CategoryID,
		},
		"status": map[string]any{
			"privacyStatus": p.cfg.Privacy,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := p.uploadURL + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Upload-Content-Type", "video/mp4")
	req.Header.Set("X-Upload-Content-Length", strconv.Itoa(size))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, p.Name(), "start session", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPStatus(p.Name(), "start session", resp.StatusCode, drainBody(resp.Body))
	}

	session := resp.Header.Get("Location")
	if session == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "start session", "missing session location", nil)
	}
	return session, nil
}

func (p *YouTubePlatform) sendVideo(ctx context.Context, accessToken, sessionURL string, video []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(video))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, p.Name(), "send video", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyHTTPStatus(p.Name(), "send video", resp.StatusCode, drainBody(resp.Body))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "send video", "parse response", err)
	}
	if uploaded.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, p.Name(), "send video",
			"upload accepted but no video id returned", nil)
	}
	return uploaded.ID, nil
}
