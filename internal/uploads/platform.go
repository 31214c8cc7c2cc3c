package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

// Clip is the publishable artifact handed to each platform client.
type Clip struct {
	Title        string
	Description  string
	ArtifactPath string
}

// Platform publishes one clip to one destination.
type Platform interface {
	Name() string
	Upload(ctx context.Context, clip Clip) (queue.UploadResult, error)
}

const userAgent = "ClipMorph-Go/0.1.0"

// classifyHTTPStatus tags an unexpected response status so the retry loop can
// tell throttling and outages apart from rejected requests.
func classifyHTTPStatus(platform, op string, status int, body []byte) error {
	detail := fmt.Sprintf("unexpected status %d: %s", status, strings.TrimSpace(string(body)))
	marker := services.ErrExternalTool
	if status == http.StatusTooManyRequests || status >= 500 {
		marker = services.ErrTransient
	}
	return services.Wrap(marker, platform, op, detail, nil)
}

// drainBody reads a bounded amount of an error response for diagnostics.
func drainBody(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return body
}

func newResult(platform, mediaID, url string) queue.UploadResult {
	return queue.UploadResult{
		Platform:   platform,
		MediaID:    mediaID,
		URL:        url,
		UploadedAt: time.Now().UTC(),
	}
}
