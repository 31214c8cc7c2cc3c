package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownPlatforms = map[string]struct{}{
	"youtube":   {},
	"tiktok":    {},
	"instagram": {},
	"twitter":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	if p.TargetAspectW <= 0 || p.TargetAspectH <= 0 {
		return errors.New("pipeline.target_aspect_w and pipeline.target_aspect_h must be positive")
	}
	switch p.FillPreference {
	case "blur", "solid":
	default:
		return fmt.Errorf("pipeline.fill_preference must be blur or solid, got %q", p.FillPreference)
	}
	switch p.CameraPlacement {
	case "top", "bottom":
	default:
		return fmt.Errorf("pipeline.camera_placement_preference must be top or bottom, got %q", p.CameraPlacement)
	}
	switch p.RedactionMode {
	case "mute_only", "mute_and_blank", "mute_and_asterisk":
	default:
		return fmt.Errorf("pipeline.redaction_mode must be mute_only, mute_and_blank, or mute_and_asterisk, got %q", p.RedactionMode)
	}
	if p.CameraHeightFrac <= 0 || p.CameraHeightFrac > 1.0/3.0 {
		return errors.New("pipeline.camera_height_fraction must be positive and fit the hosting third")
	}
	if len(p.CameraRegion) != 0 {
		if len(p.CameraRegion) != 4 {
			return errors.New("pipeline.camera_region must be [x, y, width, height]")
		}
		if p.CameraRegion[0] < 0 || p.CameraRegion[1] < 0 || p.CameraRegion[2] <= 0 || p.CameraRegion[3] <= 0 {
			return errors.New("pipeline.camera_region must have non-negative origin and positive size")
		}
	}
	if p.SilenceGapMS <= 0 {
		return errors.New("pipeline.silence_gap_ms must be positive")
	}
	if p.CensorPadMS < 0 {
		return errors.New("pipeline.censor_pad_ms must be >= 0")
	}
	if p.MaxCueChars <= 0 {
		return errors.New("pipeline.max_cue_chars must be positive")
	}
	if p.MaxCueDurationMS <= 0 {
		return errors.New("pipeline.max_cue_duration_ms must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.FFmpegPath) == "" {
		return errors.New("render.ffmpeg_path must be set")
	}
	if strings.TrimSpace(c.Render.FFprobePath) == "" {
		return errors.New("render.ffprobe_path must be set")
	}
	if c.Render.OutputWidth <= 0 || c.Render.OutputHeight <= 0 {
		return errors.New("render.output_width and render.output_height must be positive")
	}
	if c.Render.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
		"diarization.timeout_seconds":   c.Diarization.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.WatchPollInterval < 0 {
		return errors.New("workflow.watch_poll_interval must not be negative")
	}
	if c.Workflow.WatchSettleSeconds < 0 {
		return errors.New("workflow.watch_settle_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	if len(c.Upload.Platforms) == 0 {
		return errors.New("upload.platforms must include at least one platform when upload.enabled is true")
	}
	for _, platform := range c.Upload.Platforms {
		if _, ok := knownPlatforms[platform]; !ok {
			return fmt.Errorf("upload.platforms contains unknown platform %q", platform)
		}
		switch platform {
		case "youtube":
			if c.Upload.YouTube.ClientID == "" || c.Upload.YouTube.ClientSecret == "" || c.Upload.YouTube.RefreshToken == "" {
				return errors.New("upload.youtube requires client_id, client_secret, and refresh_token")
			}
		case "tiktok":
			if c.Upload.TikTok.AccessToken == "" {
				return errors.New("upload.tiktok requires access_token")
			}
		case "instagram":
			if c.Upload.Instagram.AccessToken == "" || c.Upload.Instagram.UserID == "" {
				return errors.New("upload.instagram requires access_token and user_id")
			}
		case "twitter":
			if c.Upload.Twitter.APIKey == "" || c.Upload.Twitter.AccessToken == "" {
				return errors.New("upload.twitter requires api_key and access_token")
			}
		}
	}
	if c.Upload.MaxAttempts <= 0 {
		return errors.New("upload.max_attempts must be positive")
	}
	if c.Upload.RetryBackoffSeconds <= 0 {
		return errors.New("upload.retry_backoff_seconds must be positive")
	}
	if c.Upload.TimeoutSeconds <= 0 {
		return errors.New("upload.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && strings.ContainsAny(c.Notifications.NtfyTopic, " \t") {
		return errors.New("notifications.ntfy_topic must not contain whitespace")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
