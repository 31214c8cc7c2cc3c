package config

import "os"

// applyEnvOverrides lets credentials come from the environment instead of the
// config file. Environment values win over file values.
func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"HF_TOKEN":               &c.Diarization.HFToken,
		"YOUTUBE_CLIENT_ID":      &c.Upload.YouTube.ClientID,
		"YOUTUBE_CLIENT_SECRET":  &c.Upload.YouTube.ClientSecret,
		"YOUTUBE_REFRESH_TOKEN":  &c.Upload.YouTube.RefreshToken,
		"TIKTOK_ACCESS_TOKEN":    &c.Upload.TikTok.AccessToken,
		"INSTAGRAM_ACCESS_TOKEN": &c.Upload.Instagram.AccessToken,
		"TWITTER_API_KEY":        &c.Upload.Twitter.APIKey,
		"TWITTER_API_SECRET":     &c.Upload.Twitter.APISecret,
		"TWITTER_ACCESS_TOKEN":   &c.Upload.Twitter.AccessToken,
		"TWITTER_ACCESS_SECRET":  &c.Upload.Twitter.AccessSecret,
		"NTFY_TOPIC":             &c.Notifications.NtfyTopic,
	}
	for name, field := range overrides {
		if value := os.Getenv(name); value != "" {
			*field = value
		}
	}
}
