package config

import "strings"

// normalize expands path fields and trims string settings so validation and
// consumers see canonical values.
func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.WatchDir,
		&c.Paths.StagingDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.StateDir,
		&c.Pipeline.LexiconPath,
	}
	for _, field := range paths {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Pipeline.FillPreference = strings.ToLower(strings.TrimSpace(c.Pipeline.FillPreference))
	c.Pipeline.CameraPlacement = strings.ToLower(strings.TrimSpace(c.Pipeline.CameraPlacement))
	c.Pipeline.RedactionMode = strings.ToLower(strings.TrimSpace(c.Pipeline.RedactionMode))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	for i, platform := range c.Upload.Platforms {
		c.Upload.Platforms[i] = strings.ToLower(strings.TrimSpace(platform))
	}
	return nil
}
