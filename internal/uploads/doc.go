// Package uploads publishes rendered clips to the configured destination
// platforms. Each platform is a thin HTTP client around that destination's
// publish flow; the Uploader stage drives them in order with retry and
// records per-platform results on the queue item.
package uploads
