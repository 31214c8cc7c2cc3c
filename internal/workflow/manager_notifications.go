package workflow

import (
	"context"
	"time"

	"clipmorph/internal/logging"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
)

func withStageContext(ctx context.Context, stageName string, item *queue.Item, requestID string) context.Context {
	ctx = services.WithStage(ctx, stageName)
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	return services.WithRequestID(ctx, requestID)
}

// onItemStarted marks the queue as active and emits a queue-started
// notification the first time work begins after an idle period.
func (m *Manager) onItemStarted(ctx context.Context) {
	m.mu.Lock()
	alreadyActive := m.queueActive
	if !alreadyActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
	m.mu.Unlock()
	if alreadyActive || m.notifier == nil {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Debug("queue stats unavailable for notification", logging.Error(err))
		return
	}
	count := 0
	for status, n := range stats {
		if status == queue.StatusPending || queue.IsProcessingStatus(status) {
			count += n
		}
	}
	if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
		m.logger.Debug("queue started notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyStageComplete(ctx context.Context, stg pipelineStage, item *queue.Item) {
	if m.notifier == nil || item == nil {
		return
	}
	switch stg.name {
	case "converter":
		if err := m.notifier.NotifyConversionCompleted(ctx, item.Title, item.ArtifactPath); err != nil {
			m.logger.Debug("conversion notification failed", logging.Error(err))
		}
	case "uploader":
		results, err := item.UploadResults()
		if err != nil {
			m.logger.Debug("upload results unreadable for notification", logging.Error(err))
			return
		}
		for _, result := range results {
			if err := m.notifier.NotifyUploadCompleted(ctx, item.Title, result.Platform, result.URL); err != nil {
				m.logger.Debug("upload notification failed", logging.Error(err))
			}
		}
	}
}

// checkQueueCompletion emits a queue-completed notification once no pending or
// in-flight items remain.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.RLock()
	active := m.queueActive
	start := m.queueStart
	m.mu.RUnlock()
	if !active {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Debug("queue stats unavailable for completion check", logging.Error(err))
		return
	}
	remaining := stats[queue.StatusPending]
	for status, count := range stats {
		if queue.IsProcessingStatus(status) {
			remaining += count
		}
	}
	m.mu.RLock()
	for _, stg := range m.stages {
		if stg.startStatus != queue.StatusPending {
			remaining += stats[stg.startStatus]
		}
	}
	m.mu.RUnlock()
	if remaining > 0 {
		return
	}

	m.mu.Lock()
	m.queueActive = false
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed]
	if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, time.Since(start)); err != nil {
		m.logger.Debug("queue completed notification failed", logging.Error(err))
	}
}
