package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	pkgkafka "AgriPrice/pkg/kafka"
)

// KafkaRefreshHandler reloads the dataset when a refresh event arrives, so every
// replica follows a reload triggered on any one of them.
type KafkaRefreshHandler struct {
	topic     string
	instance  string
	refresher *Refresher
	metrics   domrepo.Metrics
}

// instance is this process's id; events carrying it as origin are skipped.
func NewKafkaRefreshHandler(topic, instance string, refresher *Refresher, metrics domrepo.Metrics) *KafkaRefreshHandler {
	return &KafkaRefreshHandler{topic: topic, instance: instance, refresher: refresher, metrics: metrics}
}

func (h *KafkaRefreshHandler) Topic() string { return h.topic }

// incoming message schema: {reason, origin, requested_at}
func (h *KafkaRefreshHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.RefreshEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode refresh event: %w", err)
	}
	if ev.Origin != "" && ev.Origin == h.instance {
		return nil
	}
	reason := "kafka"
	if ev.Reason != "" {
		reason = "kafka:" + ev.Reason
	}
	_, err := h.refresher.Refresh(ctx, reason)
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaRefreshHandler)(nil)
