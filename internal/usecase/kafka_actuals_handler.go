package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"MandiCast/internal/domain/models"
	domrepo "MandiCast/internal/domain/repository"
	"MandiCast/pkg/util"
)

// KafkaActualsHandler consumes settled mandi prices and closes the
// forecast accuracy loop.
type KafkaActualsHandler struct {
	topic    string
	tracking domrepo.ForecastTracking
	metrics  domrepo.Metrics
}

func NewKafkaActualsHandler(topic string, tracking domrepo.ForecastTracking, metrics domrepo.Metrics) *KafkaActualsHandler {
	return &KafkaActualsHandler{topic: topic, tracking: tracking, metrics: metrics}
}

func (h *KafkaActualsHandler) Topic() string { return h.topic }

// incoming message schema: {commodity, market, date, price}
func (h *KafkaActualsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Commodity string  `json:"commodity"`
		Market    string  `json:"market"`
		Date      string  `json:"date"`
		Price     float64 `json:"price"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("actuals_decode")
		return fmt.Errorf("decode actual: %w", err)
	}
	if m.Commodity == "" || m.Market == "" || m.Price <= 0 {
		h.metrics.RecordError("actuals_invalid")
		return nil
	}
	date, ok := util.ParseTime(m.Date)
	if !ok {
		h.metrics.RecordError("actuals_invalid")
		return nil
	}

	obs := &models.ActualObservation{
		Commodity: m.Commodity,
		Market:    m.Market,
		Date:      date,
		Price:     m.Price,
	}
	if err := h.tracking.RecordActual(ctx, obs); err != nil {
		h.metrics.RecordError("actuals_store")
		return err
	}
	return nil
}
