package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// LogEmailPublisher records email requests in the service log instead of sending them. It is
// the default sink for local development.
type LogEmailPublisher struct {
	logger *zap.Logger
}

func NewLogEmailPublisher(logger *zap.Logger) *LogEmailPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailPublisher{logger: logger}
}

func (p *LogEmailPublisher) PublishEmail(_ context.Context, req services.EmailRequest) (string, error) {
	p.logger.Info("email request",
		zap.String("event_id", req.EventID),
		zap.String("kind", req.Kind),
		zap.String("order_id", req.OrderID),
		zap.String("to", req.To),
		zap.String("subject", req.Subject),
		zap.Int("html_bytes", len(req.HTML)),
	)
	return req.EventID, nil
}
