package transparency

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/givefolio/givefolio-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Publisher is the Pub/Sub surface the feed writes to.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

type pubsubLogger struct {
	publisher Publisher
	logg      *logger.Logger
}

// NewPubSubLogger publishes allocation events to the configured topic.
// Failures are logged and swallowed so giving stays best effort.
func NewPubSubLogger(publisher Publisher, logg *logger.Logger) Logger {
	if publisher == nil {
		return NewNoopLogger()
	}
	return &pubsubLogger{publisher: publisher, logg: logg}
}

func (p *pubsubLogger) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.warn(ctx, "transparency event marshal failed", err)
		return
	}

	attributes := map[string]string{
		"allocation_id":    event.AllocationID.String(),
		"selection_method": event.SelectionMethod,
		"occurred_at":      event.OccurredAt.Format(time.RFC3339Nano),
	}
	if event.CharityID != nil {
		attributes["charity_id"] = event.CharityID.String()
	}
	msg := &gcppubsub.Message{
		Data:       payload,
		Attributes: attributes,
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	result := p.publisher.Publish(publishCtx, msg)
	if result == nil {
		p.warn(ctx, "transparency publisher returned nil result", nil)
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		p.warn(ctx, "transparency publish failed", err)
	}
}

func (p *pubsubLogger) warn(ctx context.Context, msg string, err error) {
	if p.logg == nil {
		return
	}
	if err != nil {
		ctx = p.logg.WithField(ctx, "error", err.Error())
	}
	p.logg.Warn(ctx, msg)
}
