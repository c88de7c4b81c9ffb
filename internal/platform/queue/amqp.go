package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

const (
	// JobsQueue carries ingestion jobs. Durable so queued syncs survive a
	// broker restart.
	JobsQueue = "ingest.jobs"

	// maxPriority gives on-demand jobs a lane past the periodic backlog.
	maxPriority = 10

	PriorityPeriodic uint8 = 0
	PriorityOnDemand uint8 = 5
)

// Broker wraps one AMQP connection/channel pair with the queue topology the
// scheduler needs.
type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.SugaredLogger
}

func NewBroker(lc fx.Lifecycle, cfg *cfgpkg.Config, log *zap.SugaredLogger) (*Broker, error) {
	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "dial amqp", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, types.WrapFault(types.FaultInternal, "open channel", err)
	}
	if _, err := ch.QueueDeclare(JobsQueue, true, false, false, false, amqp.Table{
		"x-max-priority": int32(maxPriority),
	}); err != nil {
		conn.Close()
		return nil, types.WrapFault(types.FaultInternal, "declare queue", err)
	}
	if err := ch.Qos(cfg.Ingestion.WorkerPoolSize, 0, false); err != nil {
		conn.Close()
		return nil, types.WrapFault(types.FaultInternal, "set qos", err)
	}
	log.Infow("connected to amqp", "queue", JobsQueue)

	b := &Broker{conn: conn, ch: ch, log: log}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Infow("closing amqp connection")
			return conn.Close()
		},
	})
	return b, nil
}

// Publish enqueues one persistent message at the given priority.
func (b *Broker) Publish(ctx context.Context, body []byte, priority uint8) error {
	err := b.ch.PublishWithContext(ctx, "", JobsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Priority:     priority,
		Body:         body,
	})
	if err != nil {
		return types.WrapFault(types.FaultInternal, "publish job", err)
	}
	return nil
}

// Consume opens the delivery stream. Messages require explicit ack/nack;
// the prefetch window equals the worker pool size.
func (b *Broker) Consume() (<-chan amqp.Delivery, error) {
	deliveries, err := b.ch.Consume(JobsQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "consume queue", err)
	}
	return deliveries, nil
}

var Module = fx.Options(
	fx.Provide(NewBroker),
)
