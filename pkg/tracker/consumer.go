package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/fleetwatch/fleetwatch/pkg/diversion"
	"github.com/fleetwatch/fleetwatch/pkg/prediction/bias"
	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/fleetwatch/fleetwatch/pkg/schedule"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// FactRecorder persists arrival/departure facts. Satisfied by
// recorder.Store.
type FactRecorder interface {
	Record(ctx context.Context, ad *transit.ArrivalDeparture) error
}

// Consumer is the ingestion pipeline: position reports are received from
// the redis queue in batches, deserialized and dispatched to the matcher,
// while the batch receipt is acknowledged and the raw payload archived on
// independent branches. Every inter-stage queue is bounded; a full queue
// sheds load with a logged drop instead of growing without bound.
type Consumer struct {
	config Config

	graph      *schedule.Graph
	diversions *diversion.Registry
	store      FactRecorder
	adjuster   bias.Adjuster

	receiveQueue     chan rmq.Delivery
	acknowledgeQueue chan rmq.Deliveries
	archiveQueue     chan string

	matchPool *pool.Pool
	vehicles  *VehicleRegistry
	workers   sync.WaitGroup

	assignmentCache *cache.Cache[string]

	ctx    context.Context
	cancel context.CancelFunc

	receivedCount       atomic.Int64
	deserializeFailures atomic.Int64
	droppedReceive      atomic.Int64
	droppedAcknowledge  atomic.Int64
	droppedArchive      atomic.Int64

	lastReportUnix atomic.Int64
}

func NewConsumer(
	config Config,
	graph *schedule.Graph,
	diversions *diversion.Registry,
	factStore FactRecorder,
) (*Consumer, error) {
	adjuster, err := bias.New(config.BiasAdjuster)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	consumer := &Consumer{
		config: config,

		graph:      graph,
		diversions: diversions,
		store:      factStore,
		adjuster:   adjuster,

		receiveQueue:     make(chan rmq.Delivery, config.QueueCapacity),
		acknowledgeQueue: make(chan rmq.Deliveries, config.QueueCapacity),
		archiveQueue:     make(chan string, config.QueueCapacity*1000),

		matchPool: pool.New().WithMaxGoroutines(config.NumMatchWorkers),
		vehicles:  NewVehicleRegistry(),

		ctx:    ctx,
		cancel: cancel,
	}

	if redis_client.Client != nil {
		redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(90*time.Minute))
		consumer.assignmentCache = cache.New[string](redisStore)
	}

	return consumer, nil
}

// Start opens the queue, registers the receive-stage batch consumers and
// launches the deserialize, acknowledge, archive and status workers.
func (c *Consumer) Start() error {
	log.Info().
		Str("queue", c.config.QueueName).
		Int("capacity", c.config.QueueCapacity).
		Int("matchWorkers", c.config.NumMatchWorkers).
		Msg("Starting tracker consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(c.config.QueueName)
	if err != nil {
		return err
	}

	prefetch := int64(c.config.NumConsumers * c.config.BatchSize)
	if err := queue.StartConsuming(prefetch, 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < c.config.NumConsumers; i++ {
		name := fmt.Sprintf("%s-%d", c.config.QueueName, i)
		if _, err := queue.AddBatchConsumer(name, int64(c.config.BatchSize), 2*time.Second, c); err != nil {
			return err
		}
	}

	for i := 0; i < c.config.NumDeserializeWorkers; i++ {
		c.startWorker(c.deserializeWorker)
	}

	c.startWorker(c.acknowledgeWorker)

	if c.config.ArchiveTopic != "" {
		c.startWorker(c.archiveWorker)
	} else {
		log.Info().Msg("Archive topic not configured, skipping archive branch")
	}

	c.startWorker(c.statusWorker)

	return nil
}

func (c *Consumer) startWorker(worker func()) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		worker()
	}()
}

// Stop cancels every worker loop, waits for the workers to exit and then
// for in-flight matches to finish. The stage workers must be fully drained
// before the match pool is waited on, since a deserialize worker mid-loop
// may still dispatch into the pool. Reports still sitting in queues are
// abandoned; the external queue redelivers whatever was never acknowledged.
func (c *Consumer) Stop() {
	c.cancel()
	c.workers.Wait()
	c.matchPool.Wait()
}

// Consume is the receive stage, invoked by rmq with each polled batch.
// Each delivery is pushed onto the bounded receive queue and, when
// archiving is enabled, its payload onto the archive queue; the batch
// itself goes onto the acknowledge queue once, since the external queue
// acknowledges per poll rather than per message.
func (c *Consumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		select {
		case c.receiveQueue <- delivery:
		default:
			dropped := c.droppedReceive.Add(1)
			log.Warn().Int64("dropped", dropped).Msg("Receive queue full, shedding delivery")
		}

		if c.config.ArchiveTopic == "" {
			continue
		}

		select {
		case c.archiveQueue <- delivery.Payload():
		default:
			dropped := c.droppedArchive.Add(1)
			log.Warn().Int64("dropped", dropped).Msg("Archive queue full, shedding payload")
		}
	}

	select {
	case c.acknowledgeQueue <- batch:
	default:
		// Not fatal: the unacknowledged batch stays visible and is
		// redelivered by the queue cleaner.
		dropped := c.droppedAcknowledge.Add(1)
		log.Warn().Int64("dropped", dropped).Msg("Acknowledge queue full, batch will be redelivered")
	}
}

func (c *Consumer) deserializeWorker() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case delivery := <-c.receiveQueue:
			var report transit.PositionReport
			if err := json.Unmarshal([]byte(delivery.Payload()), &report); err != nil {
				failures := c.deserializeFailures.Add(1)
				log.Error().Err(err).Int64("failures", failures).Msg("Failed to deserialize position report")
				continue
			}
			if err := report.Validate(); err != nil {
				failures := c.deserializeFailures.Add(1)
				log.Error().Err(err).Int64("failures", failures).Msg("Rejected position report")
				continue
			}

			// Blocks when every match worker is busy, applying
			// backpressure to this stage instead of buffering without
			// bound.
			c.matchPool.Go(func() {
				c.matchReport(&report)
			})

			received := c.receivedCount.Add(1)
			if c.config.LogFrequency > 0 && received%c.config.LogFrequency == 0 {
				log.Info().
					Int64("received", received).
					Int("receiveDepth", len(c.receiveQueue)).
					Int("archiveDepth", len(c.archiveQueue)).
					Msg("Position report progress")
			}
		}
	}
}

func (c *Consumer) acknowledgeWorker() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case batch := <-c.acknowledgeQueue:
			if ackErrors := batch.Ack(); len(ackErrors) > 0 {
				for _, err := range ackErrors {
					log.Error().Err(err).Msg("Failed to acknowledge batch, queue will redeliver")
				}
			}
		}
	}
}

func (c *Consumer) archiveWorker() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case payload := <-c.archiveQueue:
			err := redis_client.Client.Publish(c.ctx, c.config.ArchiveTopic, payload).Err()
			if err != nil {
				// Archiving is best effort and never blocks ingestion.
				log.Error().Err(err).Msg("Failed to publish payload to archive topic")
			}
		}
	}
}

func (c *Consumer) statusWorker() {
	ticker := time.NewTicker(c.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			event := log.Info().
				Int("receiveDepth", len(c.receiveQueue)).
				Int("acknowledgeDepth", len(c.acknowledgeQueue)).
				Int("archiveDepth", len(c.archiveQueue)).
				Int64("received", c.receivedCount.Load()).
				Int64("deserializeFailures", c.deserializeFailures.Load()).
				Int64("droppedReceive", c.droppedReceive.Load())

			if lastReport := c.lastReportUnix.Load(); lastReport > 0 {
				event = event.Dur("lastReportAge", time.Since(time.Unix(lastReport, 0)))
			}

			event.Msg("Queue size report")
		}
	}
}
