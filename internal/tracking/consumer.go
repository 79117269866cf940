package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/pkg/logger"
)

const (
	receiveBatch     = 10
	receiveWait      = 20
	receiveErrorWait = 5 * time.Second
)

// Consumer long-polls the tracking queue and writes each event to a Recorder,
// normally the Postgres analytics repository. A message is deleted once it is
// stored or found to be malformed; store failures leave it for redelivery.
type Consumer struct {
	client   SQSAPI
	queueURL string
	store    Recorder
	log      *logger.Logger

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewConsumer(client SQSAPI, queueURL string, store Recorder) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		store:    store,
		log:      logger.New("tracking-consumer"),
		done:     make(chan struct{}),
	}
}

// Start begins polling in the background until ctx ends or Stop is called.
func (c *Consumer) Start(ctx context.Context) {
	c.log.Info("SQS tracking consumer started", "queue", c.queueURL)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.poll(ctx)
	}()
}

// Stop ends polling and waits for the in-flight batch.
func (c *Consumer) Stop() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if _, err := c.receiveOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("SQS receive error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(receiveErrorWait):
			}
		}
	}
}

// receiveOnce handles one batch and returns how many events were stored.
func (c *Consumer) receiveOnce(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: receiveBatch,
		WaitTimeSeconds:     receiveWait,
	})
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, msg := range out.Messages {
		var evt domain.AnalyticsEvent
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &evt); err != nil {
			c.log.Warn("SQS bad message", "error", err)
			c.deleteMessage(ctx, msg.ReceiptHandle)
			continue
		}

		if err := c.store.Record(ctx, evt); err != nil {
			c.log.Error("SQS process error", "type", string(evt.EventType), "error", err)
			continue
		}
		stored++
		c.deleteMessage(ctx, msg.ReceiptHandle)
	}
	return stored, nil
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		c.log.Warn("SQS delete failed", "error", err)
	}
}
