package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outbound/internal/domain"
)

type fakeSQS struct {
	sent     []string
	inbox    []types.Message
	deleted  []string
	sendErr  error
	received int
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String("m")}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received++
	msgs := f.inbox
	f.inbox = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestPublisherRecord(t *testing.T) {
	q := &fakeSQS{}
	p := NewPublisher(q, "https://sqs/q")

	evt := domain.AnalyticsEvent{ID: "e1", CampaignID: "c1", EventType: domain.EventOpen, CreatedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, p.Record(context.Background(), evt))
	require.Len(t, q.sent, 1)

	var got domain.AnalyticsEvent
	require.NoError(t, json.Unmarshal([]byte(q.sent[0]), &got))
	assert.Equal(t, evt, got)

	q.sendErr = errors.New("throttled")
	assert.Error(t, p.Record(context.Background(), evt))
}

func TestConsumerReceiveOnce(t *testing.T) {
	body, _ := json.Marshal(domain.AnalyticsEvent{ID: "e1", CampaignID: "c1", EventType: domain.EventClick})
	q := &fakeSQS{inbox: []types.Message{
		{Body: aws.String(string(body)), ReceiptHandle: aws.String("h1")},
		{Body: aws.String("{not json"), ReceiptHandle: aws.String("h2")},
	}}
	store := &memRecorder{}
	c := NewConsumer(q, "https://sqs/q", store)

	n, err := c.receiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.events, 1)
	assert.Equal(t, "c1", store.events[0].CampaignID)
	assert.ElementsMatch(t, []string{"h1", "h2"}, q.deleted)
}

func TestConsumerKeepsMessageOnStoreFailure(t *testing.T) {
	body, _ := json.Marshal(domain.AnalyticsEvent{ID: "e1", CampaignID: "c1", EventType: domain.EventOpen})
	q := &fakeSQS{inbox: []types.Message{{Body: aws.String(string(body)), ReceiptHandle: aws.String("h1")}}}
	c := NewConsumer(q, "q", &memRecorder{err: errors.New("db down")})

	n, err := c.receiveOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, q.deleted)
}

func TestConsumerStartStop(t *testing.T) {
	q := &fakeSQS{}
	c := NewConsumer(q, "q", &memRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	cancel()
	c.Stop()
	c.Stop()
}
