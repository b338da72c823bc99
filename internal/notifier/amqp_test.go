package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/WyZzYx/Jobsight/internal/model"
)

type published struct {
	key string
	msg amqp.Publishing
}

type recordingBroker struct {
	mu   sync.Mutex
	sent []published
	fail map[string]error
}

func (b *recordingBroker) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	var p model.JobPosting
	_ = json.Unmarshal(msg.Body, &p)
	if err := b.fail[p.ProviderID]; err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{key: key, msg: msg})
	return nil
}

func newTestAMQP(b *recordingBroker) *AMQPNotifier {
	return &AMQPNotifier{exchange: DefaultExchange, publish: b.publish, logger: discardLogger()}
}

func TestAMQPNotifier_PublishesOnePersistentMessagePerPosting(t *testing.T) {
	broker := &recordingBroker{}
	n := newTestAMQP(broker)

	a := samplePosting("Go Engineer", "Acme")
	b := samplePosting("Java Engineer", "Globex")
	b.Provider, b.ProviderID = "ADZUNA", "456"

	if err := n.Notify(context.Background(), []model.JobPosting{a, b}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(broker.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(broker.sent))
	}

	first := broker.sent[0]
	if first.key != "posting.greenhouse" || broker.sent[1].key != "posting.adzuna" {
		t.Errorf("routing keys = %q, %q", first.key, broker.sent[1].key)
	}
	if first.msg.DeliveryMode != amqp.Persistent || first.msg.ContentType != "application/json" {
		t.Errorf("unexpected message properties: %+v", first.msg)
	}
	id, err := uuid.Parse(first.msg.MessageId)
	if err != nil || id.Version() != 7 {
		t.Errorf("message id %q is not a UUIDv7", first.msg.MessageId)
	}

	var decoded model.JobPosting
	if err := json.Unmarshal(first.msg.Body, &decoded); err != nil {
		t.Fatalf("body is not a posting: %v", err)
	}
	if decoded.Key() != a.Key() || decoded.Title != a.Title {
		t.Errorf("decoded posting = %+v", decoded)
	}
}

func TestAMQPNotifier_CollectsFailures(t *testing.T) {
	nack := errors.New("broker nacked message")
	broker := &recordingBroker{fail: map[string]error{"bad": nack}}
	n := newTestAMQP(broker)

	ok := samplePosting("Ok", "A")
	bad := samplePosting("Bad", "B")
	bad.ProviderID = "bad"

	err := n.Notify(context.Background(), []model.JobPosting{bad, ok})
	if !errors.Is(err, nack) {
		t.Fatalf("expected nack to be reported, got %v", err)
	}
	if len(broker.sent) != 1 {
		t.Errorf("remaining postings must still be published, sent %d", len(broker.sent))
	}
}

func TestRoutingKey_UnknownProvider(t *testing.T) {
	if got := routingKey(model.JobPosting{}); got != "posting.unknown" {
		t.Errorf("routingKey = %q", got)
	}
}
