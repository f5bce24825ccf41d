package mypublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/marketplace/lib/mycontext"
	"github.com/MarcGrol/marketplace/lib/myevents"
	"github.com/MarcGrol/marketplace/lib/myhttp"
	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/lib/mypubsub"
	"github.com/MarcGrol/marketplace/lib/myqueue"
	"github.com/MarcGrol/marketplace/lib/mystore"
	"github.com/MarcGrol/marketplace/lib/mytime"
)

// TransactionalPublisher stores events in an outbox within the callers transaction.
// A task-queue trigger or the poller moves them to the broker afterwards.
type TransactionalPublisher struct {
	outbox    mystore.Store[myevents.EventEnvelope]
	queue     myqueue.TaskQueuer
	enveloper enveloper
	pubsub    mypubsub.PubSub
	nower     mytime.Nower
	logger    mylog.Logger
	flushLock sync.Mutex
}

func New(c context.Context, outbox mystore.Store[myevents.EventEnvelope], pubsub mypubsub.PubSub, queue myqueue.TaskQueuer, nower mytime.Nower) *TransactionalPublisher {
	return &TransactionalPublisher{
		outbox:    outbox,
		queue:     queue,
		enveloper: newEnveloper(nower),
		pubsub:    pubsub,
		nower:     nower,
		logger:    mylog.New("publisher"),
	}
}

func (p *TransactionalPublisher) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/pubsub/{topic}/{uid}", p.processTriggerPage()).Methods("PUT")
}

func (p *TransactionalPublisher) CreateTopic(c context.Context, topicName string) error {
	return p.pubsub.CreateTopic(c, topicName)
}

func (p *TransactionalPublisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := p.enveloper.do(topic, event)
	if err != nil {
		return fmt.Errorf("error creating envelope: %w", err)
	}

	err = p.outbox.Insert(c, envelope.UID, envelope)
	if err != nil {
		if errors.Is(err, mystore.ErrAlreadyExists) {
			p.logger.Log(c, envelope.AggregateUID, mylog.SeverityInfo, "Event %s was already enqueued", envelope)
			return nil
		}
		return fmt.Errorf("error storing envelope: %w", err)
	}

	err = p.queue.Enqueue(c, myqueue.Task{
		UID:            envelope.UID,
		WebhookURLPath: fmt.Sprintf("/pubsub/%s/%s", envelope.Topic, envelope.UID),
		Payload:        []byte{},
	})
	if err != nil {
		return fmt.Errorf("error queueing publication-trigger %s: %w", envelope.UID, err)
	}

	p.logger.Log(c, envelope.AggregateUID, mylog.SeverityInfo, "Enqueued event %s", envelope)

	return nil
}

func (p *TransactionalPublisher) processTriggerPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(p.logger)

		eventUID := mux.Vars(r)["uid"]

		count, err := p.Flush(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		p.logger.Log(c, eventUID, mylog.SeverityDebug, "Trigger for %s published %d events", eventUID, count)

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed trigger",
		})
	}
}

// Flush publishes all unpublished envelopes in order of creation and returns how many were sent.
func (p *TransactionalPublisher) Flush(c context.Context) (int, error) {
	p.flushLock.Lock()
	defer p.flushLock.Unlock()

	count := 0
	err := p.outbox.RunInTransaction(c, func(c context.Context) error {
		envelopes, err := p.outbox.Query(c, []mystore.Filter{{Field: "Published", Compare: "=", Value: false}}, "CreatedAt")
		if err != nil {
			return fmt.Errorf("error fetching envelopes: %w", err)
		}

		for _, envelope := range envelopes {
			jsonBytes, err := json.Marshal(envelope)
			if err != nil {
				return fmt.Errorf("error serializing event: %w", err)
			}

			err = p.pubsub.Publish(c, envelope.Topic, envelope.AggregateUID, string(jsonBytes))
			if err != nil {
				return fmt.Errorf("error publishing event %s: %w", envelope, err)
			}

			envelope.Published = true
			envelope.PublishedAt = p.nower.Now()
			err = p.outbox.Put(c, envelope.UID, envelope)
			if err != nil {
				return fmt.Errorf("error storing envelope: %w", err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// StartPolling flushes the outbox every interval until the context is cancelled.
func (p *TransactionalPublisher) StartPolling(c context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-ticker.C:
				count, err := p.Flush(c)
				if err != nil {
					p.logger.Log(c, "", mylog.SeverityError, "Error processing outbox: %s", err)
					continue
				}
				if count > 0 {
					p.logger.Log(c, "", mylog.SeverityInfo, "Published %d events from outbox", count)
				}
			}
		}
	}()
}
