package mypubsub

import (
	"context"

	"github.com/MarcGrol/marketplace/lib/mylog"
)

// fakePubSub only logs, for running locally without a broker.
type fakePubSub struct {
	logger mylog.Logger
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	return &fakePubSub{
		logger: mylog.New("pubsub"),
	}, func() {}, nil
}

func (ps *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *fakePubSub) Publish(c context.Context, topic string, key string, data string) error {
	ps.logger.Log(c, key, mylog.SeverityInfo, "Published on topic %s: %s", topic, data)
	return nil
}
