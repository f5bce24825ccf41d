package mypubsub

import (
	"context"
	"fmt"
)

type Backend string

const (
	BackendLog    Backend = "log"
	BackendGcloud Backend = "gcloud"
	BackendKafka  Backend = "kafka"
)

type Config struct {
	Backend      Backend
	ProjectID    string
	KafkaBrokers []string
}

//go:generate mockgen -source=pubsub_api.go -package mypubsub -destination pubsub_mock.go PubSub
type PubSub interface {
	CreateTopic(c context.Context, topic string) error
	// Publish delivers data on the topic; key groups messages of the same aggregate.
	Publish(c context.Context, topic string, key string, data string) error
}

func New(c context.Context, cfg Config) (PubSub, func(), error) {
	switch cfg.Backend {
	case BackendGcloud:
		return newGcloudPubSub(c, cfg.ProjectID)
	case BackendKafka:
		return newKafkaPubSub(c, cfg.KafkaBrokers)
	case BackendLog, "":
		return newFakePubSub(c)
	default:
		return nil, func() {}, fmt.Errorf("unknown pubsub backend %q", cfg.Backend)
	}
}
