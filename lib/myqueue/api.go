package myqueue

import (
	"context"
	"fmt"
)

type Task struct {
	UID            string
	WebhookURLPath string
	Payload        []byte
}

type Backend string

const (
	BackendFake   Backend = "fake"
	BackendGcloud Backend = "gcloud"
)

type Config struct {
	Backend    Backend
	ProjectID  string
	LocationID string
	QueueName  string
}

//go:generate mockgen -source=api.go -package myqueue -destination queuer_mock.go TaskQueuer
type TaskQueuer interface {
	Enqueue(c context.Context, task Task) error
}

func New(c context.Context, cfg Config) (TaskQueuer, func(), error) {
	switch cfg.Backend {
	case BackendGcloud:
		return newGcloudQueue(c, cfg)
	case BackendFake, "":
		return newFakeQueue(c)
	default:
		return nil, func() {}, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
