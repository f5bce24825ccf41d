package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MarcGrol/marketplace/lib/mylog"
)

// Dispatcher sends receipts in the background; the caller never waits for or sees the outcome.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  mylog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, logger mylog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch detaches from the cancellation of c so a finished request does not abort the mail.
func (d *Dispatcher) Dispatch(c context.Context, receipt Receipt) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c), d.timeout)
		defer cancel()

		err := d.send(ctx, receipt)
		if err != nil {
			d.logger.Log(ctx, receipt.OrderUID, mylog.SeverityError, "Error sending receipt to %s: %s", receipt.ToAddress, err)
			return
		}
		d.logger.Log(ctx, receipt.OrderUID, mylog.SeverityInfo, "Sent receipt to %s", receipt.ToAddress)
	}()
}

func (d *Dispatcher) send(c context.Context, receipt Receipt) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic while sending: %v", r)
			}
		}()
		done <- d.sender.Send(c, receipt)
	}()

	select {
	case err := <-done:
		return err
	case <-c.Done():
		return fmt.Errorf("gave up after %s: %w", d.timeout, c.Err())
	}
}

// Wait blocks until all dispatched receipts have finished or timed out.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
