package viewer

import (
	"context"
	"sync"

	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// outbox buffers commands produced by the event loop until the stream
// writer drains them. It never blocks the producer.
type outbox struct {
	mu     sync.Mutex
	buf    []mapengine.Command
	notify chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) push(cmd mapengine.Command) {
	o.mu.Lock()
	o.buf = append(o.buf, cmd)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() []mapengine.Command {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.buf
	o.buf = nil
	return out
}

// next waits until at least one command is queued.
func (o *outbox) next(ctx context.Context, done <-chan struct{}) ([]mapengine.Command, error) {
	for {
		if cmds := o.drain(); len(cmds) > 0 {
			return cmds, nil
		}
		select {
		case <-o.notify:
		case <-done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
