package polyglot

import "sync"

// fifo hands operations from the MQTT router to the inbox in arrival
// order. push never blocks, so the router keeps processing
// acknowledgements while the controller is busy publishing.
type fifo struct {
	mu    sync.Mutex
	items []Inbound
	ready chan struct{}
}

func newFIFO() *fifo {
	return &fifo{ready: make(chan struct{}, 1)}
}

func (q *fifo) push(ops ...Inbound) {
	q.mu.Lock()
	q.items = append(q.items, ops...)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *fifo) pop() (Inbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Inbound{}, false
	}
	op := q.items[0]
	q.items[0] = Inbound{}
	q.items = q.items[1:]
	return op, true
}

// run delivers queued operations to out until done is closed.
func (q *fifo) run(out chan<- Inbound, done <-chan struct{}) {
	for {
		for {
			op, ok := q.pop()
			if !ok {
				break
			}
			select {
			case out <- op:
			case <-done:
				return
			}
		}
		select {
		case <-q.ready:
		case <-done:
			return
		}
	}
}
