package crawler

import "slices"

// publishOutcome tags the result of exchange.publish.
type publishOutcome int

const (
	// handedOff: the path went straight to the oldest waiting consumer.
	handedOff publishOutcome = iota
	// buffered: the path was appended to the buffer.
	buffered
	// suspended: the buffer is full and the producer was queued.
	suspended
)

type takeResult struct {
	path string
	err  error
}

// producerWait is a queued publish. done receives nil once the path has
// been moved into the buffer, or the error that ended the wait.
type producerWait struct {
	path string
	done chan error
}

// consumerWait is a queued take.
type consumerWait struct {
	done chan takeResult
}

// exchange is the bounded hand-off between crawlers and consumers.
//
// It holds no lock of its own; the Coordinator mutates it under its mutex.
// Invariants:
//   - len(files) <= capacity
//   - consumers non-empty implies files empty
//   - producers non-empty implies len(files) == capacity
//
// Completion channels have one slot, so completing a waiter never blocks.
type exchange struct {
	capacity  int
	files     []string
	producers []*producerWait
	consumers []*consumerWait
}

func newExchange(capacity int) *exchange {
	return &exchange{
		capacity: capacity,
		files:    make([]string, 0, capacity),
	}
}

// publish offers a path. A suspended outcome returns the wait entry the
// caller must block on.
func (x *exchange) publish(path string) (publishOutcome, *producerWait) {
	if len(x.consumers) > 0 {
		var w *consumerWait
		w, x.consumers = popFront(x.consumers)
		w.done <- takeResult{path: path}
		return handedOff, nil
	}

	if len(x.files) < x.capacity {
		x.files = append(x.files, path)
		return buffered, nil
	}

	w := &producerWait{path: path, done: make(chan error, 1)}
	x.producers = append(x.producers, w)
	return suspended, w
}

// take removes the buffer head. When the buffer is empty it queues and
// returns a wait entry instead. promoted reports that a waiting producer's
// path moved into the freed slot.
func (x *exchange) take() (path string, w *consumerWait, promoted bool) {
	if len(x.files) == 0 {
		w = &consumerWait{done: make(chan takeResult, 1)}
		x.consumers = append(x.consumers, w)
		return "", w, false
	}

	path, x.files = popFront(x.files)

	if len(x.producers) > 0 {
		var p *producerWait
		p, x.producers = popFront(x.producers)
		x.files = append(x.files, p.path)
		p.done <- nil
		promoted = true
	}

	return path, nil, promoted
}

// cancelProducer withdraws a queued publish. It returns false if the entry
// was already completed.
func (x *exchange) cancelProducer(w *producerWait) bool {
	i := slices.Index(x.producers, w)
	if i < 0 {
		return false
	}
	x.producers = slices.Delete(x.producers, i, i+1)
	return true
}

// cancelConsumer withdraws a queued take. It returns false if the entry
// was already completed.
func (x *exchange) cancelConsumer(w *consumerWait) bool {
	i := slices.Index(x.consumers, w)
	if i < 0 {
		return false
	}
	x.consumers = slices.Delete(x.consumers, i, i+1)
	return true
}

// failAll completes every queued producer and consumer with err and clears
// both lists. It returns how many of each were failed.
func (x *exchange) failAll(err error) (producers, consumers int) {
	for _, p := range x.producers {
		p.done <- err
	}
	for _, c := range x.consumers {
		c.done <- takeResult{err: err}
	}
	producers, consumers = len(x.producers), len(x.consumers)
	x.producers = nil
	x.consumers = nil
	return producers, consumers
}

// reset drops buffered paths left over from a previous crawl.
func (x *exchange) reset() {
	clear(x.files)
	x.files = x.files[:0]
}

func (x *exchange) buffered() int {
	return len(x.files)
}

// popFront removes the first element, zeroing its slot so the backing
// array does not pin it.
func popFront[T any](s []T) (T, []T) {
	var zero T
	v := s[0]
	s[0] = zero
	return v, s[1:]
}
