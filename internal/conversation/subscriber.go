package conversation

import "sync"

// subscriber delivers events to one callback, in order, on its own goroutine.
type subscriber struct {
	fn func(Event)

	mu    sync.Mutex
	queue []Event

	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

func newSubscriber(fn func(Event)) *subscriber {
	s := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, e := range batch {
				select {
				case <-s.quit:
					return
				default:
				}
				s.fn(e)
			}
		}
	}
}
