package ledger

// Subscribe registers fn to run synchronously after every committed change.
// Callbacks run on the mutating goroutine and must not mutate the ledger.
// The returned func unregisters fn.
func (l *Ledger) Subscribe(fn func(Change)) (cancel func()) {
	l.mu.Lock()
	l.nextSubID++
	id := l.nextSubID
	l.funcs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.funcs, id)
		l.mu.Unlock()
	}
}

// Watch returns a channel that receives every committed change. Slow
// readers miss changes rather than block writers. cancel closes the channel.
func (l *Ledger) Watch(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	l.mu.Lock()
	l.nextSubID++
	id := l.nextSubID
	l.chans[id] = ch
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		if c, ok := l.chans[id]; ok {
			delete(l.chans, id)
			close(c)
		}
		l.mu.Unlock()
	}
}

// SubscriberCount reports how many observers are registered.
func (l *Ledger) SubscriberCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.funcs) + len(l.chans)
}

func (l *Ledger) notify(change Change) {
	l.mu.RLock()
	funcs := make([]func(Change), 0, len(l.funcs))
	for _, fn := range l.funcs {
		funcs = append(funcs, fn)
	}
	for _, ch := range l.chans {
		select {
		case ch <- change:
		default:
		}
	}
	l.mu.RUnlock()

	for _, fn := range funcs {
		fn(change)
	}
}
