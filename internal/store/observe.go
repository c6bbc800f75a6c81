package store

import "sync"

// Collection names for change notification.
const (
	CollectionWorkOrders = "work_orders"
	CollectionProgress   = "progress"
	CollectionSettings   = "settings"
)

type observer struct {
	id         int
	collection string
	fn         func()
}

type observerSet struct {
	mu     sync.Mutex
	nextID int
	subs   []observer
}

func newObserverSet() *observerSet {
	return &observerSet{}
}

func (o *observerSet) subscribe(collection string, fn func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, observer{id: id, collection: collection, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, sub := range o.subs {
			if sub.id == id {
				o.subs = append(o.subs[:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observerSet) notify(collection string) {
	o.mu.Lock()
	var fns []func()
	for _, sub := range o.subs {
		if sub.collection == collection {
			fns = append(fns, sub.fn)
		}
	}
	o.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may unsubscribe or
	// write back to the store.
	for _, fn := range fns {
		fn()
	}
}

// OnChange registers fn to run after every successful write to collection,
// and returns an unsubscribe function. Callbacks fire synchronously in
// subscription order.
func (s *Store) OnChange(collection string, fn func()) func() {
	return s.observers.subscribe(collection, fn)
}
