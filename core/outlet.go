package core

import "github.com/Comcast/rxfsm/stream"

// MaxBuffered is the number of values a sink keeps for its first
// subscriber.
const MaxBuffered = 1024

// outlet is the stream for one of a machine's sinks.
//
// Values produced before the outlet's first subscriber are buffered
// (at most MaxBuffered of them) and handed to that subscriber, so a
// host can subscribe sinks one after the other without losing what the
// INIT transition emitted.
// All of an outlet's state is touched only from the machine's queue.
type outlet struct {
	m    *machine
	name string

	observers []*outletEntry
	buffer    []interface{}
	dropped   int
	primed    bool
	done      bool
	err       error
}

type outletEntry struct {
	o stream.Observer
}

// Subscribe implements stream.Stream.
func (o *outlet) Subscribe(obs stream.Observer) stream.Subscription {
	return stream.Func(o.subscribe).Subscribe(obs)
}

func (o *outlet) subscribe(obs stream.Observer) stream.Subscription {
	e := &outletEntry{o: obs}
	o.m.q.Do(func() {
		o.add(e)
	})
	o.m.retain()
	return stream.SubscriptionFunc(func() {
		o.m.q.Do(func() {
			o.remove(e)
		})
		o.m.release()
	})
}

func (o *outlet) add(e *outletEntry) {
	if !o.primed {
		o.primed = true
		buf := o.buffer
		o.buffer = nil
		for _, x := range buf {
			e.o.Next(x)
		}
	}
	if o.done {
		if o.err != nil {
			e.o.Error(o.err)
		} else {
			e.o.Complete()
		}
		return
	}
	o.observers = append(o.observers, e)
}

func (o *outlet) remove(e *outletEntry) {
	for i, x := range o.observers {
		if x == e {
			o.observers = append(o.observers[:i:i], o.observers[i+1:]...)
			return
		}
	}
}

func (o *outlet) push(x interface{}) {
	if o.done {
		return
	}
	if !o.primed {
		if len(o.buffer) == MaxBuffered {
			if o.dropped == 0 {
				o.m.log.Warn("sink has no subscriber; dropping its oldest values", "sink", o.name)
			}
			o.dropped++
			o.buffer = append(o.buffer[:0], o.buffer[1:]...)
		}
		o.buffer = append(o.buffer, x)
		return
	}
	observers := make([]*outletEntry, len(o.observers))
	copy(observers, o.observers)
	for _, e := range observers {
		e.o.Next(x)
	}
}

func (o *outlet) terminate(err error) {
	if o.done {
		return
	}
	o.done = true
	o.err = err
	observers := o.observers
	o.observers = nil
	for _, e := range observers {
		if err != nil {
			e.o.Error(err)
		} else {
			e.o.Complete()
		}
	}
}
