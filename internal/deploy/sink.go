package deploy

import "deployer-backend/internal/model"

// Sink receives the log events of a run in the order they happen. Calls
// are serialized, never concurrent, but may come from different goroutines.
type Sink func(model.LogEvent)

// ChannelSink forwards events onto ch. The caller must keep draining ch
// until the run returns.
func ChannelSink(ch chan<- model.LogEvent) Sink {
	return func(ev model.LogEvent) {
		ch <- ev
	}
}

// MultiSink delivers each event to every sink in order.
func MultiSink(sinks ...Sink) Sink {
	return func(ev model.LogEvent) {
		for _, s := range sinks {
			if s != nil {
				s(ev)
			}
		}
	}
}
