/*
Package events provides an in-memory publish/subscribe broker used to
broadcast fleet progress to independent consumers — in this module, the
CLI's progress output — without coupling them to pkg/fleet, the package
that produces the events.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			if !quiet {
				fmt.Println(ev.Message)
			}
		}
	}()

	broker.Publish(&events.Event{Type: events.EventContainerStarted, Message: "root started"})

# Design

Publish never blocks indefinitely on a slow subscriber: each subscriber has
a bounded buffer and a full buffer silently drops the event rather than
stalling the producer, since fleet operations must not be slowed
by a stuck consumer. Subscribers needing a complete record (rather than a
best-effort progress feed) should read logs directly instead.
*/
package events
