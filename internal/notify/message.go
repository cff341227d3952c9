package notify

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers rendered messages. Implementations own their timeout
// policy and must be safe for concurrent use.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}
