package gateway

import "context"

// Message is one fully-formed email handed to the gateway. HTML is required;
// Text is an optional plain-text alternative.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Gateway abstracts delivery of a single message to an external email
// service. The pipeline only inspects success or failure; transport details
// stay behind this interface. Mocking it in tests gives full control over
// delivery outcomes without touching the network.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}
