// Package provider abstracts the text-generation backend. The runtime
// treats it as a black box that accepts a message list and returns text.
package provider

import "context"

// Message is one turn handed to the backend.
type Message struct {
	Role    string
	Content string
}

// Provider generates a response for a message list. Implementations that
// stream must consume the stream to completion before returning.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Func adapts a plain function to the Provider interface. Used heavily in
// tests.
type Func func(ctx context.Context, messages []Message) (string, error)

// Generate implements Provider.
func (f Func) Generate(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
