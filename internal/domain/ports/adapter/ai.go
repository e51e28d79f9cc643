package adapter

import "context"

// TextGenerator is the port for the generative model: one prompt in, free text out.
type TextGenerator interface {
	// Name identifies the provider in logs and metrics ("gemini", "openai", ...).
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	// Ping performs a cheap reachability check.
	Ping(ctx context.Context) error
}
