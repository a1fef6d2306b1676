// Package generate turns extracted text into study artifacts with a language model.
//
// A Client renders a task prompt, makes one Backend call, and parses the reply
// in two stages: ExtractJSON locates the payload, then a strict decode checks
// it against the task's JSON schema. Replies that fail either stage produce a
// GenerationError of kind ErrParseFailure carrying the raw model output.
// Backend errors produce kind ErrBackendFailure. Nothing is retried or cached.
//
// Backends live in subpackages:
//
//   - generate/langchain: any OpenAI-compatible server
//   - generate/gemini: Google Gemini
//   - generate/mock: scripted replies for tests
//
// Usage:
//
//	backend, err := langchain.NewBackend(generate.NewConfig())
//	client, err := generate.NewClient(backend)
//	cards, err := client.Flashcards(ctx, text, 10)
package generate
