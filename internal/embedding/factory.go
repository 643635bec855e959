package embedding

import "fmt"

// NewEmbedder creates an embedder of the given provider ("ollama" or "mock").
// An empty provider defaults to ollama.
func NewEmbedder(provider, serverURL, model string, dimensions int) (Embedder, error) {
	switch provider {
	case "ollama", "":
		return NewOllamaEmbedder(serverURL, model, dimensions)
	case "mock":
		return NewMockEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
