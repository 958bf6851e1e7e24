package port

// Tokenizer splits free text into normalized terms.
type Tokenizer interface {
	Tokenize(text string) []string
}
