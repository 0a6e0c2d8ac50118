package domain

import "strings"

// ModelAttempt is one entry of a fallback chain.
type ModelAttempt struct {
	ModelIdentifier string
}

// FallbackChain is tried in order, primary first.
type FallbackChain []ModelAttempt

// ChainOf builds a chain from model identifiers, skipping blanks.
func ChainOf(models ...string) FallbackChain {
	chain := make(FallbackChain, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		chain = append(chain, ModelAttempt{ModelIdentifier: m})
	}
	return chain
}

type ChatReply struct {
	Text        string
	SourceModel string
	Exhausted   bool
}
