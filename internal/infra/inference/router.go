package inference

import (
	"context"
	"strings"

	"voicebridge/internal/application"
)

// Router sends "<prefix>:<model>" identifiers to the generator registered for
// the prefix, with the prefix stripped. Anything else goes to the fallback.
type Router struct {
	fallback application.ReplyGenerator
	routes   map[string]application.ReplyGenerator
}

func NewRouter(fallback application.ReplyGenerator) *Router {
	return &Router{
		fallback: fallback,
		routes:   make(map[string]application.ReplyGenerator),
	}
}

func (r *Router) Route(prefix string, generator application.ReplyGenerator) *Router {
	r.routes[strings.ToLower(prefix)] = generator
	return r
}

func (r *Router) Generate(ctx context.Context, model, message string) (string, error) {
	if prefix, rest, ok := strings.Cut(model, ":"); ok {
		if g, found := r.routes[strings.ToLower(prefix)]; found {
			return g.Generate(ctx, rest, message)
		}
	}
	return r.fallback.Generate(ctx, model, message)
}
