// Package actor carries the identity performing an operation through
// context. It records who acted; it makes no authorization decisions.
package actor

import "context"

type Kind string

const (
	KindStaff    Kind = "staff"
	KindCustomer Kind = "customer"
	KindGateway  Kind = "gateway"
	KindSystem   Kind = "system"
)

type Actor struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

func (a Actor) String() string {
	return string(a.Kind) + ":" + a.ID
}

var (
	Reaper         = Actor{ID: "reaper", Kind: KindSystem}
	PaymentGateway = Actor{ID: "payment-gateway", Kind: KindGateway}
)

type contextKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}

// OrSystem returns the context actor, falling back to an anonymous system actor.
func OrSystem(ctx context.Context) Actor {
	if a, ok := FromContext(ctx); ok {
		return a
	}
	return Actor{ID: "system", Kind: KindSystem}
}
