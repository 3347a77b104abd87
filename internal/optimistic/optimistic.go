// Package optimistic applies a local state change before the server round
// trip finishes and reconciles or rolls back afterwards. It is the single
// shared implementation for every optimistic flow in the console (checklist
// cell toggles, profile-completion toggles), so failure behavior stays
// uniform.
package optimistic

import "context"

// Mutation describes one optimistic state change over a value of type S.
// Snapshot captures the current value, Apply writes a value to local state,
// Commit performs the server call and may return an authoritative value to
// reconcile with.
type Mutation[S any] struct {
	Snapshot func() S
	Apply    func(S)
	NewValue S
	Commit   func(ctx context.Context) (*S, error)
}

// Run executes the mutation: snapshot, apply immediately, commit. On commit
// failure the snapshot is restored and the error returned for the caller to
// surface; no partial local reconciliation is attempted. On success an
// authoritative value from the response, when present, replaces the
// optimistic one.
func Run[S any](ctx context.Context, m Mutation[S]) error {
	prev := m.Snapshot()
	m.Apply(m.NewValue)

	authoritative, err := m.Commit(ctx)
	if err != nil {
		m.Apply(prev)
		return err
	}
	if authoritative != nil {
		m.Apply(*authoritative)
	}
	return nil
}
