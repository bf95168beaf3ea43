// Package fsm implements the prefetch workflow.
// It resolves a request path to its source, drains the source stream into a
// normalized payload on disk, and records the outcome in the ledger using the
// superfly/fsm library.
package fsm

import (
	"context"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/superfly/fsm"
)

// Register registers the prefetch FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[PrefetchRequest, PrefetchResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[PrefetchRequest, PrefetchResponse](manager, "image-prefetch").
		Start(StateCheckDB, m.handleCheckDB).
		To(StateFetch, m.handleFetch).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
