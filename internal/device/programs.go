package device

import (
	"context"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// programStore manages the named schedules of a thermostat or multi-zone module. The set
// and the active id come from one endpoint and share one cache entry.
type programStore struct {
	b *base
}

func (p programStore) List(ctx context.Context) (model.ProgramSet, error) {
	return fetchField(ctx, p.b, FieldPrograms, func(ctx context.Context) (model.ProgramSet, error) {
		return p.b.svc.Programs(ctx, p.b.kind, p.b.id)
	})
}

func (p programStore) Active(ctx context.Context) (string, error) {
	ps, err := p.List(ctx)
	if err != nil {
		return "", err
	}
	return ps.ActiveID, nil
}

// known returns the cached program set, stale or not, reading through the cache only
// when nothing was ever fetched.
func (p programStore) known(ctx context.Context) (model.ProgramSet, error) {
	if e, ok := p.b.cache.Peek(p.b.key(FieldPrograms)); ok {
		if ps, ok := e.Value.(model.ProgramSet); ok {
			return ps, nil
		}
	}
	return p.List(ctx)
}

func (p programStore) SetActive(ctx context.Context, programID string) error {
	ps, err := p.known(ctx)
	if err != nil {
		return err
	}
	if !ps.Contains(programID) {
		return &ProgramNotFoundError{Serial: p.b.serial, ProgramID: programID}
	}
	return p.b.write(ctx, "activate program", func(ctx context.Context) (string, error) {
		return p.b.svc.ActivateProgram(ctx, p.b.kind, p.b.id, programID)
	}, FieldPrograms)
}

func (p programStore) step() refreshStep {
	return refreshStep{FieldPrograms, func(ctx context.Context) error { _, err := p.List(ctx); return err }}
}
