package device

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// MonozoneOrder is the pilot wire order a module reports while it follows the thermostat.
const MonozoneOrder = "monozone"

// Module is a wireless pilot-wire module. It starts mono-zone and is promoted to
// multi-zone, for good, the first time a pilot wire order says otherwise.
type Module struct {
	sensor
	programs  programStore
	multizone atomic.Bool
}

func newModule(b *base) *Module {
	return &Module{sensor: sensor{b}, programs: programStore{b}}
}

func (m *Module) Multizone() bool {
	return m.multizone.Load()
}

func (m *Module) Variant() model.Variant {
	if m.Multizone() {
		return model.VariantModuleMultizone
	}
	return model.VariantModuleMonozone
}

func (m *Module) Capabilities() Capability { return CapabilitiesOf(m.Variant()) }

func (m *Module) PilotWireOrder(ctx context.Context) (string, error) {
	return fetchField(ctx, m.base, FieldPilotWireOrder, func(ctx context.Context) (string, error) {
		order, err := m.svc.PilotWireOrder(ctx, m.kind, m.id)
		if err != nil {
			return "", err
		}
		m.observeOrder(order)
		return order, nil
	})
}

func (m *Module) observeOrder(order string) {
	if order == "" || order == MonozoneOrder {
		return
	}
	if m.multizone.CompareAndSwap(false, true) {
		log.Info().
			Str("serial", m.serial).
			Str("order", order).
			Msg("Module promoted to multi-zone")
	}
}

func (m *Module) Programs(ctx context.Context) (model.ProgramSet, error) {
	if !m.Multizone() {
		return model.ProgramSet{Fixed: true, ActiveID: model.ThermostatProgram}, nil
	}
	return m.programs.List(ctx)
}

func (m *Module) ActiveProgram(ctx context.Context) (string, error) {
	if !m.Multizone() {
		return model.ThermostatProgram, nil
	}
	return m.programs.Active(ctx)
}

func (m *Module) SetActiveProgram(ctx context.Context, programID string) error {
	if !m.Multizone() {
		return &CapabilityError{
			Serial:  m.serial,
			Variant: model.VariantModuleMonozone,
			Op:      "set active program",
			Reason:  "device is on a fixed schedule, programs not settable",
		}
	}
	return m.programs.SetActive(ctx, programID)
}

// Refresh reads the pilot wire order before deciding whether programs apply.
func (m *Module) Refresh(ctx context.Context) error {
	steps := append(m.sensor.steps(),
		refreshStep{FieldPilotWireOrder, func(ctx context.Context) error { _, err := m.PilotWireOrder(ctx); return err }},
	)
	err := m.refresh(ctx, steps)
	if m.Multizone() {
		if perr := m.refresh(ctx, []refreshStep{m.programs.step()}); perr != nil {
			return errors.Join(err, perr)
		}
	}
	return err
}

func (m *Module) Set(ctx context.Context, field Field, value any) error {
	return setField(ctx, m, field, value)
}
