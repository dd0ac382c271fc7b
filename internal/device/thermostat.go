package device

import (
	"context"
	"time"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// DefaultOverrideDuration is sent when SetTemporaryOverride is given no duration.
const DefaultOverrideDuration = 20

// AbsenceLayout is the wall-clock format the service expects for absence bounds.
const AbsenceLayout = "2006-01-02 15:04"

type Thermostat struct {
	sensor
	programs programStore
}

func newThermostat(b *base) *Thermostat {
	return &Thermostat{sensor: sensor{b}, programs: programStore{b}}
}

func (t *Thermostat) Variant() model.Variant { return model.VariantThermostat }

func (t *Thermostat) Capabilities() Capability { return CapabilitiesOf(model.VariantThermostat) }

// SetPoint is the temperature of the instruction currently in force. It arrives with the
// temperature reading and shares its validity window.
func (t *Thermostat) SetPoint(ctx context.Context) (float64, error) {
	r, err := t.reading(ctx)
	if err != nil {
		return 0, err
	}
	return r.SetPoint, nil
}

func (t *Thermostat) Presence(ctx context.Context) (bool, error) {
	return fetchField(ctx, t.base, FieldPresence, func(ctx context.Context) (bool, error) {
		return t.svc.Presence(ctx, t.kind, t.id)
	})
}

func (t *Thermostat) Programs(ctx context.Context) (model.ProgramSet, error) {
	return t.programs.List(ctx)
}

func (t *Thermostat) ActiveProgram(ctx context.Context) (string, error) {
	return t.programs.Active(ctx)
}

func (t *Thermostat) SetActiveProgram(ctx context.Context, programID string) error {
	return t.programs.SetActive(ctx, programID)
}

// SetTemporaryOverride posts a timed instruction. duration is in the service's unit;
// zero or less sends DefaultOverrideDuration.
func (t *Thermostat) SetTemporaryOverride(ctx context.Context, temperature float64, duration int) error {
	if duration <= 0 {
		duration = DefaultOverrideDuration
	}
	return t.write(ctx, "set temporary override", func(ctx context.Context) (string, error) {
		return t.svc.SetTemporaryInstruction(ctx, t.kind, t.id, temperature, duration)
	}, FieldTemperature)
}

func (t *Thermostat) ClearTemporaryOverride(ctx context.Context) error {
	return t.write(ctx, "clear temporary override", func(ctx context.Context) (string, error) {
		return t.svc.DeleteTemporaryInstruction(ctx, t.kind, t.id)
	}, FieldTemperature)
}

// ScheduleAbsence posts an absence window. start and end are sent as their wall-clock
// reading; callers convert them to the service's timezone beforehand.
func (t *Thermostat) ScheduleAbsence(ctx context.Context, start, end time.Time) error {
	s, e := start.Format(AbsenceLayout), end.Format(AbsenceLayout)
	return t.write(ctx, "schedule absence", func(ctx context.Context) (string, error) {
		return t.svc.SetAbsence(ctx, t.kind, t.id, s, e)
	}, FieldTemperature)
}

func (t *Thermostat) ClearAbsence(ctx context.Context) error {
	return t.write(ctx, "clear absence", func(ctx context.Context) (string, error) {
		return t.svc.DeleteAbsence(ctx, t.kind, t.id)
	}, FieldTemperature)
}

func (t *Thermostat) Refresh(ctx context.Context) error {
	steps := append(t.sensor.steps(),
		refreshStep{FieldPresence, func(ctx context.Context) error { _, err := t.Presence(ctx); return err }},
		t.programs.step(),
	)
	return t.refresh(ctx, steps)
}

func (t *Thermostat) Set(ctx context.Context, field Field, value any) error {
	return setField(ctx, t, field, value)
}
