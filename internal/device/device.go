// Package device models the devices of one account: a thermostat, its wireless modules
// and the gateway. Field reads go through a per-device validity cache whose expiries come
// from each device's communication schedule.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/qivivo-client/internal/cache"
	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

type Field string

const (
	FieldID      Field = "id"
	FieldSerial  Field = "serial"
	FieldVariant Field = "variant"

	FieldTemperature    Field = "temperature"
	FieldHumidity       Field = "humidity"
	FieldPresence       Field = "presence"
	FieldSetPoint       Field = "set_point"
	FieldPilotWireOrder Field = "pilot_wire_order"
	FieldPrograms       Field = "programs"
	FieldActiveProgram  Field = "active_program"
)

// Device is implemented by *Gateway, *Thermostat and *Module. Callers dispatch on Variant.
type Device interface {
	ID() string
	Serial() string
	Kind() model.Kind
	Variant() model.Variant
	Capabilities() Capability

	// Schedule is the communication schedule as of the last info fetch.
	Schedule() model.Schedule
	RefreshInfo(ctx context.Context) error

	// Refresh refetches every field the variant carries, in a fixed order.
	Refresh(ctx context.Context) error

	// Set writes a field by name. Identity and sensor fields are immutable.
	Set(ctx context.Context, field Field, value any) error
}

// Sensor is implemented by thermostats and modules.
type Sensor interface {
	Device
	Temperature(ctx context.Context) (float64, error)
	Humidity(ctx context.Context) (float64, error)
}

// Programmable is implemented by thermostats and modules; mono-zone modules answer with
// the fixed thermostat program.
type Programmable interface {
	Device
	Programs(ctx context.Context) (model.ProgramSet, error)
	ActiveProgram(ctx context.Context) (string, error)
	SetActiveProgram(ctx context.Context, programID string) error
}

// base carries identity, schedule and the field cache shared by every variant.
type base struct {
	svc   Service
	cache *cache.Cache
	rec   Recorder

	kind   model.Kind
	id     string
	serial string

	mu       sync.RWMutex
	schedule model.Schedule
}

// newBase fetches the device's info once to learn its serial and schedule.
func newBase(ctx context.Context, svc Service, kind model.Kind, id string, c *cache.Cache, rec Recorder) (*base, error) {
	b := &base{
		svc:   svc,
		cache: c,
		rec:   rec,
		kind:  kind,
		id:    id,
	}
	info, err := svc.DeviceInfo(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s info: %w", kind, id, err)
	}
	if info.Serial == "" {
		return nil, fmt.Errorf("%s %s info carries no serial", kind, id)
	}
	b.serial = info.Serial
	b.schedule = model.Schedule{LastCommunication: info.LastCommunication, Interval: info.CommunicationInterval}
	return b, nil
}

func (b *base) ID() string       { return b.id }
func (b *base) Serial() string   { return b.serial }
func (b *base) Kind() model.Kind { return b.kind }

func (b *base) Schedule() model.Schedule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schedule
}

func (b *base) RefreshInfo(ctx context.Context) error {
	_, err := b.refreshInfo(ctx)
	return err
}

// refreshInfo updates the schedule and returns the next expected communication.
func (b *base) refreshInfo(ctx context.Context) (time.Time, error) {
	info, err := b.svc.DeviceInfo(ctx, b.kind, b.id)
	if err != nil {
		return time.Time{}, fmt.Errorf("refreshing %s info: %w", b.serial, err)
	}
	if info.Serial != "" && info.Serial != b.serial {
		log.Warn().
			Str("serial", b.serial).
			Str("reported_serial", info.Serial).
			Msg("Info reports a different serial, keeping the discovered one")
	}

	s := model.Schedule{LastCommunication: info.LastCommunication, Interval: info.CommunicationInterval}
	b.mu.Lock()
	b.schedule = s
	b.mu.Unlock()

	if next := s.Next(); !b.cache.Now().Before(next) {
		log.Debug().
			Str("serial", b.serial).
			Time("next_communication", next).
			Msg("Device is past its expected communication, fetched values expire immediately")
	}
	return s.Next(), nil
}

func (b *base) key(f Field) cache.Key {
	return cache.Key{Device: b.serial, Field: string(f)}
}

func (b *base) record(ctx context.Context, f Field, value any, validUntil time.Time) {
	err := b.rec.Record(ctx, model.Reading{
		Serial:     b.serial,
		Field:      string(f),
		Value:      value,
		FetchedAt:  b.cache.Now(),
		ValidUntil: validUntil,
	})
	if err != nil {
		log.Warn().Err(err).Str("serial", b.serial).Str("field", string(f)).Msg("Failed to record reading")
	}
}

// fetchField reads f through the cache. On a miss the schedule is refreshed first and its
// next communication becomes the new value's expiry.
func fetchField[T any](ctx context.Context, b *base, f Field, call func(ctx context.Context) (T, error)) (T, error) {
	return cache.Get(ctx, b.cache, b.key(f), func(ctx context.Context) (T, time.Time, error) {
		var zero T
		next, err := b.refreshInfo(ctx)
		if err != nil {
			return zero, time.Time{}, err
		}
		v, err := call(ctx)
		if err != nil {
			return zero, time.Time{}, fmt.Errorf("fetching %s %s: %w", b.serial, f, err)
		}
		b.record(ctx, f, v, next)
		return v, next, nil
	})
}

// write forwards a remote write and invalidates keys once it succeeds.
func (b *base) write(ctx context.Context, op string, call func(ctx context.Context) (string, error), invalidate ...Field) error {
	keys := make([]cache.Key, 0, len(invalidate))
	for _, f := range invalidate {
		keys = append(keys, b.key(f))
	}
	return b.cache.Write(ctx, func(ctx context.Context) error {
		msg, err := call(ctx)
		if err != nil {
			return fmt.Errorf("%s on %s: %w", op, b.serial, err)
		}
		log.Info().Str("serial", b.serial).Str("op", op).Str("message", msg).Msg("Remote write accepted")
		return nil
	}, keys...)
}

type refreshStep struct {
	field Field
	read  func(ctx context.Context) error
}

// refresh forces each step to refetch, continuing past failures.
func (b *base) refresh(ctx context.Context, steps []refreshStep) error {
	var errs []error
	for _, s := range steps {
		b.cache.Invalidate(b.key(s.field))
		if err := s.read(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// setField applies the Set rules shared by all variants.
func setField(ctx context.Context, d Device, field Field, value any) error {
	switch field {
	case FieldID, FieldSerial, FieldVariant:
		return &ImmutableFieldError{Serial: d.Serial(), Field: field}
	}

	need, known := fieldCapabilities[field]
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if field == FieldActiveProgram {
		p, ok := d.(Programmable)
		if !ok {
			return &CapabilityError{Serial: d.Serial(), Variant: d.Variant(), Op: "set " + string(field)}
		}
		id, ok := value.(string)
		if !ok {
			return fmt.Errorf("device %s: %s must be a program id string, got %T", d.Serial(), field, value)
		}
		return p.SetActiveProgram(ctx, id)
	}

	if !d.Capabilities().Has(need) {
		return &CapabilityError{Serial: d.Serial(), Variant: d.Variant(), Op: "set " + string(field)}
	}
	return &ImmutableFieldError{Serial: d.Serial(), Field: field}
}
