package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/qivivo-client/internal/cache"
	"github.com/thatsimonsguy/qivivo-client/internal/datadog"
	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// Registry discovers the devices of the account and keeps them by serial.
//
// Discovery is the only way devices enter the registry; devices added or removed on the
// account afterwards require another Discover.
type Registry struct {
	svc      Service
	now      func() time.Time
	recorder Recorder
	warmUp   bool

	mu      sync.RWMutex
	devices map[string]Device
}

type Option func(*Registry)

// WithClock sets the clock every device cache uses to judge freshness.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithRecorder hands every successful field fetch to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithWarmUp controls the refresh sweep Discover runs after building devices. On by default.
func WithWarmUp(enabled bool) Option {
	return func(r *Registry) {
		r.warmUp = enabled
	}
}

func NewRegistry(svc Service, opts ...Option) *Registry {
	r := &Registry{
		svc:      svc,
		now:      time.Now,
		recorder: noopRecorder{},
		warmUp:   true,
		devices:  make(map[string]Device),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover lists the account's devices, builds one Device per known kind and replaces the
// registry's contents with them. Unknown kinds are skipped with a warning. When warm-up is
// enabled every device is then refreshed once; failures there are logged, not returned.
func (r *Registry) Discover(ctx context.Context) (map[string]Device, error) {
	refs, err := r.svc.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	devices := make(map[string]Device, len(refs))
	for _, ref := range refs {
		kind, ok := model.ParseKind(ref.Type)
		if !ok {
			log.Warn().
				Str("type", ref.Type).
				Str("id", ref.ID).
				Msg("Skipping device of unknown type")
			continue
		}

		d, err := r.build(ctx, kind, ref.ID)
		if err != nil {
			return nil, err
		}
		if _, dup := devices[d.Serial()]; dup {
			log.Warn().Str("serial", d.Serial()).Str("id", ref.ID).Msg("Duplicate serial in device listing, keeping the last one")
		}
		devices[d.Serial()] = d

		log.Info().
			Str("serial", d.Serial()).
			Str("kind", string(kind)).
			Str("variant", string(d.Variant())).
			Msg("Discovered device")
	}

	r.mu.Lock()
	r.devices = devices
	r.mu.Unlock()

	datadog.Gauge("registry.devices", float64(len(devices)))

	if r.warmUp {
		_ = r.sweep(ctx, sortedSerials(devices), devices)
	}
	return r.Devices(), nil
}

func (r *Registry) build(ctx context.Context, kind model.Kind, id string) (Device, error) {
	b, err := newBase(ctx, r.svc, kind, id, cache.New(cache.WithClock(r.now)), r.recorder)
	if err != nil {
		return nil, err
	}
	switch kind {
	case model.KindThermostat:
		return newThermostat(b), nil
	case model.KindModule:
		return newModule(b), nil
	default:
		return &Gateway{base: b}, nil
	}
}

// Devices returns the discovered devices keyed by serial.
func (r *Registry) Devices() map[string]Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Device, len(r.devices))
	for k, v := range r.devices {
		out[k] = v
	}
	return out
}

func (r *Registry) Device(serial string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serial]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, serial)
	}
	return d, nil
}

// Refresh forces a refresh of the named devices, or of all of them when none are named.
// Every device is attempted; the failures are joined in the returned error.
func (r *Registry) Refresh(ctx context.Context, serials ...string) error {
	devices := r.Devices()
	if len(serials) == 0 {
		serials = sortedSerials(devices)
	}
	for _, s := range serials {
		if _, ok := devices[s]; !ok {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, s)
		}
	}
	return r.sweep(ctx, serials, devices)
}

func (r *Registry) sweep(ctx context.Context, serials []string, devices map[string]Device) error {
	var errs []error
	for _, s := range serials {
		d := devices[s]
		if err := d.Refresh(ctx); err != nil {
			log.Error().
				Err(err).
				Str("serial", s).
				Str("variant", string(d.Variant())).
				Msg("Device refresh failed")
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}
		log.Debug().Str("serial", s).Msg("Device refreshed")
	}
	return errors.Join(errs...)
}

// Settings returns the account's habitation settings as the service reports them.
func (r *Registry) Settings(ctx context.Context) (map[string]any, error) {
	settings, err := r.svc.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching settings: %w", err)
	}
	return settings, nil
}

func sortedSerials(devices map[string]Device) []string {
	serials := make([]string, 0, len(devices))
	for s := range devices {
		serials = append(serials, s)
	}
	sort.Strings(serials)
	return serials
}
