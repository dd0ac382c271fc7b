package device

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

type overrideCall struct {
	id          string
	temperature float64
	duration    int
}

// fakeService serves canned responses keyed by remote id and records every call.
type fakeService struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
	// hooks run after a call is recorded, outside the lock
	hooks map[string]func()

	refs        []model.DeviceRef
	infos       map[string]model.Info
	temperature map[string]model.TemperatureReading
	humidity    map[string]float64
	presence    map[string]bool
	orders      map[string]string
	programs    map[string]model.ProgramSet
	settings    map[string]any

	overrides []overrideCall
	absences  [][2]string
	activated []string
}

func newFakeService() *fakeService {
	return &fakeService{
		errs:        make(map[string]error),
		hooks:       make(map[string]func()),
		infos:       make(map[string]model.Info),
		temperature: make(map[string]model.TemperatureReading),
		humidity:    make(map[string]float64),
		presence:    make(map[string]bool),
		orders:      make(map[string]string),
		programs:    make(map[string]model.ProgramSet),
	}
}

func (f *fakeService) record(method, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method+":"+id)
	err, hook := f.errs[method], f.hooks[method]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeService) hook(method string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[method] = fn
}

func (f *fakeService) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeService) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > len(method) && c[:len(method)+1] == method+":" {
			n++
		}
	}
	return n
}

func (f *fakeService) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeService) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeService) ListDevices(ctx context.Context) ([]model.DeviceRef, error) {
	if err := f.record("list", ""); err != nil {
		return nil, err
	}
	return f.refs, nil
}

func (f *fakeService) DeviceInfo(ctx context.Context, kind model.Kind, id string) (model.Info, error) {
	if err := f.record("info", id); err != nil {
		return model.Info{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.infos[id]
	if !ok {
		return model.Info{}, fmt.Errorf("no info for %s", id)
	}
	return info, nil
}

// Temperature snapshots the reading before recording the call, so a hooked call answers
// with the state as of its arrival.
func (f *fakeService) Temperature(ctx context.Context, kind model.Kind, id string) (model.TemperatureReading, error) {
	f.mu.Lock()
	r := f.temperature[id]
	f.mu.Unlock()
	if err := f.record("temperature", id); err != nil {
		return model.TemperatureReading{}, err
	}
	return r, nil
}

func (f *fakeService) Humidity(ctx context.Context, kind model.Kind, id string) (float64, error) {
	if err := f.record("humidity", id); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.humidity[id], nil
}

func (f *fakeService) Presence(ctx context.Context, kind model.Kind, id string) (bool, error) {
	if err := f.record("presence", id); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presence[id], nil
}

func (f *fakeService) PilotWireOrder(ctx context.Context, kind model.Kind, id string) (string, error) {
	if err := f.record("order", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id], nil
}

func (f *fakeService) SetTemporaryInstruction(ctx context.Context, kind model.Kind, id string, temperature float64, duration int) (string, error) {
	if err := f.record("override", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = append(f.overrides, overrideCall{id: id, temperature: temperature, duration: duration})
	r := f.temperature[id]
	r.SetPoint = temperature
	f.temperature[id] = r
	return "Temporary instruction set", nil
}

func (f *fakeService) DeleteTemporaryInstruction(ctx context.Context, kind model.Kind, id string) (string, error) {
	if err := f.record("clear-override", id); err != nil {
		return "", err
	}
	return "Temporary instruction removed", nil
}

func (f *fakeService) Programs(ctx context.Context, kind model.Kind, id string) (model.ProgramSet, error) {
	if err := f.record("programs", id); err != nil {
		return model.ProgramSet{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programs[id], nil
}

func (f *fakeService) ActivateProgram(ctx context.Context, kind model.Kind, id, programID string) (string, error) {
	if err := f.record("activate", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, programID)
	ps := f.programs[id]
	ps.ActiveID = programID
	f.programs[id] = ps
	return "Program activated", nil
}

func (f *fakeService) SetAbsence(ctx context.Context, kind model.Kind, id, start, end string) (string, error) {
	if err := f.record("absence", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.absences = append(f.absences, [2]string{start, end})
	return "Absence set", nil
}

func (f *fakeService) DeleteAbsence(ctx context.Context, kind model.Kind, id string) (string, error) {
	if err := f.record("clear-absence", id); err != nil {
		return "", err
	}
	return "Absence removed", nil
}

func (f *fakeService) Settings(ctx context.Context) (map[string]any, error) {
	if err := f.record("settings", ""); err != nil {
		return nil, err
	}
	return f.settings, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func at(hour, min int) time.Time {
	return time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
}

const (
	thermostatID = "uuid-th"
	moduleID     = "uuid-hm"
	gatewayID    = "uuid-gw"
)

// newAccount returns a service with one thermostat, one module and one gateway, all
// having last communicated at 10:00 with a 15 minute interval.
func newAccount() *fakeService {
	svc := newFakeService()
	svc.refs = []model.DeviceRef{
		{Type: "thermostat", ID: thermostatID},
		{Type: "wireless-module", ID: moduleID},
		{Type: "gateway", ID: gatewayID},
	}
	for id, serial := range map[string]string{thermostatID: "TH-001", moduleID: "HM-001", gatewayID: "GW-001"} {
		svc.infos[id] = model.Info{Serial: serial, LastCommunication: at(10, 0), CommunicationInterval: 15 * time.Minute}
	}
	svc.temperature[thermostatID] = model.TemperatureReading{Temperature: 19.5, SetPoint: 20}
	svc.temperature[moduleID] = model.TemperatureReading{Temperature: 18.0}
	svc.humidity[thermostatID] = 45
	svc.humidity[moduleID] = 52
	svc.presence[thermostatID] = true
	svc.orders[moduleID] = MonozoneOrder
	svc.programs[thermostatID] = model.ProgramSet{
		Programs: []model.Program{{ID: "1", Name: "Week"}, {ID: "2", Name: "Holidays"}},
		ActiveID: "1",
	}
	svc.programs[moduleID] = model.ProgramSet{
		Programs: []model.Program{{ID: "10", Name: "Bedroom"}, {ID: "11", Name: "Away"}},
		ActiveID: "10",
	}
	return svc
}

// discover builds a registry without the warm-up sweep and clears the discovery calls.
func discover(t *testing.T, svc *fakeService, clock *fakeClock, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithWarmUp(false)}, opts...)
	r := NewRegistry(svc, opts...)
	_, err := r.Discover(context.Background())
	require.NoError(t, err)
	svc.resetCalls()
	return r
}

func thermostat(t *testing.T, r *Registry) *Thermostat {
	t.Helper()
	d, err := r.Device("TH-001")
	require.NoError(t, err)
	th, ok := d.(*Thermostat)
	require.True(t, ok)
	return th
}

func module(t *testing.T, r *Registry) *Module {
	t.Helper()
	d, err := r.Device("HM-001")
	require.NoError(t, err)
	m, ok := d.(*Module)
	require.True(t, ok)
	return m
}
