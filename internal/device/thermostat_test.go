package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTemporaryOverrideDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     int
	}{
		{"omitted", 0, DefaultOverrideDuration},
		{"negative", -5, DefaultOverrideDuration},
		{"explicit", 45, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAccount()
			th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

			require.NoError(t, th.SetTemporaryOverride(context.Background(), 21.5, tt.duration))
			require.Len(t, svc.overrides, 1)
			assert.Equal(t, overrideCall{id: thermostatID, temperature: 21.5, duration: tt.want}, svc.overrides[0])
		})
	}
}

func TestOverrideInvalidatesTemperature(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	sp, err := th.SetPoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, sp)
	_, err = th.Humidity(ctx)
	require.NoError(t, err)

	require.NoError(t, th.SetTemporaryOverride(ctx, 22, 0))

	sp, err = th.SetPoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 22.0, sp)
	assert.Equal(t, 2, svc.count("temperature"))

	_, err = th.Humidity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.count("humidity"), "unrelated fields stay cached")
}

func TestFailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	_, err := th.Temperature(ctx)
	require.NoError(t, err)

	rejected := errors.New("400 bad request")
	svc.failWith("override", rejected)

	err = th.SetTemporaryOverride(ctx, 30, 10)
	assert.ErrorIs(t, err, rejected)
	assert.Contains(t, err.Error(), "TH-001")

	_, err = th.Temperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.count("temperature"))
}

func TestScheduleAbsence(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	_, err := th.Temperature(ctx)
	require.NoError(t, err)

	start := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 17, 18, 30, 0, 0, time.UTC)
	require.NoError(t, th.ScheduleAbsence(ctx, start, end))

	require.Len(t, svc.absences, 1)
	assert.Equal(t, [2]string{"2024-02-10 08:00", "2024-02-17 18:30"}, svc.absences[0])

	_, err = th.Temperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.count("temperature"))
}

func TestClearCalls(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	require.NoError(t, th.ClearTemporaryOverride(ctx))
	require.NoError(t, th.ClearAbsence(ctx))

	assert.Equal(t, []string{"clear-override:" + thermostatID, "clear-absence:" + thermostatID}, svc.calls)
}

func TestThermostatRefreshOrder(t *testing.T) {
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	require.NoError(t, th.Refresh(context.Background()))

	assert.Equal(t, []string{
		"info:" + thermostatID, "temperature:" + thermostatID,
		"info:" + thermostatID, "humidity:" + thermostatID,
		"info:" + thermostatID, "presence:" + thermostatID,
		"info:" + thermostatID, "programs:" + thermostatID,
	}, svc.calls)
}

func TestThermostatRefreshRefetchesFreshFields(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	_, err := th.Presence(ctx)
	require.NoError(t, err)

	svc.failWith("humidity", errors.New("boom"))
	err = th.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "humidity")

	assert.Equal(t, 2, svc.count("presence"))
	assert.Equal(t, 1, svc.count("programs"), "refresh continues past a failed field")
}

func TestSetPointAfterOverrideIgnoresFetchInFlight(t *testing.T) {
	ctx := context.Background()
	svc := newAccount()
	th := thermostat(t, discover(t, svc, &fakeClock{t: at(10, 0)}))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	svc.hook("temperature", func() {
		once.Do(func() {
			close(started)
			<-release
		})
	})

	first := make(chan float64)
	go func() {
		sp, err := th.SetPoint(ctx)
		assert.NoError(t, err)
		first <- sp
	}()
	<-started

	require.NoError(t, th.SetTemporaryOverride(ctx, 22, 0))

	sp, err := th.SetPoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 22.0, sp, "a read issued after the write sees the written set point")

	close(release)
	assert.Equal(t, 20.0, <-first)

	sp, err = th.SetPoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 22.0, sp)
	assert.Equal(t, 2, svc.count("temperature"))
}
