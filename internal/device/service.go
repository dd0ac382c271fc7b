package device

import (
	"context"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// Service is the remote device API. Every call is already authenticated; failures come
// back as errors and are never retried here.
type Service interface {
	ListDevices(ctx context.Context) ([]model.DeviceRef, error)
	DeviceInfo(ctx context.Context, kind model.Kind, id string) (model.Info, error)

	Temperature(ctx context.Context, kind model.Kind, id string) (model.TemperatureReading, error)
	Humidity(ctx context.Context, kind model.Kind, id string) (float64, error)
	Presence(ctx context.Context, kind model.Kind, id string) (bool, error)
	PilotWireOrder(ctx context.Context, kind model.Kind, id string) (string, error)

	SetTemporaryInstruction(ctx context.Context, kind model.Kind, id string, temperature float64, duration int) (string, error)
	DeleteTemporaryInstruction(ctx context.Context, kind model.Kind, id string) (string, error)

	Programs(ctx context.Context, kind model.Kind, id string) (model.ProgramSet, error)
	ActivateProgram(ctx context.Context, kind model.Kind, id, programID string) (string, error)

	SetAbsence(ctx context.Context, kind model.Kind, id, start, end string) (string, error)
	DeleteAbsence(ctx context.Context, kind model.Kind, id string) (string, error)

	Settings(ctx context.Context) (map[string]any, error)
}

// Recorder receives every successful field fetch.
type Recorder interface {
	Record(ctx context.Context, r model.Reading) error
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, model.Reading) error { return nil }
