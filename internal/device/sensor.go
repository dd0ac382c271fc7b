package device

import (
	"context"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// sensor gives thermostats and modules their temperature and humidity fields, each
// cached under its own key.
type sensor struct {
	*base
}

func (s sensor) reading(ctx context.Context) (model.TemperatureReading, error) {
	return fetchField(ctx, s.base, FieldTemperature, func(ctx context.Context) (model.TemperatureReading, error) {
		return s.svc.Temperature(ctx, s.kind, s.id)
	})
}

func (s sensor) Temperature(ctx context.Context) (float64, error) {
	r, err := s.reading(ctx)
	if err != nil {
		return 0, err
	}
	return r.Temperature, nil
}

func (s sensor) Humidity(ctx context.Context) (float64, error) {
	return fetchField(ctx, s.base, FieldHumidity, func(ctx context.Context) (float64, error) {
		return s.svc.Humidity(ctx, s.kind, s.id)
	})
}

func (s sensor) steps() []refreshStep {
	return []refreshStep{
		{FieldTemperature, func(ctx context.Context) error { _, err := s.reading(ctx); return err }},
		{FieldHumidity, func(ctx context.Context) error { _, err := s.Humidity(ctx); return err }},
	}
}
