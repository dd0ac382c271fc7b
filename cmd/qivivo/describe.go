package main

import (
	"context"
	"fmt"

	"github.com/thatsimonsguy/qivivo-client/internal/device"
)

// describe renders one device for the terminal. Fields that fail to load are shown with
// their error rather than aborting the listing.
func describe(ctx context.Context, d device.Device) []string {
	lines := []string{
		fmt.Sprintf("%s (%s)", d.Serial(), d.Variant()),
		fmt.Sprintf("  next communication: %s", d.Schedule().Next().Format("2006-01-02 15:04 MST")),
	}

	if s, ok := d.(device.Sensor); ok {
		lines = append(lines,
			field("temperature", unit(s.Temperature(ctx))("°C")),
			field("humidity", unit(s.Humidity(ctx))("%")),
		)
	}

	switch v := d.(type) {
	case *device.Thermostat:
		sp, err := v.SetPoint(ctx)
		lines = append(lines, field("set point", unit(sp, err)("°C")))
		presence, err := v.Presence(ctx)
		lines = append(lines, field("presence", value(presence, err)))
	case *device.Module:
		order, err := v.PilotWireOrder(ctx)
		lines = append(lines, field("pilot wire order", value(order, err)))
	}

	if p, ok := d.(device.Programmable); ok {
		ps, err := p.Programs(ctx)
		lines = append(lines, field("programs", value(ps, err)))
	}
	return lines
}

func field(name, v string) string {
	return fmt.Sprintf("  %s: %s", name, v)
}

func value(v any, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprint(v)
}

func unit(v float64, err error) func(string) string {
	return func(u string) string {
		if err != nil {
			return "error: " + err.Error()
		}
		return fmt.Sprintf("%.1f%s", v, u)
	}
}
