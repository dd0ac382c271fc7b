package device

import (
	"strings"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// Capability is a set of field groups and operations a variant supports.
type Capability uint8

const (
	CapSensor Capability = 1 << iota // temperature, humidity
	CapPresence
	CapSetPoint
	CapOverride
	CapAbsence
	CapPilotWire
	CapPrograms
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapSensor, "sensor"},
	{CapPresence, "presence"},
	{CapSetPoint, "set_point"},
	{CapOverride, "override"},
	{CapAbsence, "absence"},
	{CapPilotWire, "pilot_wire"},
	{CapPrograms, "programs"},
}

func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c.Has(cn.cap) {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// CapabilitiesOf is the capability set declared by each variant.
func CapabilitiesOf(v model.Variant) Capability {
	switch v {
	case model.VariantThermostat:
		return CapSensor | CapPresence | CapSetPoint | CapOverride | CapAbsence | CapPrograms
	case model.VariantModuleMonozone:
		return CapSensor | CapPilotWire
	case model.VariantModuleMultizone:
		return CapSensor | CapPilotWire | CapPrograms
	default:
		return 0
	}
}

var fieldCapabilities = map[Field]Capability{
	FieldTemperature:    CapSensor,
	FieldHumidity:       CapSensor,
	FieldPresence:       CapPresence,
	FieldSetPoint:       CapSetPoint,
	FieldPilotWireOrder: CapPilotWire,
	FieldPrograms:       CapPrograms,
	FieldActiveProgram:  CapPrograms,
}
