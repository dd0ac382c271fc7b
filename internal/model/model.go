package model

import (
	"fmt"
	"time"
)

// Kind is the device type string used by the remote service.
type Kind string

const (
	KindThermostat Kind = "thermostat"
	KindModule     Kind = "wireless-module"
	KindGateway    Kind = "gateway"
)

// ParseKind maps a remote type string to a Kind. ok is false for kinds this client does not know.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindThermostat, KindModule, KindGateway:
		return Kind(s), true
	default:
		return "", false
	}
}

// Path is the plural path segment the service uses for this kind ("thermostats", ...).
func (k Kind) Path() string {
	return string(k) + "s"
}

type Variant string

const (
	VariantGateway         Variant = "gateway"
	VariantThermostat      Variant = "thermostat"
	VariantModuleMonozone  Variant = "module-monozone"
	VariantModuleMultizone Variant = "module-multizone"
)

// DeviceRef is one entry of the account's device listing. Type is kept raw so that
// kinds this client does not know can be reported and skipped.
type DeviceRef struct {
	Type string
	ID   string
}

// Info is the subset of a device info response this client understands.
// Keys the service adds beyond these are ignored.
type Info struct {
	Serial                string
	LastCommunication     time.Time
	CommunicationInterval time.Duration
}

// Schedule records when a device last reported in and how often it is expected to.
type Schedule struct {
	LastCommunication time.Time
	Interval          time.Duration
}

// Next is the instant the device is next expected to communicate.
func (s Schedule) Next() time.Time {
	return s.LastCommunication.Add(s.Interval)
}

func (s Schedule) IsZero() bool {
	return s.LastCommunication.IsZero()
}

// TemperatureReading is one response of the temperature endpoint. SetPoint is only
// reported by thermostats.
type TemperatureReading struct {
	Temperature float64 `json:"temperature"`
	SetPoint    float64 `json:"set_point"`
}

type Program struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ThermostatProgram is what a mono-zone module reports for its programs: it follows
// the thermostat's schedule.
const ThermostatProgram = "Thermostat program"

type ProgramSet struct {
	Programs []Program `json:"programs"`
	ActiveID string    `json:"active_id"`
	// Fixed is set on the placeholder returned by mono-zone modules.
	Fixed bool `json:"fixed,omitempty"`
}

func (ps ProgramSet) Contains(id string) bool {
	for _, p := range ps.Programs {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (ps ProgramSet) Active() (Program, bool) {
	for _, p := range ps.Programs {
		if p.ID == ps.ActiveID {
			return p, true
		}
	}
	return Program{}, false
}

func (ps ProgramSet) String() string {
	if ps.Fixed {
		return ThermostatProgram
	}
	if p, ok := ps.Active(); ok {
		return fmt.Sprintf("%d programs, active %s (%s)", len(ps.Programs), p.ID, p.Name)
	}
	return fmt.Sprintf("%d programs, active %s", len(ps.Programs), ps.ActiveID)
}

// Reading is one successful field fetch, as handed to a journal.
type Reading struct {
	Serial     string
	Field      string
	Value      any
	FetchedAt  time.Time
	ValidUntil time.Time
}
