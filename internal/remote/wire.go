package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// CommunicationLayout is how the service writes lastCommunicationDate, in its own timezone.
const CommunicationLayout = "2006-01-02 15:04"

type deviceList struct {
	Devices []struct {
		Type string `json:"type"`
		UUID string `json:"uuid"`
	} `json:"devices"`
}

type infoResponse struct {
	Serial                          string  `json:"serial"`
	LastCommunicationDate           string  `json:"lastCommunicationDate"`
	CurrentTimeBetweenCommunication float64 `json:"currentTimeBetweenCommunication"`
}

func (r infoResponse) toInfo(loc *time.Location) (model.Info, error) {
	info := model.Info{
		Serial:                r.Serial,
		CommunicationInterval: time.Duration(r.CurrentTimeBetweenCommunication * float64(time.Minute)),
	}
	if r.LastCommunicationDate == "" {
		return info, nil
	}
	last, err := parseCommunicationDate(r.LastCommunicationDate, loc)
	if err != nil {
		return model.Info{}, err
	}
	info.LastCommunication = last
	return info, nil
}

func parseCommunicationDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(CommunicationLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised communication date %q", s)
	}
	return t, nil
}

type temperatureResponse struct {
	Temperature             float64 `json:"temperature"`
	CurrentTemperatureOrder float64 `json:"current_temperature_order"`
}

type humidityResponse struct {
	Humidity float64 `json:"humidity"`
}

type presenceResponse struct {
	PresenceDetected bool `json:"presence_detected"`
}

type pilotWireResponse struct {
	CurrentPilotWireOrder string `json:"current_pilot_wire_order"`
}

// programID accepts ids sent either as JSON numbers or as strings.
type programID string

func (p *programID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = programID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("program id %s: %w", b, err)
	}
	*p = programID(n.String())
	return nil
}

type wireProgram struct {
	ID   programID `json:"id"`
	Name string    `json:"name"`
}

type programsResponse struct {
	UserPrograms          []wireProgram `json:"user_programs"`
	UserMultizonePrograms []wireProgram `json:"user_multizone_programs"`
	UserActiveProgramID   programID     `json:"user_active_program_id"`
}

func (r programsResponse) toProgramSet() model.ProgramSet {
	wire := r.UserPrograms
	if len(wire) == 0 {
		wire = r.UserMultizonePrograms
	}
	ps := model.ProgramSet{
		Programs: make([]model.Program, 0, len(wire)),
		ActiveID: string(r.UserActiveProgramID),
	}
	for _, p := range wire {
		ps.Programs = append(ps.Programs, model.Program{ID: string(p.ID), Name: p.Name})
	}
	return ps
}

type messageResponse struct {
	Message string `json:"message"`
}

type temporaryInstruction struct {
	Temperature float64 `json:"temperature"`
	Duration    int     `json:"duration"`
}

type absenceRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
