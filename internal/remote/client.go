// Package remote talks to the Qivivo data API. It implements the device package's Service
// contract, one method per endpoint, and authenticates with OAuth2 client credentials.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

const (
	DefaultBaseURL  = "https://data.qivivo.com/api/v2/"
	DefaultTokenURL = "https://account.qivivo.com/oauth/token"
	DefaultScopes   = "user_basic_information read_devices read_thermostats read_wireless_modules " +
		"read_programmation update_programmation read_house_data update_house_settings"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       string
	Timeout      time.Duration
	// Location is the timezone the service writes communication dates in.
	Location *time.Location
}

type Client struct {
	http    *http.Client
	baseURL string
	loc     *time.Location
}

// New returns a client whose requests carry a bearer token obtained, and renewed when it
// expires, from cfg.TokenURL.
func New(ctx context.Context, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	scopes := cfg.Scopes
	if scopes == "" {
		scopes = DefaultScopes
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       strings.Fields(scopes),
	}
	// the token exchange uses this client too
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	hc := cc.Client(ctx)
	hc.Timeout = timeout

	log.Info().
		Str("base_url", baseOrDefault(cfg.BaseURL)).
		Str("token_url", tokenURL).
		Dur("timeout", timeout).
		Msg("Remote client initialized")

	return NewWithHTTPClient(cfg.BaseURL, hc, cfg.Location)
}

// NewWithHTTPClient uses hc as is; authentication, if any, is hc's business.
func NewWithHTTPClient(baseURL string, hc *http.Client, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimSuffix(baseOrDefault(baseURL), "/") + "/",
		loc:     loc,
	}
}

func baseOrDefault(u string) string {
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

func devicePath(kind model.Kind, id, endpoint string) string {
	return fmt.Sprintf("devices/%s/%s/%s", kind.Path(), id, endpoint)
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := c.baseURL + path
	op := method

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("Remote call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Op: op, URL: endpoint, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// writes may answer with an empty body
		if errors.Is(err, io.EOF) && method != http.MethodGet {
			return nil
		}
		return &TransportError{Op: op, URL: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// message sends a write and returns the confirmation the service answers with.
func (c *Client) message(ctx context.Context, method, path string, body any) (string, error) {
	var m messageResponse
	if err := c.do(ctx, method, path, body, &m); err != nil {
		return "", err
	}
	return m.Message, nil
}

func (c *Client) ListDevices(ctx context.Context) ([]model.DeviceRef, error) {
	var l deviceList
	if err := c.get(ctx, "devices", &l); err != nil {
		return nil, err
	}
	refs := make([]model.DeviceRef, 0, len(l.Devices))
	for _, d := range l.Devices {
		refs = append(refs, model.DeviceRef{Type: d.Type, ID: d.UUID})
	}
	return refs, nil
}

func (c *Client) DeviceInfo(ctx context.Context, kind model.Kind, id string) (model.Info, error) {
	path := devicePath(kind, id, "info")
	var r infoResponse
	if err := c.get(ctx, path, &r); err != nil {
		return model.Info{}, err
	}
	info, err := r.toInfo(c.loc)
	if err != nil {
		return model.Info{}, &TransportError{Op: http.MethodGet, URL: c.baseURL + path, Status: http.StatusOK, Err: err}
	}
	return info, nil
}

func (c *Client) Temperature(ctx context.Context, kind model.Kind, id string) (model.TemperatureReading, error) {
	var r temperatureResponse
	if err := c.get(ctx, devicePath(kind, id, "temperature"), &r); err != nil {
		return model.TemperatureReading{}, err
	}
	return model.TemperatureReading{Temperature: r.Temperature, SetPoint: r.CurrentTemperatureOrder}, nil
}

func (c *Client) Humidity(ctx context.Context, kind model.Kind, id string) (float64, error) {
	var r humidityResponse
	if err := c.get(ctx, devicePath(kind, id, "humidity"), &r); err != nil {
		return 0, err
	}
	return r.Humidity, nil
}

func (c *Client) Presence(ctx context.Context, kind model.Kind, id string) (bool, error) {
	var r presenceResponse
	if err := c.get(ctx, devicePath(kind, id, "presence"), &r); err != nil {
		return false, err
	}
	return r.PresenceDetected, nil
}

func (c *Client) PilotWireOrder(ctx context.Context, kind model.Kind, id string) (string, error) {
	var r pilotWireResponse
	if err := c.get(ctx, devicePath(kind, id, "pilot-wire-order"), &r); err != nil {
		return "", err
	}
	return r.CurrentPilotWireOrder, nil
}

func (c *Client) SetTemporaryInstruction(ctx context.Context, kind model.Kind, id string, temperature float64, duration int) (string, error) {
	return c.message(ctx, http.MethodPost, devicePath(kind, id, "temperature/temporary-instruction"),
		temporaryInstruction{Temperature: temperature, Duration: duration})
}

func (c *Client) DeleteTemporaryInstruction(ctx context.Context, kind model.Kind, id string) (string, error) {
	return c.message(ctx, http.MethodDelete, devicePath(kind, id, "temperature/temporary-instruction"), nil)
}

func (c *Client) Programs(ctx context.Context, kind model.Kind, id string) (model.ProgramSet, error) {
	var r programsResponse
	if err := c.get(ctx, devicePath(kind, id, "programs"), &r); err != nil {
		return model.ProgramSet{}, err
	}
	return r.toProgramSet(), nil
}

func (c *Client) ActivateProgram(ctx context.Context, kind model.Kind, id, programID string) (string, error) {
	return c.message(ctx, http.MethodPut, devicePath(kind, id, "programs/"+url.PathEscape(programID)+"/active"), nil)
}

func (c *Client) SetAbsence(ctx context.Context, kind model.Kind, id, start, end string) (string, error) {
	return c.message(ctx, http.MethodPost, devicePath(kind, id, "absence"),
		absenceRequest{StartDate: start, EndDate: end})
}

func (c *Client) DeleteAbsence(ctx context.Context, kind model.Kind, id string) (string, error) {
	return c.message(ctx, http.MethodDelete, devicePath(kind, id, "absence"), nil)
}

func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var settings map[string]any
	if err := c.get(ctx, "habitation/data/settings", &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
