package hue

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// requestTimeout bounds every bridge call; the bridge is on the LAN.
const requestTimeout = 10 * time.Second

// buttonNotPressedType is the bridge's pairing error for "link button not
// pressed yet".
const buttonNotPressedType = 101

// pairingDeviceType identifies this application to the bridge during pairing.
const pairingDeviceType = "homecontrol#controller"

// resourceRef points at another CLIP v2 resource.
type resourceRef struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

// CLIP v2 resource shapes, reduced to the fields the room controller walks.
type clipRoom struct {
	ID       string `json:"id"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Children []resourceRef `json:"children"`
	Services []resourceRef `json:"services"`
}

type clipDevice struct {
	ID       string        `json:"id"`
	Services []resourceRef `json:"services"`
}

type clipLight struct {
	ID       string `json:"id"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	On struct {
		On bool `json:"on"`
	} `json:"on"`
	Dimming *struct {
		Brightness float64 `json:"brightness"`
	} `json:"dimming"`
	ColorTemperature *struct {
		Mirek *int `json:"mirek"`
	} `json:"color_temperature"`
	Color *struct {
		XY XY `json:"xy"`
	} `json:"color"`
}

type clipGroupedLight struct {
	ID string `json:"id"`
	On struct {
		On bool `json:"on"`
	} `json:"on"`
	Dimming *struct {
		Brightness float64 `json:"brightness"`
	} `json:"dimming"`
}

type clipScene struct {
	ID       string `json:"id"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Group  resourceRef `json:"group"`
	Status *struct {
		Active string `json:"active"`
	} `json:"status"`
}

// BridgeClient is the bridge API surface the room controller consumes. The
// wire shapes behind it are treated as opaque vendor detail.
type BridgeClient interface {
	GetRooms(ctx context.Context) ([]clipRoom, error)
	GetDevice(ctx context.Context, id string) (clipDevice, error)
	GetLight(ctx context.Context, id string) (clipLight, error)
	UpdateLight(ctx context.Context, id string, patch LightPatch) error
	GetGroupedLight(ctx context.Context, id string) (clipGroupedLight, error)
	UpdateGroupedLight(ctx context.Context, id string, patch GroupedLightPatch) error
	GetScenes(ctx context.Context) ([]clipScene, error)
	RecallScene(ctx context.Context, id string) error
}

// Client talks to one bridge over its pinned-TLS local API.
type Client struct {
	baseURL string
	appKey  string
	http    *http.Client
}

var _ BridgeClient = (*Client)(nil)

// ClientFactory builds an authenticated client for a persisted bridge record.
type ClientFactory func(bridge Bridge) BridgeClient

// NewClientFactory returns a factory producing clients that verify the
// bridge's self-signed certificate against rootCAs with the bridge serial as
// the verification name.
func NewClientFactory(rootCAs *x509.CertPool) ClientFactory {
	return func(bridge Bridge) BridgeClient {
		c := NewClient(bridge.IPAddress, bridge.Port, bridge.Identifier, rootCAs)
		c.appKey = bridge.Username
		return c
	}
}

// NewClient creates an unauthenticated client for a bridge address, used for
// pairing. identifier is the bridge serial the certificate is issued to.
func NewClient(ipAddress string, port int, identifier string, rootCAs *x509.CertPool) *Client {
	// Bridge certificates name the serial, not the IP: the URL dials the IP
	// while ServerName drives verification.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    rootCAs,
			ServerName: identifier,
		},
	}

	return &Client{
		baseURL: "https://" + net.JoinHostPort(ipAddress, strconv.Itoa(port)),
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

// GenerateClientKey performs the button-press pairing handshake and returns
// the issued username/clientkey pair. A bridge whose link button has not been
// pressed answers with a structured error surfaced as
// ErrHueBridgeButtonNotPressed.
func (c *Client) GenerateClientKey(ctx context.Context) (username, clientKey string, err error) {
	payload, err := json.Marshal(map[string]any{
		"devicetype":        pairingDeviceType,
		"generateclientkey": true,
	})
	if err != nil {
		return "", "", fmt.Errorf("encoding pairing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api", bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("building pairing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: pairing: %w", devices.ErrDeviceConnection, err)
	}
	defer resp.Body.Close()

	var results []struct {
		Error *struct {
			Type        int    `json:"type"`
			Description string `json:"description"`
		} `json:"error"`
		Success *struct {
			Username  string `json:"username"`
			ClientKey string `json:"clientkey"`
		} `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", "", fmt.Errorf("%w: decoding pairing response: %w", devices.ErrDeviceAuthentication, err)
	}
	if len(results) == 0 {
		return "", "", fmt.Errorf("%w: empty pairing response", devices.ErrDeviceAuthentication)
	}

	first := results[0]
	if first.Error != nil {
		if first.Error.Type == buttonNotPressedType {
			return "", "", devices.ErrHueBridgeButtonNotPressed
		}
		return "", "", fmt.Errorf("%w: bridge error %d: %s",
			devices.ErrDeviceAuthentication, first.Error.Type, first.Error.Description)
	}
	if first.Success == nil || first.Success.Username == "" {
		return "", "", fmt.Errorf("%w: pairing response missing credentials", devices.ErrDeviceAuthentication)
	}

	return first.Success.Username, first.Success.ClientKey, nil
}

// envelope is the CLIP v2 response wrapper.
type envelope struct {
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) GetRooms(ctx context.Context) ([]clipRoom, error) {
	var rooms []clipRoom
	if err := c.get(ctx, "/clip/v2/resource/room", &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) GetDevice(ctx context.Context, id string) (clipDevice, error) {
	return getOne[clipDevice](ctx, c, "/clip/v2/resource/device/"+id)
}

func (c *Client) GetLight(ctx context.Context, id string) (clipLight, error) {
	return getOne[clipLight](ctx, c, "/clip/v2/resource/light/"+id)
}

func (c *Client) UpdateLight(ctx context.Context, id string, patch LightPatch) error {
	body := map[string]any{}
	if patch.On != nil {
		body["on"] = map[string]bool{"on": *patch.On}
	}
	if patch.Brightness != nil {
		body["dimming"] = map[string]float64{"brightness": *patch.Brightness}
	}
	if patch.Mirek != nil {
		body["color_temperature"] = map[string]int{"mirek": *patch.Mirek}
	}
	if patch.XY != nil {
		body["color"] = map[string]XY{"xy": *patch.XY}
	}
	return c.put(ctx, "/clip/v2/resource/light/"+id, body)
}

func (c *Client) GetGroupedLight(ctx context.Context, id string) (clipGroupedLight, error) {
	return getOne[clipGroupedLight](ctx, c, "/clip/v2/resource/grouped_light/"+id)
}

func (c *Client) UpdateGroupedLight(ctx context.Context, id string, patch GroupedLightPatch) error {
	body := map[string]any{}
	if patch.On != nil {
		body["on"] = map[string]bool{"on": *patch.On}
	}
	if patch.Brightness != nil {
		body["dimming"] = map[string]float64{"brightness": *patch.Brightness}
	}
	return c.put(ctx, "/clip/v2/resource/grouped_light/"+id, body)
}

func (c *Client) GetScenes(ctx context.Context) ([]clipScene, error) {
	var scenes []clipScene
	if err := c.get(ctx, "/clip/v2/resource/scene", &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// RecallScene activates a scene with the "active" action so dynamic scenes
// start their effect rather than snapping to a static frame.
func (c *Client) RecallScene(ctx context.Context, id string) error {
	return c.put(ctx, "/clip/v2/resource/scene/"+id, map[string]any{
		"recall": map[string]string{"action": "active"},
	})
}

// getOne fetches a single-resource endpoint, which the bridge still wraps in
// a one-element data array.
func getOne[T any](ctx context.Context, c *Client, path string) (T, error) {
	var items []T
	var zero T
	if err := c.get(ctx, path, &items); err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: resource %s not found on bridge", devices.ErrDeviceNotFound, path)
	}
	return items[0], nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("hue-application-key", c.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", devices.ErrDeviceConnection, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", devices.ErrDeviceConnection, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: decoding response (%d): %w", devices.ErrDeviceConnection, resp.StatusCode, err)
	}
	if len(env.Errors) > 0 {
		return fmt.Errorf("%w: bridge error: %s", devices.ErrDeviceConnection, env.Errors[0].Description)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding resource data: %w", devices.ErrDeviceConnection, err)
		}
	}
	return nil
}
