package melcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://app.melcloud.com"

	// The vendor rejects requests without a browser-like user agent.
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
	appVersion = "1.31.0.0"
	language   = 17

	contextKeyHeader = "X-MitsContextKey"

	loginPath          = "/Mitsubishi.Wifi.Client/Login/ClientLogin"
	deviceGetPath      = "/Mitsubishi.Wifi.Client/Device/Get"
	listDevicesPath    = "/Mitsubishi.Wifi.Client/User/ListDevices"
	requestRefreshPath = "/Mitsubishi.Wifi.Client/Device/RequestRefresh"
)

// Client is a stateless MELCloud REST client. It never stores the context
// key; every authenticated call receives it from the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, log *logrus.Entry, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a context key. Login never reports
// ErrUnauthorized: any non-200 status and any rejection carried in the payload
// is an *APIError.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{
		AppVersion: appVersion,
		Email:      email,
		Password:   password,
		Language:   language,
		Persist:    true,
	})
	if err != nil {
		return nil, &APIError{Op: "login", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: "login", StatusCode: resp.StatusCode, Err: err}
	}
	c.log.Debugf("login: resposta http %d: %s", resp.StatusCode, body)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Op: "login", StatusCode: resp.StatusCode, Message: string(body)}
	}

	var data LoginResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &APIError{Op: "login", StatusCode: resp.StatusCode, Err: fmt.Errorf("falha ao decodificar resposta: %w", err)}
	}

	if data.HasError() {
		msg, err := data.ErrorMessage()
		if err != nil {
			return nil, &APIError{Op: "login", Err: err}
		}
		return nil, &APIError{Op: "login", Message: msg}
	}

	return &data, nil
}

// ListDevices returns every building visible to the account with its devices.
func (c *Client) ListDevices(ctx context.Context, token string) ([]ListDevicesResponse, error) {
	var data []ListDevicesResponse
	if err := c.get(ctx, "listdevices", listDevicesPath, nil, token, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetCurrentData returns the lean state of a single device.
func (c *Client) GetCurrentData(ctx context.Context, token string, deviceID, buildingID int) (*CurrentDataResponse, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(deviceID))
	query.Set("buildingID", strconv.Itoa(buildingID))

	var data CurrentDataResponse
	if err := c.get(ctx, "device get", deviceGetPath, query, token, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RequestRefresh asks the vendor to pull fresh state from the physical unit.
func (c *Client) RequestRefresh(ctx context.Context, token string, deviceID int) (bool, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(deviceID))

	var ack bool
	if err := c.get(ctx, "request refresh", requestRefreshPath, query, token, &ack); err != nil {
		return false, err
	}
	return ack, nil
}

// get performs an authenticated GET and applies the classification shared by
// every authenticated endpoint: 401 is ErrUnauthorized, any other non-200 or an
// undecodable body is an *APIError.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, token string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(contextKeyHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.Debugf("%s: resposta http %d: %s", op, resp.StatusCode, body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("falha ao decodificar resposta: %w", err)}
	}
	return nil
}
