package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"coursemill/internal/logging"
)

const restPath = "/webservice/rest/server.php"

// Config carries what a Client needs to reach one site.
type Config struct {
	// BaseURL is the site root, e.g. https://lms.example.edu.
	BaseURL string

	// Token authenticates every call.
	Token string

	// Timeout bounds one HTTP exchange. Zero selects 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the transport when set; tests use this.
	HTTPClient *http.Client
}

// Client issues web service calls against one site.
//
// Each workflow should construct its own Client: the embedded HTTP client
// and its connection pool are reused across calls within a run and are not
// synchronized for sharing between concurrent runs. Calls never retry; the
// caller decides what a failure means.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *logging.AppLogger
}

// New builds a Client from explicit configuration. There is no package-level
// instance; constructing one is the only way to get a Client.
func New(cfg Config, logger *logging.AppLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + restPath,
		token:    cfg.Token,
		http:     httpc,
		logger:   logger,
	}
}

// GetSiteInfo fetches the site description for the configured token. It is
// the cheapest full round trip the protocol offers, so it doubles as the
// connectivity probe.
func (c *Client) GetSiteInfo(ctx context.Context) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.call(ctx, "core_webservice_get_site_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call performs one web service request. Every operation funnels through
// here: a single POST to the REST endpoint with the function name, token and
// format flag as form fields, then the in-band exception check on the body.
func (c *Client) call(ctx context.Context, wsfunction string, in map[string]any, out any) error {
	vals, err := encodeParams(wsfunction, in)
	if err != nil {
		return err
	}
	vals.Set("wstoken", c.token)
	vals.Set("wsfunction", wsfunction)
	vals.Set("moodlewsrestformat", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(vals.Encode()))
	if err != nil {
		return &TransportError{Op: wsfunction, URL: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("Calling web service", "wsfunction", wsfunction)
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: wsfunction, URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	// drain fully even on error statuses so the connection can be reused
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: wsfunction, URL: c.endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: wsfunction, URL: c.endpoint, StatusCode: resp.StatusCode, Body: body}
	}
	return c.decode(wsfunction, body, out)
}

// decode applies the in-band error convention: an HTTP success whose body is
// an object carrying an exception marker is a failed call, checked before
// any result decoding. Warning records are logged and never fatal.
func (c *Client) decode(op string, body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var probe struct {
			Exception string    `json:"exception"`
			ErrorCode string    `json:"errorcode"`
			Message   string    `json:"message"`
			Warnings  []warning `json:"warnings"`
		}
		if err := json.Unmarshal(trimmed, &probe); err == nil {
			if probe.Exception != "" {
				return &RemoteError{
					Op:        op,
					Exception: probe.Exception,
					ErrorCode: probe.ErrorCode,
					Message:   probe.Message,
				}
			}
			c.logWarnings(op, probe.Warnings)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &TransportError{
			Op:         op,
			URL:        c.endpoint,
			StatusCode: http.StatusOK,
			Body:       body,
			Err:        err,
		}
	}
	return nil
}

func (c *Client) logWarnings(op string, warnings []warning) {
	for _, w := range warnings {
		c.logger.Warn("Web service warning",
			"wsfunction", op,
			"item", w.Item,
			"warningcode", w.WarningCode,
			"message", w.Message,
		)
	}
}
