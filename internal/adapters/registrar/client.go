package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	registrarport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/registrar"
)

const maxResponseBytes = 1 << 20

// Client posts registrations to the remote registration service.
type Client struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return NewWithClient(url, &http.Client{Timeout: timeout})
}

func NewWithClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, client: httpClient}
}

type responseBody struct {
	SecretToken *string `json:"SECRET_TOKEN"`
	Message     *string `json:"Message"`
}

// Register sends exactly one request. A 200 reply must carry a JSON body; for any other
// status the body is decoded best-effort and the status is reported without an error.
func (c *Client) Register(ctx context.Context, bearerToken string, p registrarport.Payload) (registrarport.Response, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return registrarport.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return registrarport.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return registrarport.Response{}, fmt.Errorf("register request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return registrarport.Response{}, fmt.Errorf("read register response: %w", err)
	}

	out := registrarport.Response{StatusCode: resp.StatusCode}
	var rb responseBody
	if err := json.Unmarshal(raw, &rb); err != nil {
		if resp.StatusCode == http.StatusOK {
			return registrarport.Response{}, errors.Join(ErrMalformedResponse, err)
		}
		return out, nil
	}
	out.SecretToken = rb.SecretToken
	out.Message = rb.Message
	return out, nil
}

// ErrMalformedResponse is returned when a 200 reply is not valid JSON.
var ErrMalformedResponse = errors.New("malformed register response")
