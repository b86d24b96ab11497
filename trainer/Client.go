// Package trainer implements the client side of the parameter server
// which aggregates gradients from many agents
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/samuelfneumann/drivelearn/agent"
)

// AgentIDHeader is the request header which identifies the agent to
// the trainer
const AgentIDHeader = "X-Agent-ID"

// DefaultTimeout is the timeout of the default HTTP client
const DefaultTimeout = 60 * time.Second

// HTTPClient sends HTTP requests. *http.Client implements it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GradientUpdate is the body of a gradient publication
type GradientUpdate struct {
	Gradients  agent.Gradients `json:"gradients"`
	BatchCount int             `json:"batch_count"`
}

type pingResponse struct {
	Message string `json:"message"`
}

// Client talks to a single trainer
type Client struct {
	base    string
	http    HTTPClient
	agentID uuid.UUID
}

// NewClient returns a new Client of the trainer at base, for example
// "http://10.0.0.4:80". If client is nil, an *http.Client with
// DefaultTimeout is used.
func NewClient(base string, client HTTPClient, agentID uuid.UUID) *Client {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: base, http: client, agentID: agentID}
}

// URL returns the base URL of the trainer
func (c *Client) URL() string {
	return c.base
}

// Ping checks that the trainer is up
func (c *Client) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := c.do(ctx, http.MethodGet, "/ping", nil, &resp); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if resp.Message != "pong" {
		return fmt.Errorf("ping: unexpected response %q", resp.Message)
	}
	return nil
}

// Latest returns the latest model of the trainer
func (c *Client) Latest(ctx context.Context) (agent.Packet, error) {
	var p agent.Packet
	if err := c.do(ctx, http.MethodGet, "/latest", nil, &p); err != nil {
		return agent.Packet{}, fmt.Errorf("latest: %w", err)
	}
	return p, nil
}

// PostGradients publishes gradients computed over batchCount
// minibatches and returns the trainer's updated model
func (c *Client) PostGradients(ctx context.Context, grads agent.Gradients,
	batchCount int) (agent.Packet, error) {
	body := GradientUpdate{Gradients: grads, BatchCount: batchCount}

	var p agent.Packet
	err := c.do(ctx, http.MethodPost, "/gradient_update", body, &p)
	if err != nil {
		return agent.Packet{}, fmt.Errorf("postGradients: %w", err)
	}
	return p, nil
}

// do sends a request with a JSON body, if any, and decodes the JSON
// response into out
func (c *Client) do(ctx context.Context, method, path string, body,
	out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(AgentIDHeader, c.agentID.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(bytes.TrimSpace(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
