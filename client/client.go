// Package client talks to the HTTP API of a LifeOracle client node.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"LifeOracle/internal/api"
)

// defaultTimeout bounds one API call; /verify runs a full flow.
const defaultTimeout = 60 * time.Second

// Client connects to a node via HTTP.
type Client struct {
	nodeAddr string       // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
	http     *http.Client // http performs the requests
}

// NewClient creates a client for the node at nodeAddr.
func NewClient(nodeAddr string) *Client {
	return &Client{
		nodeAddr: nodeAddr,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// url builds the address of an endpoint.
func (c *Client) url(path string) string {
	return "http://" + c.nodeAddr + path
}

// Health checks that the node answers.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	if err := httpGet(ctx, c.http, c.url("/health"), http.StatusOK, &resp); err != nil {
		return err
	}

	if resp["status"] != "ok" {
		return fmt.Errorf("node status %q", resp["status"])
	}

	return nil
}

// WaitReady polls /health until the node answers or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error { return c.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Me returns the node name and signing key.
func (c *Client) Me(ctx context.Context) (*api.MeResponse, error) {
	var resp api.MeResponse
	if err := httpGet(ctx, c.http, c.url("/me"), http.StatusOK, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Peers returns the transport peers of the node.
func (c *Client) Peers(ctx context.Context) ([]api.Peer, error) {
	var resp api.PeersResponse
	if err := httpGet(ctx, c.http, c.url("/peers"), http.StatusOK, &resp); err != nil {
		return nil, err
	}

	return resp.Peers, nil
}

// Attestations returns every attestation the node finalized.
func (c *Client) Attestations(ctx context.Context) ([]api.Attestation, error) {
	var resp api.AttestationsResponse
	if err := httpGet(ctx, c.http, c.url("/attestations"), http.StatusOK, &resp); err != nil {
		return nil, err
	}

	return resp.Attestations, nil
}

// Verify asks the node to attest the life state of ssn. Failures are
// returned as *StatusError.
func (c *Client) Verify(ctx context.Context, ssn string) (*api.VerifyResponse, error) {
	var resp api.VerifyResponse

	target := c.url("/verify?" + url.Values{"ssn": {ssn}}.Encode())
	if err := httpGet(ctx, c.http, target, http.StatusCreated, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}
