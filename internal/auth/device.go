package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/almostacms/almostacms/internal/log"
)

// Scopes requested at login.
var Scopes = []string{"repo", "workflow"}

// DeviceFlow runs GitHub's OAuth device authorization grant.
type DeviceFlow struct {
	cfg    *oauth2.Config
	client *http.Client
}

// DeviceOptions overrides the github.com endpoints and HTTP client.
type DeviceOptions struct {
	DeviceAuthURL string
	TokenURL      string
	HTTPClient    *http.Client
}

// NewDeviceFlow prepares a device flow for clientID.
func NewDeviceFlow(clientID string, opts DeviceOptions) *DeviceFlow {
	endpoint := github.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if opts.DeviceAuthURL != "" {
		endpoint.DeviceAuthURL = opts.DeviceAuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	client := &http.Client{Timeout: base.Timeout, Transport: acceptJSON{base: base}}
	return &DeviceFlow{
		cfg: &oauth2.Config{
			ClientID: clientID,
			Endpoint: endpoint,
			Scopes:   Scopes,
		},
		client: client,
	}
}

// Prompt is shown to the user while the flow waits.
type Prompt struct {
	UserCode        string
	VerificationURI string
	Expiry          time.Time
}

// Login requests a device code, hands the prompt to show, and polls until
// the user approves, the code expires or ctx is cancelled.
func (d *DeviceFlow) Login(ctx context.Context, show func(Prompt)) (StoredToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.client)

	resp, err := d.cfg.DeviceAuth(ctx)
	if err != nil {
		return StoredToken{}, fmt.Errorf("request device code: %w", err)
	}
	log.Debug(log.CatAuth, "device code issued", "uri", resp.VerificationURI, "interval", resp.Interval)
	if show != nil {
		show(Prompt{UserCode: resp.UserCode, VerificationURI: resp.VerificationURI, Expiry: resp.Expiry})
	}

	tok, err := d.cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return StoredToken{}, fmt.Errorf("wait for authorization: %w", err)
	}

	out := StoredToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		CreatedAt:   time.Now().UTC(),
	}
	if s, ok := tok.Extra("scope").(string); ok {
		out.Scope = s
	} else {
		out.Scope = strings.Join(Scopes, ",")
	}
	log.Info(log.CatAuth, "device flow complete", "scope", out.Scope)
	return out, nil
}

// acceptJSON makes GitHub answer token requests in JSON rather than form
// encoding.
type acceptJSON struct {
	base *http.Client
}

func (t acceptJSON) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", "application/json")
	return t.base.Do(r)
}
