package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/almostacms/almostacms/internal/domain"
)

// UserAgent is sent on every call to GitHub.
const UserAgent = "AlmostaCMS/1.0"

// HTTPDoer is the subset of *http.Client the relay uses.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Token is the result of a successful exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Exchanger trades an OAuth authorization code for an access token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (Token, error)
}

// ErrTokenRejected marks an exchange GitHub answered with an OAuth error
// (for example bad_verification_code). It is wrapped in a
// domain.UpstreamError carrying the code and description.
var ErrTokenRejected = errors.New("token exchange rejected")

// OAuthExchanger exchanges codes with the x/oauth2 client, sending the
// client credentials in the request body.
type OAuthExchanger struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewOAuthExchanger builds an exchanger for the given credentials. tokenURL
// overrides the github.com endpoint.
func NewOAuthExchanger(clientID, clientSecret, tokenURL string, doer HTTPDoer) *OAuthExchanger {
	endpoint := github.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	return &OAuthExchanger{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		client: &http.Client{Transport: githubTransport{doer: doer}},
	}
}

// Exchange implements Exchanger.
//
// GitHub reporting an OAuth error yields an UpstreamError wrapping
// ErrTokenRejected. Transport failures and non-2xx answers yield an
// UpstreamError without it.
func (e *OAuthExchanger) Exchange(ctx context.Context, code string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	tok, err := e.cfg.Exchange(ctx, code)
	if err != nil {
		return Token{}, classify(err)
	}

	out := Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	if s, ok := tok.Extra("scope").(string); ok {
		out.Scope = s
	}
	if out.TokenType == "" {
		out.TokenType = "bearer"
	}
	if out.Scope == "" {
		out.Scope = "repo,workflow"
	}
	return out, nil
}

func classify(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &domain.UpstreamError{Service: "github", Err: err}
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	up := &domain.UpstreamError{
		Service:     "github",
		Status:      status,
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
	}
	if re.ErrorCode != "" && status >= 200 && status < 300 {
		up.Err = ErrTokenRejected
		return up
	}
	up.Err = fmt.Errorf("GitHub API error: %d", status)
	return up
}

// githubTransport asks GitHub for JSON and identifies the relay.
type githubTransport struct {
	doer HTTPDoer
}

func (t githubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", "application/json")
	r.Header.Set("User-Agent", UserAgent)
	return t.doer.Do(r)
}
