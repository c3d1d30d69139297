package brokerage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
	"scenario-advisor/internal/types"
)

const (
	tokenPath = "/oauth2/tokenP"
	tokenSkew = time.Minute
)

// TokenState is the observable token lifecycle state.
type TokenState string

const (
	NoToken    TokenState = "no_token"
	Requesting TokenState = "requesting"
	Valid      TokenState = "valid"
	Expired    TokenState = "expired"
)

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenState reports where the token lifecycle currently is.
func (c *Client) TokenState() TokenState {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	switch {
	case c.refreshing:
		return Requesting
	case c.token.Value == "":
		return NoToken
	case c.token.Valid(c.clock.Now()):
		return Valid
	default:
		return Expired
	}
}

func (c *Client) cachedToken() (string, bool) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token.Valid(c.clock.Now()) {
		return c.token.Value, true
	}
	return "", false
}

func (c *Client) setToken(tok types.AccessToken, refreshing bool) {
	c.tokenMu.Lock()
	c.token = tok
	c.refreshing = refreshing
	c.tokenMu.Unlock()
}

// AccessToken returns a valid bearer token, requesting a new one when none is
// cached or the cached one expired. Concurrent refreshes collapse into one request.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := c.cachedToken(); ok {
		return tok, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if tok, ok := c.cachedToken(); ok {
		return tok, nil
	}

	c.tokenMu.Lock()
	c.refreshing = true
	c.tokenMu.Unlock()

	tok, err := c.requestToken(ctx)
	metrics.TokenRequests.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		c.setToken(types.AccessToken{}, false)
		logger.ErrorWithErr(ctx, "Access token request failed", err)
		return "", apperr.AuthErr("access_token", "access token unavailable", err)
	}

	c.setToken(tok, false)
	logger.Info(ctx, "Access token obtained", "ttl", tok.TTL.String())
	return tok.Value, nil
}

func (c *Client) requestToken(ctx context.Context) (types.AccessToken, error) {
	if c.cfg.AppKey == "" || c.cfg.AppSecret == "" {
		return types.AccessToken{}, errors.New("brokerage app key/secret not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return types.AccessToken{}, err
	}

	resp, err := c.http.POST(ctx, tokenPath, tokenRequest{
		GrantType: "client_credentials",
		AppKey:    c.cfg.AppKey,
		AppSecret: c.cfg.AppSecret,
	})
	if err != nil {
		return types.AccessToken{}, fmt.Errorf("token endpoint: %w", err)
	}

	var body tokenResponse
	if err := resp.ParseJSON(&body); err != nil {
		return types.AccessToken{}, err
	}
	if body.AccessToken == "" {
		return types.AccessToken{}, errors.New("token endpoint returned no access_token")
	}

	ttl := c.cfg.TokenTTL
	if body.ExpiresIn > 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}
	if ttl > 2*tokenSkew {
		ttl -= tokenSkew
	}

	return types.AccessToken{
		Value:      body.AccessToken,
		ObtainedAt: c.clock.Now(),
		TTL:        ttl,
	}, nil
}
