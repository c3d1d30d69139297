package brokerage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
)

const hashkeyPath = "/uapi/hashkey"

// Signature is the hashkey sent with an order. Degraded signatures were
// computed locally and are not verifiable by the brokerage.
type Signature struct {
	Hash     string
	Degraded bool
}

type hashkeyResponse struct {
	Hash string `json:"HASH"`
}

// LocalHash is the degraded-mode signature: hex SHA-256 of the payload's JSON.
// Map payloads encode with sorted keys, so equal maps hash equally.
func LocalHash(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Sign asks the hashkey endpoint to sign payload. When the endpoint fails or
// its breaker is open the local hash is returned with Degraded set.
func (c *Client) Sign(ctx context.Context, payload any) (Signature, error) {
	out, err := c.signBreaker.Execute(func() (interface{}, error) {
		return c.remoteHash(ctx, payload)
	})
	if err == nil {
		metrics.Signatures.WithLabelValues("remote").Inc()
		return Signature{Hash: out.(string)}, nil
	}

	local, lerr := LocalHash(payload)
	if lerr != nil {
		return Signature{}, lerr
	}
	metrics.Signatures.WithLabelValues("degraded").Inc()
	logger.Warn(ctx, "Hashkey endpoint unavailable, using local hash", "signing", "degraded", "error", err)
	return Signature{Hash: local, Degraded: true}, nil
}

func (c *Client) remoteHash(ctx context.Context, payload any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.http.POST(ctx, hashkeyPath, payload, map[string]string{
		"appkey":    c.cfg.AppKey,
		"appsecret": c.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("hashkey endpoint: %w", err)
	}
	var body hashkeyResponse
	if err := resp.ParseJSON(&body); err != nil {
		return "", err
	}
	if body.Hash == "" {
		return "", errors.New("hashkey endpoint returned no HASH")
	}
	return body.Hash, nil
}
