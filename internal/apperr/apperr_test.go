package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := ExternalErr("news.fetch", "request failed", errors.New("connection refused"))
	wrapped := fmt.Errorf("check scenario: %w", base)

	assert.True(t, Is(wrapped, External))
	assert.False(t, Is(wrapped, Validation))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{Validationf("op", "bad amount"), 1},
		{Statef("op", "unknown scenario"), 1},
		{ExternalErr("op", "timeout", nil), 2},
		{AuthErr("op", "token", errors.New("401")), 2},
		{errors.New("plain"), 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExitCode(c.err), "%v", c.err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := AuthErr("brokerage.token", "access token unavailable", errors.New("HTTP 403"))
	assert.Equal(t, "brokerage.token: auth error: access token unavailable: HTTP 403", err.Error())
}
