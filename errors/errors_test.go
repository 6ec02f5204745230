package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "taken", err: ErrUsernameTaken, expected: "Username already exists"},
		{name: "wrapped not found", err: fmt.Errorf("request bob: %w", ErrUsernameNotFound), expected: "Username not exists"},
		{name: "peer gone", err: ErrPeerDisconnected, expected: "User already Disconnected"},
		{name: "second login", err: fmt.Errorf("login c1: %w", ErrAlreadyLoggedIn), expected: "Already logged in"},
		{name: "validation detail wins", err: InvalidUsername(ErrUsernameTooShort), expected: "Username must be at least 3 characters."},
		{name: "unknown", err: fmt.Errorf("boom"), expected: "Internal error"},
		{name: "engine", err: ErrEngineUnavailable, expected: "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ToMessage(tt.err))
		})
	}
}

func TestInvalidUsername_MatchesBoth(t *testing.T) {
	req := require.New(t)
	err := InvalidUsername(ErrUsernameWhitespace)

	req.ErrorIs(err, ErrInvalidUsername)
	req.ErrorIs(err, ErrUsernameWhitespace)
	req.True(IsProtocolError(err))
	req.False(IsProtocolError(ErrSinkFull))
}

func TestIs_Matches_Foreign_Sentinels(t *testing.T) {
	req := require.New(t)
	stopped := fmt.Errorf("serve: %w", http.ErrServerClosed)

	req.True(Is(stopped, http.ErrServerClosed))
	req.False(Is(stopped, ErrEngineUnavailable))
}
