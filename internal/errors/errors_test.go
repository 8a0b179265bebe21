package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := New(ErrTunnel, "Tunnel creation failed", "Check the Bastion host is reachable")

	assert.Equal(t, ErrTunnel, err.Code)
	assert.Contains(t, err.Error(), "✗ Tunnel creation failed")
	assert.Contains(t, err.Error(), "Check the Bastion host is reachable")
}

func TestWrapIncludesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, "Couldn't reach the tunnel endpoint")

	assert.Equal(t, ErrTunnel, err.Code)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrapWithCode(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := WrapWithCode(cause, ErrAzure, "az command failed", "Run 'az login' first")

	assert.Equal(t, ErrAzure, err.Code)
	assert.Contains(t, err.Error(), "az command failed")
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "Run 'az login' first")
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"matching code", New(ErrConfig, "bad config", ""), ErrConfig, true},
		{"different code", New(ErrConfig, "bad config", ""), ErrSSH, false},
		{"plain error", stderrors.New("plain"), ErrConfig, false},
		{"nil error", nil, ErrConfig, false},
		{"wrapped structured error", stderrors.Join(New(ErrExec, "boom", "")), ErrExec, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}
