package sshutil

import "io"

// SSHClient is the interface fleet workers use to execute commands.
// Both the real Client and the mock in sshutil/testing satisfy it.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecStream runs a command and streams output to the provided writers.
	ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the VM name this client connects to.
	GetHost() string

	// GetAddress returns the local tunnel address that was dialed.
	GetAddress() string

	// NewSession creates a session, usable as a liveness probe.
	NewSession() (Session, error)
}

// Session is the minimal closable surface of an SSH session.
type Session interface {
	io.Closer
}
