// Package sshutil executes commands on fleet VMs over established Bastion
// tunnels. The SSH endpoint is always a local tunnel port, so dialing is
// trivial; the work here is auth resolution (~/.ssh/config, agent, key
// files) and command execution.
package sshutil

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"

	"github.com/jspahr/azfleet/internal/errors"
)

// Client wraps an SSH connection through a Bastion tunnel.
type Client struct {
	*ssh.Client
	VMName  string // The VM this connection ultimately reaches
	Address string // The local tunnel address actually dialed
}

// Settings are the resolved SSH parameters for one VM.
type Settings struct {
	User         string
	IdentityFile string
}

// ResolveSettings determines the SSH user and identity file for a VM.
// Explicit values win; otherwise ~/.ssh/config is consulted under the VM
// name, falling back to the local username and default key locations.
func ResolveSettings(vmName, explicitUser, explicitIdentity string) Settings {
	s := Settings{User: explicitUser, IdentityFile: explicitIdentity}

	if s.User == "" {
		if u, _ := ssh_config.GetStrict(vmName, "User"); u != "" {
			s.User = u
		}
	}
	if s.User == "" {
		s.User = currentUser()
	}

	if s.IdentityFile == "" {
		if id, _ := ssh_config.GetStrict(vmName, "IdentityFile"); id != "" {
			s.IdentityFile = expandPath(id)
		}
	}

	return s
}

// Dial connects to the VM through its tunnel's local port.
//
// Host key verification is intentionally skipped: the endpoint is a
// loopback listener whose key changes with every tunnel, and the route is
// already authenticated by the az session that created it.
func Dial(vmName string, localPort int, settings Settings, timeout time.Duration) (*Client, error) {
	authMethods, encryptedKeys := buildAuthMethods(settings)
	if len(authMethods) == 0 {
		msg := "No SSH auth methods available"
		suggestion := "Check your keys are loaded: ssh-add -l"
		if len(encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %v", encryptedKeys)
			suggestion = "Add them to your agent with ssh-add, or run from a terminal to be prompted"
		}
		return nil, errors.New(errors.ErrSSH, msg, suggestion)
	}

	config := &ssh.ClientConfig{
		User:            settings.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // loopback tunnel endpoint, see above
		Timeout:         timeout,
	}

	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(localPort))
	client, err := ssh.Dial("tcp", address, config)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH to '%s' through the tunnel at %s didn't go through", vmName, address),
			"Check the VM is running and accepts SSH for user "+settings.User)
	}

	return &Client{
		Client:  client,
		VMName:  vmName,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the VM name this client connects to.
func (c *Client) GetHost() string {
	return c.VMName
}

// GetAddress returns the local tunnel address that was dialed.
func (c *Client) GetAddress() string {
	return c.Address
}

// NewSession creates a new SSH session, also used as a liveness probe.
func (c *Client) NewSession() (Session, error) {
	return c.Client.NewSession()
}

// buildAuthMethods assembles auth in preference order: agent, the resolved
// identity file, then default key files. Encrypted keys that couldn't be
// unlocked are reported back for the error message.
func buildAuthMethods(settings Settings) (methods []ssh.AuthMethod, encryptedKeys []string) {
	if agentAuth := sshAgentAuth(); agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	tryKey := func(path string) {
		auth, err := keyFileAuth(path)
		if err != nil {
			if _, ok := err.(*encryptedKeyError); ok {
				encryptedKeys = append(encryptedKeys, path)
			}
			return
		}
		methods = append(methods, auth)
	}

	if settings.IdentityFile != "" {
		tryKey(settings.IdentityFile)
	}

	for _, path := range defaultKeyPaths() {
		if path == settings.IdentityFile {
			continue
		}
		tryKey(path)
	}

	return methods, encryptedKeys
}

// encryptedKeyError marks a key file that exists but needs a passphrase.
type encryptedKeyError struct {
	path string
}

func (e *encryptedKeyError) Error() string {
	return fmt.Sprintf("key %s is passphrase-protected", e.path)
}

// keyFileAuth loads a private key file as an auth method. If the key is
// encrypted and stdin is a terminal, the user is prompted for the
// passphrase once.
func keyFileAuth(path string) (ssh.AuthMethod, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err == nil {
		return ssh.PublicKeys(signer), nil
	}

	if _, ok := err.(*ssh.PassphraseMissingError); !ok {
		return nil, err
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, &encryptedKeyError{path: path}
	}

	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", path)
	passphrase, promptErr := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if promptErr != nil {
		return nil, &encryptedKeyError{path: path}
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, passphrase)
	if err != nil {
		return nil, &encryptedKeyError{path: path}
	}
	return ssh.PublicKeys(signer), nil
}

// sshAgentAuth returns agent-based auth when SSH_AUTH_SOCK points to a
// live agent, nil otherwise.
func sshAgentAuth() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

func defaultKeyPaths() []string {
	home := homeDir()
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
