package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	ncerr "ncdial/internal/errors"
)

// PromptFunc reads a secret from the user without echo.
type PromptFunc func(prompt string) ([]byte, error)

// defaultKeyNames are tried in ~/.ssh when no method is configured.
var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// BuildAuthMethods assembles the SSH authentication methods for cfg in
// the order they are offered: key file, agent, password.  With none
// configured it falls back to the agent and the usual key files.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	prompt := cfg.prompt()
	var methods []ssh.AuthMethod

	if cfg.KeyPath != "" {
		signer, err := loadKey(cfg.KeyPath, prompt)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.UseAgent {
		m, err := agentAuth()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, m)
	}

	if cfg.PromptPass {
		methods = append(methods, passwordAuth(cfg, prompt)...)
	}

	if len(methods) == 0 {
		methods = defaultAuthMethods()
	}
	if len(methods) == 0 {
		return nil, &ncerr.ConfigError{
			Field:   "tunnel",
			Message: "no SSH authentication methods available",
			Hint:    "use --ssh-key, --ssh-password or --ssh-agent",
		}
	}
	return methods, nil
}

// loadKey parses a private key file, asking for the passphrase when the
// key is encrypted.
func loadKey(path string, prompt PromptFunc) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	switch {
	case err == nil:
		return signer, nil
	case !errors.As(err, &missing):
		return nil, fmt.Errorf("parsing key: %w", err)
	case prompt == nil:
		return nil, fmt.Errorf("key is encrypted and no passphrase prompt is available")
	}

	pass, err := prompt(fmt.Sprintf("Enter passphrase for %s: ", path))
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, pass)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}
	return signer, nil
}

// agentAuth offers the keys held by the agent at $SSH_AUTH_SOCK.  The
// agent connection stays open for the life of the process.
func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// passwordAuth prompts only when the server actually asks, either via
// the password method or a keyboard-interactive challenge.  The answer
// is remembered so the user is asked at most once.
func passwordAuth(cfg *SSHConfig, prompt PromptFunc) []ssh.AuthMethod {
	var cached []byte
	ask := func() (string, error) {
		if cached != nil {
			return string(cached), nil
		}
		if prompt == nil {
			return "", fmt.Errorf("no terminal available for the SSH password")
		}
		pass, err := prompt(fmt.Sprintf("%s@%s's password: ", cfg.User, cfg.Host))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		cached = pass
		return string(pass), nil
	}

	return []ssh.AuthMethod{
		ssh.PasswordCallback(ask),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				if echos[i] {
					continue
				}
				pass, err := ask()
				if err != nil {
					return nil, err
				}
				answers[i] = pass
			}
			return answers, nil
		}),
	}
}

// defaultAuthMethods tries the agent and the usual unencrypted key
// files without any explicit configuration.
func defaultAuthMethods() []ssh.AuthMethod {
	var out []ssh.AuthMethod

	if m, err := agentAuth(); err == nil {
		out = append(out, m)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	var signers []ssh.Signer
	for _, name := range defaultKeyNames {
		if s, err := loadKey(filepath.Join(home, ".ssh", name), nil); err == nil {
			signers = append(signers, s)
		}
	}
	if len(signers) > 0 {
		out = append(out, ssh.PublicKeys(signers...))
	}
	return out
}

// terminalPrompt reads from the controlling terminal.  Stdin usually
// carries relay data, so /dev/tty is preferred over it.
func terminalPrompt(prompt string) ([]byte, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err == nil {
		defer tty.Close()
		fmt.Fprint(tty, prompt)
		pass, err := term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(tty)
		return pass, err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal available")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return pass, err
}

// ── host-key verification ────────────────────────────────────────────

func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // user opted out of host key checking
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", path, err)
	}
	return explainHostKeyErrors(path, cb), nil
}

// explainHostKeyErrors rewrites knownhosts.KeyError into a message that
// says whether the key was unknown or changed.
func explainHostKeyErrors(path string, cb ssh.HostKeyCallback) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := cb(hostname, remote, key)
		var ke *knownhosts.KeyError
		if !errors.As(err, &ke) {
			return err
		}
		if len(ke.Want) == 0 {
			return fmt.Errorf("%s host key %s for %s is not in %s",
				key.Type(), ssh.FingerprintSHA256(key), hostname, path)
		}
		want := ke.Want[0]
		return fmt.Errorf("host key for %s changed: got %s, %s:%d has %s",
			hostname, ssh.FingerprintSHA256(key), want.Filename, want.Line, ssh.FingerprintSHA256(want.Key))
	}
}
