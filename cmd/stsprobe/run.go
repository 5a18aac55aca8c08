package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stsprobe/stsprobe/internal/netdiag"
	"github.com/stsprobe/stsprobe/pkg/probe"
	"github.com/stsprobe/stsprobe/pkg/wstrust"
	"golang.org/x/crypto/ssh/terminal"
)

// runProbe drives one full run: build the envelope, preflight the host,
// attempt every requested TLS version, then extract the winning token.
func runProbe() error {
	ctx := context.Background()
	logger := newLogger(flags.verbose)
	timeout := time.Duration(flags.timeout) * time.Second

	cred, err := credentialFromFlags()
	if err != nil {
		return err
	}

	// windowstransport carries the credential on the transport, not in the
	// envelope, so the builder sees no credential in that mode.
	envCred := cred
	if flags.windowsAuth {
		envCred = nil
	}
	req, err := wstrust.BuildRequest(flags.server, flags.appliesTo, envCred)
	if err != nil {
		return err
	}

	identity, err := selectIdentity(cred)
	if err != nil {
		return err
	}

	if err := preflight(ctx, timeout); err != nil {
		return err
	}

	protocols := probe.ProtocolsFromFlags(flags.tls10, flags.tls11, flags.tls12, flags.tls13)
	fmt.Fprintf(os.Stderr, "[*] probing %s (%s, %s)\n", req.Endpoint, req.Mode, identity.Name())

	prober := probe.New(
		probe.WithIdentity(identity),
		probe.WithTimeout(timeout),
		probe.WithInsecureSkipVerify(flags.insecure),
		probe.WithLogger(logger),
	)
	results, winner, probeErr := prober.Probe(ctx, req.Endpoint, req.Envelope, protocols)

	for _, res := range results {
		if res.Succeeded() {
			fmt.Fprintf(os.Stderr, "[+] %-7s token issued (HTTP %d, %d bytes, %s)\n",
				res.Protocol, res.Response.StatusCode, len(res.Response.Body),
				res.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(os.Stderr, "[!] %-7s %v\n", res.Protocol, res.Err)
		}
	}
	if probeErr != nil {
		return probeErr
	}

	token, err := wstrust.ExtractToken(winner.Body)
	if err != nil {
		return fmt.Errorf("%s response: %w", winner.Protocol, err)
	}

	return outputToken(token)
}

// credentialFromFlags assembles the credential, prompting for the password
// when -u was given without -p and stdin is a terminal.
func credentialFromFlags() (*wstrust.Credential, error) {
	if flags.username == "" {
		return nil, nil
	}

	pass := flags.password
	if pass == "" {
		p, err := promptPassword(flags.username)
		if err != nil {
			return nil, err
		}
		pass = p
	}
	return &wstrust.Credential{Username: flags.username, Password: pass}, nil
}

func promptPassword(username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !terminal.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal (use -p)")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pw, err := terminal.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// selectIdentity maps the flag combination onto a transport identity:
// usernamemixed needs none, explicit -w uses NTLM, and integrated mode uses
// whatever the platform provides.
func selectIdentity(cred *wstrust.Credential) (probe.Identity, error) {
	if cred != nil {
		if flags.windowsAuth {
			return probe.NTLM(flags.domain, cred.Username, cred.Password), nil
		}
		return probe.Anonymous(), nil
	}
	if runtime.GOOS == "windows" {
		return probe.CurrentUser()
	}
	return probe.Kerberos(flags.spn), nil
}

// preflight separates connectivity problems from TLS-version problems before
// the first handshake happens.
func preflight(ctx context.Context, timeout time.Duration) error {
	hostPort := netdiag.HostPort(flags.server)

	addrs, err := netdiag.Resolve(ctx, hostPort)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[*] %s resolves to %s\n", flags.server, strings.Join(addrs, ", "))

	if err := netdiag.CheckTCP(ctx, hostPort, timeout); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[*] %s accepts TCP connections\n", hostPort)
	return nil
}

func outputToken(token string) error {
	if flags.outfile == "" {
		fmt.Println(token)
		return nil
	}

	if err := os.WriteFile(flags.outfile, []byte(token), 0o600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "[+] token written to %s\n", flags.outfile)
	return nil
}

// newLogger wires zerolog to stderr. The console stays quiet unless -v asks
// for the structured per-attempt detail; the [*]/[+]/[!] summary is the
// default interface.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.ErrorLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
