package main

import (
	"fmt"
	"os"

	"github.com/mjwhitta/cli"
)

// Version info
var version = "0.1.0"

// Exit codes
const (
	ExitSuccess = iota
	ExitError
	ExitMissingArg
)

// Global flags
var flags struct {
	server      string
	appliesTo   string
	domain      string
	username    string
	password    string
	windowsAuth bool
	spn         string
	tls10       bool
	tls11       bool
	tls12       bool
	tls13       bool
	insecure    bool
	timeout     int
	outfile     string
	verbose     bool
}

func init() {
	// Configure cli
	cli.Align = true
	cli.Authors = []string{"stsprobe authors"}
	cli.Banner = fmt.Sprintf("%s [OPTIONS] -s <server> -a <applies-to>", os.Args[0])
	cli.Info(
		"stsprobe - WS-Trust token-issuance probe for AD FS\n",
		"\n",
		"Requests a security token from an AD FS style federation",
		"server once per TLS protocol version, so TLS-hardening",
		"fallout shows up as 'TLS 1.0 failed, TLS 1.2 issued a",
		"token' instead of a generic handshake error. Default",
		"versions: TLS 1.0, 1.1 and 1.2.",
	)
	cli.ExitStatus(
		"0 - Token issued on at least one TLS version\n",
		"1 - Error, or no TLS version succeeded\n",
		"2 - Missing or invalid arguments",
	)

	// Define flags (short, long, default, description)
	cli.Flag(&flags.server, "s", "server", "", "Federation server host[:port]")
	cli.Flag(&flags.appliesTo, "a", "applies-to", "", "Relying party identifier (AppliesTo URI)")
	cli.Flag(&flags.username, "u", "user", "", "Username for usernamemixed (UPN or sAMAccountName)")
	cli.Flag(&flags.password, "p", "pass", "", "Password (prompted when -u is given without -p)")
	cli.Flag(&flags.domain, "d", "domain", "", "Domain qualifier for NTLM (-w)")
	cli.Flag(&flags.windowsAuth, "w", "windows-auth", false, "Send credentials via NTLM to windowstransport")
	cli.Flag(&flags.spn, "spn", "", "Kerberos SPN override (non-Windows integrated auth)")
	cli.Flag(&flags.tls10, "tls10", false, "Probe TLS 1.0")
	cli.Flag(&flags.tls11, "tls11", false, "Probe TLS 1.1")
	cli.Flag(&flags.tls12, "tls12", false, "Probe TLS 1.2")
	cli.Flag(&flags.tls13, "tls13", false, "Probe TLS 1.3 (never probed by default)")
	cli.Flag(&flags.insecure, "k", "insecure", false, "Skip TLS certificate verification")
	cli.Flag(&flags.timeout, "t", "timeout", 30, "Per-attempt timeout in seconds")
	cli.Flag(&flags.outfile, "o", "out", "", "Write the issued token XML to a file")
	cli.Flag(&flags.verbose, "v", "verbose", false, "Verbose (debug) logging")

	cli.Section(
		"Authentication modes",
		"With -u (and no -w) the credential is embedded in the request\n",
		"envelope and sent to the usernamemixed endpoint over an\n",
		"unauthenticated transport.\n",
		"\n",
		"With -u and -w the credential authenticates the transport via\n",
		"NTLM against the windowstransport endpoint instead.\n",
		"\n",
		"With no -u the windowstransport endpoint is probed with the\n",
		"ambient identity: SSPI Negotiate on Windows, or the Kerberos\n",
		"ticket cache (KRB5CCNAME, kinit) elsewhere.",
	)
	cli.Section(
		"Examples",
		"  stsprobe -s sts.contoso.com -a urn:federation:MicrosoftOnline -u probe@contoso.com\n",
		"  stsprobe -s sts.contoso.com -a https://app.contoso.com/ --tls12 --tls13\n",
		"  stsprobe -s sts.contoso.com -a urn:federation:MicrosoftOnline -u probe -d CONTOSO -w",
	)

	cli.Parse()

	if cli.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "[!] unexpected argument: %s\n", cli.Arg(0))
		cli.Usage(ExitMissingArg)
	}
	if flags.server == "" {
		fmt.Fprintln(os.Stderr, "[!] federation server is required (-s)")
		cli.Usage(ExitMissingArg)
	}
	if flags.appliesTo == "" {
		fmt.Fprintln(os.Stderr, "[!] relying party identifier is required (-a)")
		cli.Usage(ExitMissingArg)
	}
	if flags.windowsAuth && flags.username == "" {
		fmt.Fprintln(os.Stderr, "[!] -w needs a credential (-u)")
		cli.Usage(ExitMissingArg)
	}
	if flags.password != "" && flags.username == "" {
		fmt.Fprintln(os.Stderr, "[!] password given without a username (-u)")
		cli.Usage(ExitMissingArg)
	}
}

func main() {
	if err := runProbe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
