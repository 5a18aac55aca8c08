// Package netdiag provides the pre-probe reachability checks: name
// resolution and a bare TCP connect to the federation endpoint. Running
// these first separates "the network cannot reach the host" from "the host
// refused the TLS version", which is the distinction the probe run exists
// to make.
package netdiag
