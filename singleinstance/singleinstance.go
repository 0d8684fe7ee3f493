// Package singleinstance keeps one overlay per desktop session. The resident
// process owns a loopback TCP endpoint; a second invocation detects it and
// delegates a visibility command instead of opening a second window.
package singleinstance

import (
	"context"
)

// Commands a second invocation can delegate to the resident overlay.
const (
	CmdToggle = "TOGGLE"
	CmdShow   = "SHOW"
	CmdHide   = "HIDE"
)

// Request is one delegated command from a second invocation.
type Request struct {
	Command string
}

// Server owns the TCP endpoint and answers delegation requests.
type Server interface {
	// Start binds the first port of the configured range. A bind failure
	// usually means another resident already owns the session.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted delegation as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	RespondSuccess() error
	RespondError(msg string) error
	Close() error
}

// Client attempts to delegate a command to a resident overlay.
type Client interface {
	// TryCommand scans the configured port range, performs the handshake and
	// delegates command to the resident. If no resident is found it returns
	// delegated=false, err=nil.
	TryCommand(ctx context.Context, command string) (delegated bool, err error)
}

// NewServer returns the TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns the TCP implementation.
func NewClient() Client { return newTcpClient() }
