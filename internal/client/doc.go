// ABOUTME: Package client is the Go consumer of the pdguard HTTP API
// ABOUTME: Tracks an explicit connection state so callers can fail fast

// Package client provides a typed client for the pdguard service.
//
// A Client starts Disconnected. Connect probes the service version and
// moves it to Ready, or to Invalid when versions are incompatible.
// Operations refuse with ErrServiceDisconnected or ErrServiceInvalid
// until a Connect succeeds, and a transport failure on any call drops
// the client back to Disconnected.
package client
