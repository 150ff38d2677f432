package utils

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

var transientMarkers = []string{"reset", "connection", "timeout"}

// IsTransientErr reports whether a transport failure is worth another attempt:
// timeouts, resets and refused or dropped connections. Caller cancellation
// and unresolvable hosts never are.
func IsTransientErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// The peer hung up mid exchange.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	// Lookup timeouts were caught above; any other resolver answer stands.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	msg := strings.ToLower(rootCause(err).Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// rootCause returns the innermost wrapped error. Wrappers such as
// *url.Error and the proxy's upstream error embed the request URL in
// their message, so markers are only matched against the cause.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
