package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"secanalytics/core"
	"secanalytics/gateway"
)

// GenerateSecurePassword generates a cryptographically secure random
// string, suitable as an API password or JWT signing secret.
func GenerateSecurePassword(length int) (string, error) {
	if length < 32 {
		length = 32
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	password := base64.URLEncoding.EncodeToString(bytes)
	if len(password) > length {
		password = password[:length]
	}
	return password, nil
}

// ClassifyConnectionError turns a connection failure to service at addr
// into an operator-facing message with remediation hints.
func ClassifyConnectionError(err error, service, addr string) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	if errors.Is(err, core.ErrCircuitBreakerOpen) {
		return fmt.Sprintf("Requests to %s at %s are paused after repeated failures.\n"+
			"  Remediation:\n"+
			"  - Check the earlier errors in this log for the root cause\n"+
			"  - Requests resume automatically after the breaker timeout", service, addr)
	}

	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401, 403:
			return fmt.Sprintf("Authentication failed for %s at %s (%d).\n"+
				"  Remediation:\n"+
				"  - Verify backend.auth in config.yaml\n"+
				"  - Check SECANALYTICS_BACKEND_AUTH_USERNAME and SECANALYTICS_BACKEND_AUTH_PASSWORD\n"+
				"  - For SigV4, confirm the region and that the credentials may call the domain", service, addr, statusErr.StatusCode)
		case 404:
			return fmt.Sprintf("%s at %s does not expose %s (404).\n"+
				"  Remediation:\n"+
				"  - Confirm the Security Analytics plugin is installed on the cluster", service, addr, gateway.APIBase)
		}
		return fmt.Sprintf("%s at %s returned an error: %v", service, addr, statusErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - %s is starting up (wait and retry)\n"+
			"  - Network latency or firewall blocking the connection\n"+
			"  Remediation:\n"+
			"  - Verify network connectivity: nc -zv %s", service, addr, service, addr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" &&
		(errors.Is(opErr.Err, syscall.ECONNREFUSED) || strings.Contains(errStr, "connection refused")) {
		return fmt.Sprintf("Connection refused by %s at %s.\n"+
			"  This usually means %s is not running.\n"+
			"  Remediation:\n"+
			"  - Start %s and retry\n"+
			"  - Verify the address is correct in config.yaml", service, addr, service, service)
	}

	if strings.Contains(errStr, "no such host") || strings.Contains(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Check DNS configuration", service, addr)
	}

	if strings.Contains(errStr, "x509") || strings.Contains(errStr, "certificate") {
		return fmt.Sprintf("TLS verification failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Install the cluster CA in the system trust store\n"+
			"  - For development clusters only: set backend.insecure_skip_verify", service, addr)
	}

	if strings.Contains(errStr, "noauth") || strings.Contains(errStr, "wrongpass") || strings.Contains(errStr, "invalid password") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify the password in config.yaml or SECANALYTICS_CACHE_REDIS_PASSWORD", service, addr)
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure %s is running and accessible\n"+
		"  - Verify network connectivity", service, addr, err, service)
}
