package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/sys/unix"

	"tvrecs/internal/retry"
	"tvrecs/internal/services"
)

// CheckService runs probe with a bounded timeout.
func CheckService(ctx context.Context, probe Probe) Result {
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := probe.Check(checkCtx); err != nil {
		return Result{Name: probe.Name, Detail: summarizeError(err)}
	}
	return Result{Name: probe.Name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	switch retry.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "auth failed (check the api key or token)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "configuration error: " + err.Error()
	}
	return err.Error()
}
