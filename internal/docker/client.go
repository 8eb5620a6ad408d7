// Package docker provides a minimal Docker daemon reachability check for
// the doctor command.
//
// The lab's Jupyter stack is commonly run through a container instead of
// a conda environment, so `qlab doctor` reports whether a daemon is
// reachable as one more fact about the machine. This package deliberately
// exposes only connect/ping/close — qlab never creates or manages
// containers, and an unreachable daemon is a diagnosis item, not a
// provisioning failure.
package docker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"
)

// pingTimeout bounds the daemon probe so a paused or wedged Docker
// Desktop cannot hang the doctor run.
const pingTimeout = 5 * time.Second

// Client wraps the Docker SDK client behind the narrow surface the
// doctor command needs.
type Client struct {
	inner *client.Client
}

// NewClient connects to the Docker daemon, honoring DOCKER_HOST when set
// and otherwise probing the platform's default socket locations.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectHost()
		if err != nil {
			return nil, err
		}
		host = detected
	}

	// API version negotiation keeps the probe working against whatever
	// daemon version is installed.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client for host %q: %w", host, err)
	}
	return &Client{inner: c}, nil
}

// detectHost returns the daemon address for the current platform by
// checking for known socket paths. Existence of the socket file does not
// guarantee a listening daemon; Ping is the authority on that.
func detectHost() (string, error) {
	switch runtime.GOOS {
	case "linux", "darwin":
		candidates := []string{"/var/run/docker.sock"}
		if home, err := os.UserHomeDir(); err == nil && runtime.GOOS == "darwin" {
			// Newer Docker Desktop releases on macOS skip the /var/run
			// symlink and only create the per-user socket.
			candidates = append(candidates, home+"/.docker/run/docker.sock")
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); err == nil {
				return "unix://" + path, nil
			}
		}
		return "", fmt.Errorf("no Docker socket found at %v", candidates)

	case "windows":
		return "npipe:////./pipe/docker_engine", nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Ping reports whether the daemon answers within the probe timeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return fmt.Errorf("Docker daemon is not responding: %w", err)
	}
	return nil
}

// Close releases the client's underlying connection. Safe to call on a
// client whose construction partially failed.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
