package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// target describes where a service listens when checked from inside its container.
type target struct {
	envVar      string
	defaultAddr string
}

var targets = map[string]target{
	"authgateway": {envVar: "AUTHGATEWAY_LISTEN_ADDR", defaultAddr: "127.0.0.1:10002"},
	"storaged":    {envVar: "STORAGED_LISTEN_ADDR", defaultAddr: "127.0.0.1:10001"},
}

func main() {
	name := "authgateway"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	os.Exit(check(name))
}

func check(name string) int {
	tgt, ok := targets[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown service %q\n", name)
		return 2
	}
	addr := normalizeAddr(os.Getenv(tgt.envVar), tgt.defaultAddr)

	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/healthz", addr), nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address. Docker containers bind 0.0.0.0 but the healthcheck runs
// inside the same container, so loopback is reachable and more correct.
func normalizeAddr(raw, fallback string) string {
	if raw == "" {
		return fallback
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return fallback
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
