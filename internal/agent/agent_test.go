package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newAgent(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("proxy") {
		case "":
			w.Write([]byte(`{"deviceWallet":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin","deviceInfoKey":"abc","Version":"v0.9.1","deviceInfo":{"hostname":"node1"}}`))
		default:
			w.Header().Set("GetDeviceInfo-Proxy-Error", r.URL.Query().Get("proxy")+" deviceInfo not cached yet")
		}
	})
	mux.HandleFunc("/wireguard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Error", "Not ready yet")
	})
	mux.HandleFunc("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nginx_test_run:80":"127.0.0.1:8080"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second)
}

func TestDevice(t *testing.T) {
	c := newAgent(t)

	info, err := c.Device(context.Background(), "")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if info.DeviceWallet != "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin" || info.Version != "v0.9.1" {
		t.Errorf("Device() = %+v", info)
	}
	if len(info.Raw) == 0 {
		t.Error("Device() did not keep the raw reply")
	}

	if _, err := c.Device(context.Background(), "node2"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Device(node2) error = %v, want ErrUnavailable", err)
	}
}

func TestWireGuardNotReady(t *testing.T) {
	c := newAgent(t)
	if _, err := c.WireGuard(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("WireGuard() error = %v, want ErrUnavailable", err)
	}
}

func TestEndpoints(t *testing.T) {
	c := newAgent(t)
	endpoints, err := c.Endpoints(context.Background())
	if err != nil {
		t.Fatalf("Endpoints() error = %v", err)
	}
	if endpoints["nginx_test_run:80"] != "127.0.0.1:8080" {
		t.Errorf("Endpoints() = %v", endpoints)
	}
}

func TestAgentDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, 100*time.Millisecond)
	if _, err := c.Endpoints(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Endpoints() error = %v, want ErrUnavailable", err)
	}
}
