package compose

import "testing"

const nginxCompose = `
version: "3"
services:
  web:
    image: nginx:latest
    ports:
      - "8080:80"
  cache:
    image: redis:7
  worker:
    build: .
`

func TestParse(t *testing.T) {
	services, err := Parse([]byte(nginxCompose))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(services) != 3 {
		t.Fatalf("Parse() returned %d services, want 3", len(services))
	}
	if services[0].Name != "cache" || services[1].Name != "web" || services[2].Name != "worker" {
		t.Errorf("services not sorted: %+v", services)
	}
	if len(services[1].Ports) != 1 || services[1].Ports[0] != "8080:80" {
		t.Errorf("web ports = %v", services[1].Ports)
	}

	want := "cache (redis:7), web (nginx:latest), worker"
	if got := Summary(services); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "  \n"},
		{"not yaml", "services: [unclosed"},
		{"no services", "version: '3'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse(%q) error = nil, want error", tt.data)
			}
		})
	}
}
