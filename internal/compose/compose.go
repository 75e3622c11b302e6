// Package compose summarizes docker-compose documents, which is what a
// worknet spec points at.
package compose

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Service is one entry of the services map.
type Service struct {
	Name  string   `json:"name"`
	Image string   `json:"image,omitempty"`
	Ports []string `json:"ports,omitempty"`
}

type document struct {
	Services map[string]struct {
		Image string   `yaml:"image"`
		Ports []string `yaml:"ports"`
	} `yaml:"services"`
}

// Parse decodes a compose document and returns its services sorted by name.
func Parse(data []byte) ([]Service, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("compose: document is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("compose: decode: %w", err)
	}
	if len(doc.Services) == 0 {
		return nil, fmt.Errorf("compose: no services defined")
	}

	services := make([]Service, 0, len(doc.Services))
	for name, svc := range doc.Services {
		services = append(services, Service{Name: name, Image: svc.Image, Ports: svc.Ports})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// Summary renders services as "name (image), ..." for proposal descriptions.
func Summary(services []Service) string {
	parts := make([]string, len(services))
	for i, s := range services {
		if s.Image == "" {
			parts[i] = s.Name
			continue
		}
		parts[i] = fmt.Sprintf("%s (%s)", s.Name, s.Image)
	}
	return strings.Join(parts, ", ")
}
