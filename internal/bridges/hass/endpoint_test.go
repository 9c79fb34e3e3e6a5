package hass

import (
	"errors"
	"testing"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"explicit http", "http://ha.example.com:8123", "http://ha.example.com:8123"},
		{"explicit https", "https://ha.example.com", "https://ha.example.com"},
		{"localhost infers http", "localhost:8123", "http://localhost:8123"},
		{"loopback infers http", "127.0.0.1:8123", "http://127.0.0.1:8123"},
		{"mdns infers http", "homeassistant.local:8123", "http://homeassistant.local:8123"},
		{"rfc1918 10 infers http", "10.0.0.5:8123", "http://10.0.0.5:8123"},
		{"rfc1918 172 infers http", "172.16.1.2:8123", "http://172.16.1.2:8123"},
		{"rfc1918 192 infers http", "192.168.1.10:8123", "http://192.168.1.10:8123"},
		{"ipv6 loopback infers http", "[::1]:8123", "http://[::1]:8123"},
		{"ipv6 link local infers http", "[fe80::1]:8123", "http://[fe80::1]:8123"},
		{"public host infers https", "ha.example.com", "https://ha.example.com"},
		{"public ip infers https", "93.184.216.34:8123", "https://93.184.216.34:8123"},
		{"trailing slash stripped", "http://ha.example.com:8123/", "http://ha.example.com:8123"},
		{"whitespace trimmed", "  http://ha.example.com:8123  ", "http://ha.example.com:8123"},
		{"ws becomes http", "ws://ha.example.com:8123", "http://ha.example.com:8123"},
		{"wss becomes https", "wss://ha.example.com", "https://ha.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEndpoint(tt.input)
			if err != nil {
				t.Fatalf("NormalizeEndpoint(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEndpointRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"bad scheme", "ftp://ha.example.com"},
		{"missing host", "http://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeEndpoint(tt.input)
			if !errors.Is(err, ErrInvalidEndpoint) {
				t.Errorf("NormalizeEndpoint(%q) error = %v, want ErrInvalidEndpoint", tt.input, err)
			}
		})
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://ha.local:8123", "ws://ha.local:8123/api/websocket"},
		{"https://ha.example.com", "wss://ha.example.com/api/websocket"},
	}

	for _, tt := range tests {
		if got := websocketURL(tt.base); got != tt.want {
			t.Errorf("websocketURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
