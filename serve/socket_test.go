package main

import (
	"fmt"
	"os"
	"testing"
)

func TestResolveSocketFromCODELET_SOCKET(t *testing.T) {
	t.Setenv("CODELET_SOCKET", "/custom/codelet.sock")
	got := resolveSocketPath()
	if got != "/custom/codelet.sock" {
		t.Errorf("expected /custom/codelet.sock, got %s", got)
	}
}

func TestResolveSocketFromXDG_RUNTIME_DIR(t *testing.T) {
	t.Setenv("CODELET_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := resolveSocketPath()
	if got != "/run/user/1000/codelet.sock" {
		t.Errorf("expected /run/user/1000/codelet.sock, got %s", got)
	}
}

func TestResolveSocketFallback(t *testing.T) {
	t.Setenv("CODELET_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	got := resolveSocketPath()
	expected := fmt.Sprintf("/tmp/codelet-%d.sock", os.Getuid())
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestSocketPathMatchesEditorClient(t *testing.T) {
	tests := []struct {
		name     string
		envSetup func(t *testing.T)
		expected string
	}{
		{
			name: "CODELET_SOCKET",
			envSetup: func(t *testing.T) {
				t.Setenv("CODELET_SOCKET", "/custom/codelet.sock")
			},
			expected: "/custom/codelet.sock",
		},
		{
			name: "XDG_RUNTIME_DIR",
			envSetup: func(t *testing.T) {
				t.Setenv("CODELET_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
			},
			expected: "/run/user/1000/codelet.sock",
		},
		{
			name: "fallback",
			envSetup: func(t *testing.T) {
				t.Setenv("CODELET_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "")
			},
			expected: fmt.Sprintf("/tmp/codelet-%d.sock", os.Getuid()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.envSetup(t)
			got := resolveSocketPath()
			if got != tt.expected {
				t.Errorf("Go resolveSocketPath() = %s, expected %s (should match editor client)", got, tt.expected)
			}
		})
	}
}
