package redact

import (
	"strings"
	"testing"
)

func TestShellRedactsSecretAssignment(t *testing.T) {
	got := Shell("TOKEN=abc123 ./deploy.sh\n")
	if strings.Contains(got, "abc123") {
		t.Errorf("expected token value redacted, got %q", got)
	}
	if !strings.Contains(got, "TOKEN=***") {
		t.Errorf("expected TOKEN=***, got %q", got)
	}
	if !strings.Contains(got, "./deploy.sh") {
		t.Errorf("expected command preserved, got %q", got)
	}
}

func TestShellRedactsExport(t *testing.T) {
	got := Shell("export GITHUB_TOKEN=ghp_secret\necho done")
	if strings.Contains(got, "ghp_secret") {
		t.Errorf("expected export value redacted, got %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("expected no trailing newline added, got %q", got)
	}
}

func TestShellKeepsOrdinaryAssignments(t *testing.T) {
	script := "COUNT=3\n  for i in $(seq $COUNT); do echo $i; done\n"
	if got := Shell(script); got != script {
		t.Errorf("expected script unchanged, got %q", got)
	}
}

func TestShellKeepsSafeVars(t *testing.T) {
	script := "PATH=/usr/local/bin:$PATH make\n"
	if got := Shell(script); got != script {
		t.Errorf("expected script unchanged, got %q", got)
	}
}

func TestShellIncompleteFallsBack(t *testing.T) {
	// Cut at the cursor: does not parse as a complete script.
	got := Shell("API_KEY=\"k-123\"\nif [ -n \"$API_KEY\" ]; then\n  curl -H ")
	if strings.Contains(got, "k-123") {
		t.Errorf("expected fallback redaction, got %q", got)
	}
	if !strings.Contains(got, `API_KEY="***"`) {
		t.Errorf("expected quotes preserved, got %q", got)
	}
}

func TestAssignmentsQuoted(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`API_KEY = "sk-live-123"`, `API_KEY = "***"`},
		{`const apiKey = 'abc';`, `const apiKey = '***';`},
		{`{ password: "hunter2" }`, `{ password: "***" }`},
		{`db_passwd := "x"`, `db_passwd := "***"`},
		{`name = "codelet"`, `name = "codelet"`},
		{`if password == "x":`, `if password == "x":`},
	}
	for _, tt := range tests {
		if got := Assignments(tt.in); got != tt.want {
			t.Errorf("Assignments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssignmentsBare(t *testing.T) {
	in := "DEBUG=1\nAWS_SECRET_ACCESS_KEY=abcd/efg\nexport SLACK_TOKEN=xoxb-1\n"
	want := "DEBUG=1\nAWS_SECRET_ACCESS_KEY=***\nexport SLACK_TOKEN=***\n"
	if got := Assignments(in); got != want {
		t.Errorf("Assignments = %q, want %q", got, want)
	}
}

func TestTextDispatchesByLanguage(t *testing.T) {
	if got := Text("python", `SECRET = "s"`); got != `SECRET = "***"` {
		t.Errorf("python: got %q", got)
	}
	if got := Text("shellscript", "SECRET=s ls\n"); strings.Contains(got, "=s ") {
		t.Errorf("shellscript: got %q", got)
	}
}
