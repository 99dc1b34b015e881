package redact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"servicedesk/internal/llm"
)

func TestScrub(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"email",
			"reach me at jane.doe@example.com please",
			"reach me at [REDACTED_EMAIL] please",
		},
		{
			"ssn",
			"my ssn is 123-45-6789",
			"my ssn is [REDACTED_SSN]",
		},
		{
			"credential",
			"password: hunter2 is not working",
			"password: [REDACTED_CREDENTIAL] is not working",
		},
		{
			"api key",
			"api key = sk-abc123",
			"api key = [REDACTED_CREDENTIAL]",
		},
		{
			"clean text untouched",
			"what is the leave policy",
			"what is the leave policy",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Scrub(tc.in); got != tc.want {
				t.Fatalf("Scrub(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestScrubIsIdempotent(t *testing.T) {
	in := "email jane@example.com ssn 123-45-6789 password: hunter2"
	once := Scrub(in)
	twice := Scrub(once)
	if once != twice {
		t.Fatalf("second scrub changed output:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestContainsPII(t *testing.T) {
	if !ContainsPII("mail me: a@b.co") {
		t.Fatal("email not detected")
	}
	if ContainsPII("what is the leave policy") {
		t.Fatal("false positive on clean text")
	}
}

type errClient struct{}

func (errClient) Model() string { return "err" }
func (errClient) Complete(context.Context, llm.Request) (string, error) {
	return "", errors.New("unavailable")
}
func (errClient) CompleteStream(context.Context, llm.Request) (<-chan llm.StreamDelta, error) {
	return nil, errors.New("unavailable")
}

func TestRedactFailsOpen(t *testing.T) {
	f := NewFilter(errClient{})
	got := f.Redact(context.Background(), "my ssn is 123-45-6789")
	if got != "my ssn is [REDACTED_SSN]" {
		t.Fatalf("got %q", got)
	}
}

func TestRedactNilClientKeepsDeterministicPass(t *testing.T) {
	f := NewFilter(nil)
	got := f.Redact(context.Background(), "contact jane@example.com")
	if !strings.Contains(got, "[REDACTED_EMAIL]") {
		t.Fatalf("got %q", got)
	}
}

type echoClient struct {
	reply string
}

func (c echoClient) Model() string { return "echo" }
func (c echoClient) Complete(context.Context, llm.Request) (string, error) {
	return c.reply, nil
}
func (c echoClient) CompleteStream(context.Context, llm.Request) (<-chan llm.StreamDelta, error) {
	return nil, errors.New("not streaming")
}

func TestRedactRescrubsModelReply(t *testing.T) {
	// A model that echoes PII back must not be able to reintroduce it.
	f := NewFilter(echoClient{reply: "forwarding to jane@example.com"})
	got := f.Redact(context.Background(), "anything")
	if strings.Contains(got, "jane@example.com") {
		t.Fatalf("model echo leaked PII: %q", got)
	}
}
