package browser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/browser/browsertest"
)

const signInHTML = `<html>
	<head>
		<title>Sign in | ElevenLabs</title>
		<script>window.__state = {"token": "secret"};</script>
		<style>body { color: red; }</style>
	</head>
	<body>
		<!-- build 1234 -->
		<h1>Welcome back</h1>
		<form>
			<input type="email" name="email" placeholder="Enter your email">
			<input type="password" name="password" value="hunter2">
			<input type="hidden" name="csrf" value="abc">
			<textarea aria-label="Notes"></textarea>
			<button type="submit">Sign in</button>
			<div role="button" aria-label="Close"><svg><path d="M0"/></svg></div>
		</form>
		<div role="alert">Invalid   email
			or password</div>
	</body>
</html>`

func TestParseSnapshot(t *testing.T) {
	snap, err := browser.ParseSnapshot(signInHTML, 10000)
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}

	if snap.Title != "Sign in | ElevenLabs" {
		t.Errorf("Title = %q", snap.Title)
	}

	wantButtons := []string{"Sign in", "Close"}
	if strings.Join(snap.Buttons, ",") != strings.Join(wantButtons, ",") {
		t.Errorf("Buttons = %v, want %v", snap.Buttons, wantButtons)
	}

	wantInputs := []string{
		`input[email] email "Enter your email"`,
		`input[password] password`,
		`textarea "Notes"`,
	}
	if strings.Join(snap.Inputs, ",") != strings.Join(wantInputs, ",") {
		t.Errorf("Inputs = %v, want %v", snap.Inputs, wantInputs)
	}

	for _, want := range []string{"Welcome back", "Sign in", "Invalid email or password"} {
		if !strings.Contains(snap.Text, want) {
			t.Errorf("Text missing %q: %q", want, snap.Text)
		}
	}
	for _, not := range []string{"secret", "color: red", "build 1234", "hunter2", "abc"} {
		if strings.Contains(snap.String(), not) {
			t.Errorf("snapshot leaked %q", not)
		}
	}
	if snap.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestParseSnapshotTruncates(t *testing.T) {
	body := "<p>" + strings.Repeat("word ", 100) + "</p><p>after</p>"

	snap, err := browser.ParseSnapshot(body, 20)
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if !snap.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(snap.Text) > 20 {
		t.Errorf("len(Text) = %d, want <= 20", len(snap.Text))
	}
	if strings.Contains(snap.Text, "after") {
		t.Error("text after the limit was kept")
	}
	if !strings.HasSuffix(snap.String(), "...") {
		t.Error("String() should mark truncation")
	}
}

func TestTakeSnapshot(t *testing.T) {
	page := browsertest.NewPage("https://elevenlabs.io/app/sign-in")
	page.HTML = signInHTML

	snap, err := browser.TakeSnapshot(page, 0)
	if err != nil {
		t.Fatalf("TakeSnapshot() error = %v", err)
	}
	if snap.URL != "https://elevenlabs.io/app/sign-in" {
		t.Errorf("URL = %q", snap.URL)
	}

	page.ContentErr = errors.New("page closed")
	if _, err := browser.TakeSnapshot(page, 0); err == nil {
		t.Error("expected error from closed page")
	}
}
