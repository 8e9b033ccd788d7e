package gateway

import (
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
)

func TestBuildMIMEMultipartAlternative(t *testing.T) {
	raw, err := buildMIME(Message{
		From:    "newsletter@example.com",
		To:      "alice@example.com",
		Subject: "Hello",
		HTML:    "<p>Héllo</p>",
		Text:    "Héllo",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}
	if got := parsed.Header.Get("From"); got != "newsletter@example.com" {
		t.Errorf("From = %q", got)
	}
	if got := parsed.Header.Get("Subject"); got != "Hello" {
		t.Errorf("Subject = %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	if mediaType != "multipart/alternative" {
		t.Fatalf("media type = %q, want multipart/alternative", mediaType)
	}

	mr := multipart.NewReader(parsed.Body, params["boundary"])

	// Text part first, HTML second, both quoted-printable.
	wantParts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", "Héllo"},
		{"text/html", "<p>Héllo</p>"},
	}
	for i, want := range wantParts {
		part, err := mr.NextRawPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if !strings.HasPrefix(part.Header.Get("Content-Type"), want.contentType) {
			t.Errorf("part %d content type = %q, want %q", i, part.Header.Get("Content-Type"), want.contentType)
		}
		if got := part.Header.Get("Content-Transfer-Encoding"); got != "quoted-printable" {
			t.Errorf("part %d encoding = %q, want quoted-printable", i, got)
		}
		body, err := io.ReadAll(quotedprintable.NewReader(part))
		if err != nil {
			t.Fatalf("decode part %d: %v", i, err)
		}
		if string(body) != want.body {
			t.Errorf("part %d body = %q, want %q", i, body, want.body)
		}
	}
	if _, err := mr.NextRawPart(); err != io.EOF {
		t.Errorf("expected exactly two parts, got extra (err=%v)", err)
	}
}

func TestBuildMIMEHTMLOnly(t *testing.T) {
	raw, err := buildMIME(Message{
		From:    "newsletter@example.com",
		To:      "bob@example.com",
		Subject: "s",
		HTML:    "<p>b</p>",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}
	_, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("first part: %v", err)
	}
	if !strings.HasPrefix(part.Header.Get("Content-Type"), "text/html") {
		t.Errorf("single part content type = %q, want text/html", part.Header.Get("Content-Type"))
	}
	if _, err := mr.NextPart(); err != io.EOF {
		t.Errorf("expected one part only, got extra (err=%v)", err)
	}
}
