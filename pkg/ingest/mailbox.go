package ingest

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusradar/campusradar/internal/models"
)

type MailboxConfig struct {
	Dir        string
	OnProgress func(path string)
}

// Mailbox reads announcement emails from a directory of .eml files.
type Mailbox struct {
	config MailboxConfig
}

func NewMailbox(config MailboxConfig) (*Mailbox, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("mailbox directory is required")
	}
	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open mailbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mailbox path %s is not a directory", config.Dir)
	}
	return &Mailbox{config: config}, nil
}

// Read parses every .eml file in the mailbox into an announcement,
// ordered by filename. Unparseable files are skipped.
func (m *Mailbox) Read() ([]models.Announcement, error) {
	entries, err := os.ReadDir(m.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mailbox: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".eml") {
			continue
		}
		paths = append(paths, filepath.Join(m.config.Dir, entry.Name()))
	}
	sort.Strings(paths)

	var anns []models.Announcement
	for _, path := range paths {
		ann, err := m.readOne(path)
		if err != nil {
			continue
		}
		if m.config.OnProgress != nil {
			m.config.OnProgress(path)
		}
		anns = append(anns, ann)
	}

	return anns, nil
}

func (m *Mailbox) readOne(path string) (models.Announcement, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Announcement{}, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return models.Announcement{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	body, err := extractBody(msg)
	if err != nil {
		return models.Announcement{}, err
	}

	received := time.Now()
	if d, err := msg.Header.Date(); err == nil {
		received = d
	}

	return models.Announcement{
		ID:         filepath.Base(path),
		Source:     "mailbox:" + path,
		Subject:    msg.Header.Get("Subject"),
		Body:       normalizeText(body),
		ReceivedAt: received,
		Metadata: map[string]interface{}{
			"from": msg.Header.Get("From"),
			"to":   msg.Header.Get("To"),
		},
	}, nil
}

// extractBody returns the plain text of a message, preferring a text/plain
// part and falling back to stripped text/html.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(msg.Body, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return htmlToText(string(data))
	}
	return string(data), nil
}

func extractMultipart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		data, err := io.ReadAll(body)
		return string(data), err
	}

	mr := multipart.NewReader(body, boundary)
	var htmlPart string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		data, err := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
		if err != nil {
			continue
		}

		switch partType {
		case "text/plain":
			return string(data), nil
		case "text/html":
			htmlPart = string(data)
		}
	}

	if htmlPart != "" {
		return htmlToText(htmlPart)
	}
	return "", fmt.Errorf("no text part found")
}

// decodeTransfer reverses the Content-Transfer-Encoding applied to a body.
// Multipart parts arrive with quoted-printable already decoded (the reader
// handles it and strips the header), so only base64 shows up there.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return doc.Find("body").Text(), nil
}

// normalizeText collapses whitespace and strips the footer noise campus
// mailing lists attach to every message.
func normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	noisePatterns := []string{
		"Unsubscribe",
		"You are receiving this email because",
		"Update your email preferences",
		"Sent from my iPhone",
	}

	for _, pattern := range noisePatterns {
		if idx := strings.Index(text, pattern); idx > 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}
