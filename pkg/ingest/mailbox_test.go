package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainEmail = `From: events@campus.edu
To: students@campus.edu
Subject: Robotics Workshop next Friday
Date: Mon, 01 Sep 2026 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

Join us for a hands-on robotics workshop in Lab 3 next Friday at 2pm.
Open to all engineering students.
`

const htmlEmail = `From: clubs@campus.edu
Subject: Autumn Concert
Content-Type: text/html; charset=utf-8

<html><head><style>p { color: red }</style></head>
<body><p>The music society presents the <b>Autumn Concert</b> in Main Hall.</p>
<script>trackOpen()</script></body></html>
`

const multipartEmail = "From: sports@campus.edu\r\n" +
	"Subject: Intramural Finals\r\n" +
	"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Intramural finals this Saturday on the main field.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Intramural finals this Saturday on the <b>main field</b>.</p>\r\n" +
	"--BOUNDARY--\r\n"

func writeEmail(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestMailboxRead(t *testing.T) {
	dir := t.TempDir()
	writeEmail(t, dir, "001.eml", plainEmail)
	writeEmail(t, dir, "002.eml", htmlEmail)
	writeEmail(t, dir, "003.eml", multipartEmail)
	writeEmail(t, dir, "notes.txt", "not an email")

	var seen int
	mailbox, err := NewMailbox(MailboxConfig{
		Dir:        dir,
		OnProgress: func(path string) { seen++ },
	})
	require.NoError(t, err)

	anns, err := mailbox.Read()
	require.NoError(t, err)
	require.Len(t, anns, 3)
	assert.Equal(t, 3, seen)

	assert.Equal(t, "Robotics Workshop next Friday", anns[0].Subject)
	assert.Contains(t, anns[0].Body, "hands-on robotics workshop")
	assert.Equal(t, "events@campus.edu", anns[0].Metadata["from"])
	assert.Equal(t, 2026, anns[0].ReceivedAt.Year())

	// HTML body is stripped to text, scripts and styles dropped
	assert.Contains(t, anns[1].Body, "Autumn Concert")
	assert.NotContains(t, anns[1].Body, "trackOpen")
	assert.NotContains(t, anns[1].Body, "color: red")

	// Multipart prefers the text/plain part
	assert.Contains(t, anns[2].Body, "Intramural finals this Saturday")
	assert.NotContains(t, anns[2].Body, "<b>")
}

const quotedPrintableEmail = `From: clubs@campus.edu
Subject: Film Society Screening
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: quoted-printable

<p>Join us at the caf=C3=A9 on Friday at 7pm for the <b>Film Society=
</b> screening.</p>
`

const base64Email = `From: sports@campus.edu
Subject: Swim Finals
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

SW50cmFtdXJhbCBzd2ltIGZpbmFscyB0aGlzIFNhdHVyZGF5
IGF0IHRoZSBhcXVhdGljIGNlbnRlci4=
`

const base64MultipartEmail = "From: union@campus.edu\r\n" +
	"Subject: Trivia Night\r\n" +
	"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"VHJpdmlhIG5pZ2h0IFdlZG5lc2RheSBhdCB0aGUgY2FtcHVzIHB1Yi4=\r\n" +
	"--BOUNDARY--\r\n"

func TestMailboxDecodesTransferEncodings(t *testing.T) {
	dir := t.TempDir()
	writeEmail(t, dir, "001.eml", quotedPrintableEmail)
	writeEmail(t, dir, "002.eml", base64Email)
	writeEmail(t, dir, "003.eml", base64MultipartEmail)

	mailbox, err := NewMailbox(MailboxConfig{Dir: dir})
	require.NoError(t, err)

	anns, err := mailbox.Read()
	require.NoError(t, err)
	require.Len(t, anns, 3)

	assert.Contains(t, anns[0].Body, "café on Friday at 7pm")
	assert.Contains(t, anns[0].Body, "Film Society screening")
	assert.NotContains(t, anns[0].Body, "=C3=A9")

	assert.Contains(t, anns[1].Body, "Intramural swim finals this Saturday")
	assert.NotContains(t, anns[1].Body, "SW50cmFt")

	assert.Contains(t, anns[2].Body, "Trivia night Wednesday at the campus pub.")
}

func TestMailboxSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeEmail(t, dir, "bad.eml", "totally not an rfc2822 message")
	writeEmail(t, dir, "good.eml", plainEmail)

	mailbox, err := NewMailbox(MailboxConfig{Dir: dir})
	require.NoError(t, err)

	anns, err := mailbox.Read()
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "Robotics Workshop next Friday", anns[0].Subject)
}

func TestNewMailboxRequiresDir(t *testing.T) {
	_, err := NewMailbox(MailboxConfig{})
	assert.Error(t, err)

	_, err = NewMailbox(MailboxConfig{Dir: "/does/not/exist"})
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace",
			in:   "a  b\n\nc\t d",
			want: "a b c d",
		},
		{
			name: "cuts unsubscribe footer",
			in:   "Come to the career fair. Unsubscribe from this list here.",
			want: "Come to the career fair.",
		},
		{
			name: "cuts mailing list footer",
			in:   "Movie night Thursday! You are receiving this email because you joined.",
			want: "Movie night Thursday!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}
