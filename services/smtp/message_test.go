package smtp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rg345/smtp-ui/internal/models"
)

func baseMessage() *models.OutboundMessage {
	return &models.OutboundMessage{
		FromEmail:   "noreply@example.com",
		FromName:    "Acme Mailer",
		ToAddresses: []string{"alice@example.com", "bob@example.com"},
		Subject:     "quarterly report",
		BodyHTML:    "<p>see attached</p>",
	}
}

func TestBuildMessage_PlainHTML(t *testing.T) {
	// Arrange
	msg := baseMessage()

	// Act
	buffer, err := BuildMessage(msg, "<mid-1@example.com>")

	// Assert
	require.NoError(t, err)
	raw := buffer.String()
	assert.Contains(t, raw, "From: \"Acme Mailer\" <noreply@example.com>\r\n")
	assert.Contains(t, raw, "To: alice@example.com, bob@example.com\r\n")
	assert.Contains(t, raw, "Subject: quarterly report\r\n")
	assert.Contains(t, raw, "Message-ID: <mid-1@example.com>\r\n")
	assert.Contains(t, raw, "MIME-Version: 1.0\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, raw, "<p>see attached</p>")
	assert.NotContains(t, raw, "Cc:")
}

func TestBuildMessage_NoDisplayName(t *testing.T) {
	// Arrange
	msg := baseMessage()
	msg.FromName = ""

	// Act
	buffer, err := BuildMessage(msg, "<mid-2@example.com>")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, buffer.String(), "From: noreply@example.com\r\n")
}

func TestBuildMessage_CcHeaderWhenPresent(t *testing.T) {
	// Arrange
	msg := baseMessage()
	msg.CcAddresses = []string{"carol@example.com"}

	// Act
	buffer, err := BuildMessage(msg, "<mid-3@example.com>")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, buffer.String(), "Cc: carol@example.com\r\n")
}

func TestBuildMessage_BccNeverInHeaders(t *testing.T) {
	// Arrange
	msg := baseMessage()
	msg.BccAddresses = []string{"hidden@example.com"}

	// Act
	buffer, err := BuildMessage(msg, "<mid-4@example.com>")

	// Assert
	require.NoError(t, err)
	assert.NotContains(t, buffer.String(), "hidden@example.com")
}

func TestBuildMessage_WithAttachment(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("numbers"), 0o600))

	msg := baseMessage()
	msg.Attachments = models.AttachmentList{
		{Filename: "report.txt", Path: path, Size: 7},
	}

	// Act
	buffer, err := BuildMessage(msg, "<mid-5@example.com>")

	// Assert
	require.NoError(t, err)
	raw := buffer.String()
	assert.Contains(t, raw, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, raw, "Content-Transfer-Encoding: quoted-printable")
	assert.Contains(t, raw, `attachment; filename="report.txt"`)
	assert.Contains(t, raw, "Content-Transfer-Encoding: base64")
	assert.Contains(t, raw, "bnVtYmVycw==")
}

func TestBuildMessage_MissingAttachmentFile(t *testing.T) {
	// Arrange
	msg := baseMessage()
	msg.Attachments = models.AttachmentList{
		{Filename: "ghost.txt", Path: "/nonexistent/ghost.txt"},
	}

	// Act
	_, err := BuildMessage(msg, "<mid-6@example.com>")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost.txt")
}
