package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/rg345/smtp-ui/internal/models"
)

// BuildMessage renders an outbound message into wire format. Messages with
// attachments become multipart/mixed; plain messages carry a single HTML part.
func BuildMessage(msg *models.OutboundMessage, messageID string) (*bytes.Buffer, error) {
	buffer := bytes.NewBuffer(nil)
	headers := buildHeaders(msg, messageID)

	if len(msg.Attachments) > 0 {
		return buffer, buildMultipartMessage(msg, headers, buffer)
	}

	headers["Content-Type"] = "text/html; charset=UTF-8"
	writeHeaders(headers, buffer)
	_, err := buffer.WriteString(msg.BodyHTML)
	return buffer, err
}

func buildHeaders(msg *models.OutboundMessage, messageID string) map[string]string {
	headers := map[string]string{
		"From":         msg.SenderHeader(),
		"To":           strings.Join(msg.ToAddresses, ", "),
		"Subject":      msg.Subject,
		"Message-ID":   messageID,
		"Date":         time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
	}
	if len(msg.CcAddresses) > 0 {
		headers["Cc"] = strings.Join(msg.CcAddresses, ", ")
	}
	// Bcc recipients go on the envelope only, never into headers.
	return headers
}

func buildMultipartMessage(msg *models.OutboundMessage, headers map[string]string, buffer *bytes.Buffer) error {
	writer := multipart.NewWriter(buffer)
	headers["Content-Type"] = "multipart/mixed; boundary=" + writer.Boundary()

	writeHeaders(headers, buffer)

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("failed to create HTML part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(msg.BodyHTML)); err != nil {
		return fmt.Errorf("failed to write HTML content: %w", err)
	}

	for _, attachment := range msg.Attachments {
		if err := addAttachment(writer, attachment); err != nil {
			return err
		}
	}

	return writer.Close()
}

func addAttachment(writer *multipart.Writer, attachment models.Attachment) error {
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("application/octet-stream; name=%q", attachment.Filename)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Filename)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("failed to create attachment part: %w", err)
	}

	content, err := os.ReadFile(attachment.Path)
	if err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", attachment.Filename, err)
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	if _, err := part.Write([]byte(encoded)); err != nil {
		return fmt.Errorf("failed to write attachment content: %w", err)
	}
	return nil
}

func writeHeaders(headers map[string]string, buffer *bytes.Buffer) {
	for k, v := range headers {
		buffer.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	buffer.WriteString("\r\n")
}
