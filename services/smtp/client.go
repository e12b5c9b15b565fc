package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/rg345/smtp-ui/interfaces"
	smtperrors "github.com/rg345/smtp-ui/internal/errors"
	"github.com/rg345/smtp-ui/internal/models"
	"github.com/rg345/smtp-ui/internal/tracing"
	"github.com/rg345/smtp-ui/internal/utils"
)

// SMTPClient speaks to one profile's SMTP server. It implements the transport
// capability consumed by the dispatch engine.
type SMTPClient struct {
	profile *models.SmtpProfile
}

func NewSMTPClient(profile *models.SmtpProfile) *SMTPClient {
	return &SMTPClient{profile: profile}
}

type clientFactory struct{}

func NewClientFactory() interfaces.SMTPClientFactory {
	return &clientFactory{}
}

func (f *clientFactory) ClientFor(profile *models.SmtpProfile) interfaces.SMTPClient {
	return NewSMTPClient(profile)
}

// Verify completes a connection and authentication handshake, then quits.
func (s *SMTPClient) Verify(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.Verify")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("smtp_server", s.profile.Host)

	client, err := s.connect(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(smtperrors.ErrTransportUnavailable, err.Error())
	}
	defer client.Close()

	return client.Quit()
}

// Send delivers one message and returns its message id. Every failure path
// resolves to an error wrapping ErrDeliveryRejected so callers can always
// reach their record-update step.
func (s *SMTPClient) Send(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.Send")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("smtp_server", s.profile.Host)

	messageID := utils.GenerateMessageID(utils.ExtractDomainFromEmail(msg.FromEmail))

	buffer, err := BuildMessage(msg, messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(smtperrors.ErrDeliveryRejected, err.Error())
	}

	if err := s.sendToServer(ctx, msg.FromEmail, msg.Recipients(), buffer); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(smtperrors.ErrDeliveryRejected, err.Error())
	}

	return messageID, nil
}

// connect dials the server, negotiates TLS per the profile's secure flag and
// authenticates. secure=true means implicit TLS; otherwise STARTTLS is used
// when the server advertises it.
func (s *SMTPClient) connect(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.profile.Host, s.profile.Port)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	if s.profile.Secure {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.profile.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, s.profile.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if !s.profile.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: s.profile.Host}
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", s.profile.Username, s.profile.Password, s.profile.Host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	return client, nil
}

// sendToServer runs the MAIL/RCPT/DATA sequence against an authenticated
// connection.
func (s *SMTPClient) sendToServer(ctx context.Context, from string, recipients []string, buffer *bytes.Buffer) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}

	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("SMTP RCPT command failed for %s: %w", recipient, err)
		}
	}

	dataWriter, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}

	if _, err := dataWriter.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}

	if err := dataWriter.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
