// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package notify delivers location-recorded notifications off the
// ingestion path. Dispatch is fire-and-forget: delivery runs
// asynchronously over an in-process message channel and failures are
// logged, never surfaced to the ingest caller.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/tomtom215/waypointd/internal/config"
)

// Notification is the payload delivered to each channel after an event
// is recorded.
type Notification struct {
	UserID        string   `json:"user_id"`
	DeviceID      string   `json:"device_id"`
	FormattedTime string   `json:"formatted_time"`
	Latitude      float64  `json:"lat"`
	Longitude     float64  `json:"lon"`
	Accuracy      *float64 `json:"accuracy,omitempty"`
	Address       *string  `json:"address,omitempty"`
	NewDevice     bool     `json:"new_device"`
}

// MapLink returns a maps URL pinned to the notification's coordinate.
func (n *Notification) MapLink() string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(n.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(n.Longitude, 'f', -1, 64)
}

// Channel delivers one notification to one transport.
type Channel interface {
	// Name returns the channel identifier for logs and metrics.
	Name() string

	// Send delivers the notification. The context carries the per-send
	// timeout.
	Send(ctx context.Context, n *Notification) error
}

// EmailChannel delivers notifications over SMTP.
type EmailChannel struct {
	host       string
	port       int
	username   string
	password   string
	startTLS   bool
	from       string
	fromName   string
	recipients []string
}

// NewEmailChannel creates an SMTP channel from configuration. Returns an
// error when the configuration is incomplete; the caller logs and drops
// the channel rather than failing startup.
func NewEmailChannel(cfg *config.NotifyConfig) (*EmailChannel, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "Waypointd"
	}

	return &EmailChannel{
		host:       cfg.SMTPHost,
		port:       cfg.SMTPPort,
		username:   cfg.SMTPUsername,
		password:   cfg.SMTPPassword,
		startTLS:   cfg.SMTPStartTLS,
		from:       cfg.SMTPFrom,
		fromName:   fromName,
		recipients: cfg.Recipients,
	}, nil
}

// Name returns the channel identifier.
func (c *EmailChannel) Name() string {
	return "email"
}

// Send delivers the notification to every configured recipient in one
// SMTP session.
func (c *EmailChannel) Send(ctx context.Context, n *Notification) error {
	msg := c.buildMessage(n)

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	// Upgrade before authenticating: PlainAuth refuses to send
	// credentials over an unencrypted connection to a non-local server.
	if c.startTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server %s does not support STARTTLS", c.host)
		}
		tlsCfg := &tls.Config{
			ServerName: c.host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("start tls: %w", err)
		}
	}

	if c.username != "" && c.password != "" {
		auth := smtp.PlainAuth("", c.username, c.password, c.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp authentication: %w", err)
		}
	}

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range c.recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	// Quit failures after the body is accepted are not delivery failures.
	_ = client.Quit()
	return nil
}

// buildMessage renders the notification as a plain-text email.
func (c *EmailChannel) buildMessage(n *Notification) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", c.fromName, c.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(c.recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: Location update for %s\r\n", n.UserID))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("User: %s\r\n", n.UserID))
	msg.WriteString(fmt.Sprintf("Device: %s", n.DeviceID))
	if n.NewDevice {
		msg.WriteString(" (new device)")
	}
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Time: %s\r\n", n.FormattedTime))
	msg.WriteString(fmt.Sprintf("Coordinates: %s, %s\r\n",
		strconv.FormatFloat(n.Latitude, 'f', -1, 64),
		strconv.FormatFloat(n.Longitude, 'f', -1, 64)))
	if n.Accuracy != nil {
		msg.WriteString(fmt.Sprintf("Accuracy: %sm\r\n", strconv.FormatFloat(*n.Accuracy, 'f', -1, 64)))
	}
	if n.Address != nil {
		msg.WriteString(fmt.Sprintf("Address: %s\r\n", *n.Address))
	} else {
		msg.WriteString("Address: unavailable\r\n")
	}
	msg.WriteString(fmt.Sprintf("Map: %s\r\n", n.MapLink()))

	return msg.String()
}
