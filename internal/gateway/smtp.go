package gateway

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPGateway delivers messages through an SMTP relay. Credentials are
// optional; when present, PLAIN auth is negotiated after STARTTLS.
type SMTPGateway struct {
	addr     string
	username string
	password string
	timeout  time.Duration
}

// NewSMTPGateway configures a gateway for the given relay address
// (host:port). timeout bounds one complete delivery attempt.
func NewSMTPGateway(addr, username, password string, timeout time.Duration) *SMTPGateway {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SMTPGateway{addr: addr, username: username, password: password, timeout: timeout}
}

// Send assembles the MIME message and submits it to the relay. The ctx
// deadline is honored by running the blocking SMTP exchange in a goroutine;
// an abandoned exchange still terminates via the gateway timeout.
func (g *SMTPGateway) Send(ctx context.Context, msg Message) error {
	raw, err := buildMIME(msg)
	if err != nil {
		return fmt.Errorf("build message for %s: %w", msg.To, err)
	}

	var auth sasl.Client
	if g.username != "" {
		auth = sasl.NewPlainClient("", g.username, g.password)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(g.addr, auth, msg.From, []string{msg.To}, bytes.NewReader(raw))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp delivery to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp delivery to %s: %w", msg.To, ctx.Err())
	}
}

var _ Gateway = (*SMTPGateway)(nil)
