package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// consoleService prints every message as a MIME document. Used in development.
type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        *log.Logger // nil disables output
	logger     core.Logger
}

var _ core.EmailService = (*consoleService)(nil)

func newConsoleService(out *log.Logger, logger core.Logger) consoleService {
	return consoleService{
		from:       core.Conf.DefaultFromEmail(),
		subjPrefix: "[" + core.Conf.AppName + "] ",
		out:        out,
		logger:     logger,
	}
}

func NewConsoleService(out *log.Logger, logger core.Logger) core.EmailService {
	svc := newConsoleService(out, logger)
	return &svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) { _ = svc.deliver(msg) }(msg)
	}
}

// deliver renders msg and prints it. It reports whether msg was sendable.
func (svc *consoleService) deliver(msg *core.EmailMessage) bool {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return false
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return false
	}
	if svc.out != nil {
		body := new(strings.Builder)
		if err := svc.write(body, *msg); err != nil {
			svc.logger.Error("writing email: "+err.Error(), err)
			return false
		}
		svc.out.Println(body.String())
	}
	return true
}

func (svc *consoleService) write(body io.Writer, msg core.EmailMessage) error {
	headers := [][2]string{
		{"From", svc.from.String()},
		{"MIME-Version", "1.0"},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
	}
	for _, h := range headers {
		_, _ = fmt.Fprintf(body, "%s: %s\r\n", h[0], h[1])
	}

	altW := multipart.NewWriter(body)
	defer func() { _ = altW.Close() }()

	var mixedW *multipart.Writer
	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		defer func() { _ = mixedW.Close() }()
		_, _ = fmt.Fprintf(body, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixedW.Boundary())
		hdr := textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}}
		if _, err := mixedW.CreatePart(hdr); err != nil {
			return errors.Wrap(err, "creating multipart/alternative part")
		}
	} else {
		_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())
	}

	parts := map[string]string{"text/plain": msg.TextContent}
	if msg.HTMLContent != "" {
		parts["text/html"] = msg.HTMLContent
	}
	for _, ct := range []string{"text/plain", "text/html"} {
		content, ok := parts[ct]
		if !ok {
			continue
		}
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {ct}})
		if err != nil {
			return errors.Wrapf(err, "creating %s part", ct)
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", content)
	}

	if mixedW != nil {
		for _, at := range msg.Attachments {
			w, err := mixedW.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			})
			if err != nil {
				return errors.Wrapf(err, "creating %s part", at.ContentType)
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
		}
	}
	return nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// Outbox is a synchronous, silent console service that records what it sent. Used in tests.
type Outbox struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*Outbox)(nil)

func NewOutbox(logger core.Logger) *Outbox {
	return &Outbox{consoleService: newConsoleService(nil, logger)}
}

func (box *Outbox) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if box.deliver(msg) {
			box.mu.Lock()
			box.sent = append(box.sent, *msg)
			box.mu.Unlock()
		}
	}
}

// Sent returns a copy of the messages sent so far.
func (box *Outbox) Sent() []core.EmailMessage {
	box.mu.Lock()
	defer box.mu.Unlock()
	return append([]core.EmailMessage(nil), box.sent...)
}

func (box *Outbox) Reset() {
	box.mu.Lock()
	defer box.mu.Unlock()
	box.sent = nil
}
