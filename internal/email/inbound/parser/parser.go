package parser

import (
	"bytes"
	"errors"
	"html"
	"io"
	"log"
	"mime"
	stdmail "net/mail"
	"strings"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

const defaultBodyLimit = 128 * 1024

// Parser turns raw mailbox messages into inbound messages ready for the
// ingestion pipeline. HTML bodies are sanitized, plain-text bodies are
// escaped and rendered with line breaks.
type Parser struct {
	logger    *log.Logger
	bodyLimit int64
	policy    *bluemonday.Policy
	decoder   *mime.WordDecoder
}

// Option customizes Parser.
type Option func(*Parser)

// New builds a message parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		logger:    log.Default(),
		bodyLimit: defaultBodyLimit,
		policy:    bluemonday.UGCPolicy(),
		decoder:   &mime.WordDecoder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithLogger overrides the logger used for parse diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBodyLimit caps how many bytes of a body part are read.
func WithBodyLimit(limit int64) Option {
	return func(p *Parser) {
		if limit > 0 {
			p.bodyLimit = limit
		}
	}
}

// Parse extracts sender, subject and an HTML-rendered body from a raw
// message. A message that cannot be parsed at all comes back empty rather
// than as an error; the caller drops incomplete messages.
func (p *Parser) Parse(uid uint32, raw []byte) *models.InboundMessage {
	msg := &models.InboundMessage{UID: uid}
	if len(raw) == 0 {
		return msg
	}

	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		p.logf("parser: structured parse failed: %v", err)
		p.legacyParse(msg, raw)
		p.finish(msg)
		return msg
	}

	msg.From = p.addressFromHeader(&reader.Header)
	msg.Subject = p.subjectFromHeader(&reader.Header)

	plain, htmlBody := p.readBodyParts(reader)
	switch {
	case htmlBody != "":
		msg.Body = p.policy.Sanitize(htmlBody)
	case plain != "":
		msg.Body = renderPlainText(plain)
	default:
		p.legacyParse(msg, raw)
	}

	p.finish(msg)
	return msg
}

// finish applies the subject fallback once all sources are exhausted.
func (p *Parser) finish(msg *models.InboundMessage) {
	msg.From = strings.TrimSpace(msg.From)
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" {
		msg.Subject = msg.From
	}
}

func (p *Parser) legacyParse(msg *models.InboundMessage, raw []byte) {
	reader, err := stdmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		p.logf("parser: legacy parse failed: %v", err)
		return
	}
	if msg.From == "" {
		msg.From = p.parseAddress(reader.Header.Get("From"))
	}
	if msg.Subject == "" {
		msg.Subject = p.decodeHeader(reader.Header.Get("Subject"))
	}
	if msg.Body == "" {
		body, err := io.ReadAll(io.LimitReader(reader.Body, p.bodyLimit))
		if err != nil {
			p.logf("parser: read body failed: %v", err)
			return
		}
		text := strings.TrimSpace(string(body))
		if text == "" {
			return
		}
		if looksLikeHTML(reader.Header.Get("Content-Type")) {
			msg.Body = p.policy.Sanitize(text)
		} else {
			msg.Body = renderPlainText(text)
		}
	}
}

func (p *Parser) subjectFromHeader(header *gomail.Header) string {
	if subject, err := header.Subject(); err == nil {
		return subject
	}
	return p.decodeHeader(header.Get("Subject"))
}

func (p *Parser) addressFromHeader(header *gomail.Header) string {
	if list, err := header.AddressList("From"); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Address)
	}
	return p.parseAddress(header.Get("From"))
}

// readBodyParts walks the MIME tree and keeps the first plain and first
// HTML inline candidates.
func (p *Parser) readBodyParts(reader *gomail.Reader) (plain, htmlBody string) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.logf("parser: read part failed: %v", err)
			break
		}
		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		mimeType, _, ctErr := header.ContentType()
		if ctErr != nil {
			mimeType = "text/plain"
		}
		mimeType = strings.ToLower(strings.TrimSpace(mimeType))
		body, readErr := p.readPartBody(part.Body)
		if readErr != nil {
			p.logf("parser: read part body failed: %v", readErr)
			continue
		}
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		switch {
		case strings.HasPrefix(mimeType, "text/html"):
			if htmlBody == "" {
				htmlBody = body
			}
		default:
			if plain == "" {
				plain = body
			}
		}
	}
	return plain, htmlBody
}

func (p *Parser) readPartBody(src io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(src, p.bodyLimit))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *Parser) decodeHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	decoded, err := p.decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func (p *Parser) parseAddress(value string) string {
	value = p.decodeHeader(value)
	if value == "" {
		return ""
	}
	if addrs, err := stdmail.ParseAddressList(value); err == nil && len(addrs) > 0 {
		return strings.TrimSpace(addrs[0].Address)
	}
	if addr, err := stdmail.ParseAddress(value); err == nil {
		return strings.TrimSpace(addr.Address)
	}
	return strings.TrimSpace(value)
}

func (p *Parser) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// renderPlainText escapes a text body for HTML display, keeping line
// breaks.
func renderPlainText(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br/>")
}

func looksLikeHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "text/html")
}
