package mailcheck

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pradeepmisra81/trudesk/internal/email/inbound/connector"
	"github.com/pradeepmisra81/trudesk/internal/email/inbound/parser"
	"github.com/pradeepmisra81/trudesk/internal/email/inbound/pipeline"
	"github.com/pradeepmisra81/trudesk/internal/metrics"
	"github.com/pradeepmisra81/trudesk/internal/models"
)

type processor interface {
	ProcessBatch(ctx context.Context, messages []*models.InboundMessage, defaults pipeline.Defaults) (pipeline.Defaults, pipeline.BatchResult)
}

type messageParser interface {
	Parse(uid uint32, raw []byte) *models.InboundMessage
}

// Checker polls a mailbox on a schedule and feeds unseen messages to the
// ingestion pipeline. Each cycle opens its own session; overlapping cycles
// are skipped rather than queued.
type Checker struct {
	newSession connector.SessionFactory
	parser     messageParser
	processor  processor
	logger     *log.Logger
	metrics    *metrics.MailCheck

	cron    *cron.Cron
	polling atomic.Bool

	mu       sync.Mutex
	settings models.MailSettings
	defaults pipeline.Defaults
	enabled  bool
}

// Option customizes Checker.
type Option func(*Checker)

// New builds a mail checker. It does nothing until Init is called with the
// mailer settings.
func New(proc processor, opts ...Option) *Checker {
	c := &Checker{
		newSession: connector.NewIMAPSession,
		parser:     parser.New(),
		processor:  proc,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSessionFactory overrides how mailbox sessions are opened.
func WithSessionFactory(factory connector.SessionFactory) Option {
	return func(c *Checker) {
		if factory != nil {
			c.newSession = factory
		}
	}
}

// WithParser overrides the message parser.
func WithParser(p messageParser) Option {
	return func(c *Checker) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithLogger overrides the logger used for poll diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics wires poll cycle counters.
func WithMetrics(m *metrics.MailCheck) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// Init applies the mailer:check settings. With checking disabled it is a
// no-op. Otherwise it polls once immediately and schedules recurring polls
// at the configured interval. Calling Init again replaces the schedule.
func (c *Checker) Init(ctx context.Context, settings []models.Setting) error {
	ms := models.ParseMailSettings(settings)

	c.mu.Lock()
	c.settings = ms
	c.defaults = pipeline.Defaults{
		TicketType:    ms.TicketType,
		PriorityID:    ms.PriorityID,
		CreateAccount: ms.CreateAccount,
	}
	c.enabled = ms.Enabled
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
	c.mu.Unlock()

	if !ms.Enabled {
		c.logf("mailcheck: disabled")
		return nil
	}

	c.PollNow(ctx)

	sched := cron.New()
	spec := fmt.Sprintf("@every %s", ms.Polling.Round(time.Second))
	if _, err := sched.AddFunc(spec, func() { c.PollNow(context.Background()) }); err != nil {
		return fmt.Errorf("schedule mail check: %w", err)
	}
	sched.Start()

	c.mu.Lock()
	c.cron = sched
	c.mu.Unlock()
	c.logf("mailcheck: polling %s every %s", ms.Host, ms.Polling)
	return nil
}

// PollNow runs one poll cycle. A cycle already in flight makes this a
// no-op.
func (c *Checker) PollNow(ctx context.Context) {
	if !c.polling.CompareAndSwap(false, true) {
		c.logf("mailcheck: poll already in flight, skipping")
		c.countCycle("skipped")
		return
	}
	defer c.polling.Store(false)

	c.mu.Lock()
	enabled := c.enabled
	settings := c.settings
	defaults := c.defaults
	c.mu.Unlock()

	if !enabled {
		return
	}

	defaults, err := c.poll(ctx, settings, defaults)

	c.mu.Lock()
	c.defaults = defaults
	c.mu.Unlock()

	if err != nil {
		c.logf("mailcheck: poll failed: %v", err)
		c.countCycle("error")
		return
	}
	c.countCycle("ok")
}

func (c *Checker) poll(ctx context.Context, settings models.MailSettings, defaults pipeline.Defaults) (pipeline.Defaults, error) {
	account := connector.Account{
		Host:     settings.Host,
		Port:     settings.Port,
		Username: settings.Username,
		Password: settings.Password,
		TLS:      settings.TLS,
	}

	session, err := c.newSession(account)
	if err != nil {
		return defaults, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := session.CloseAndDisconnect(); err != nil {
			c.logf("mailcheck: disconnect: %v", err)
		}
	}()

	if err := session.OpenInbox(); err != nil {
		return defaults, err
	}
	uids, err := session.SearchUnseen()
	if err != nil {
		return defaults, err
	}
	if len(uids) == 0 {
		return defaults, nil
	}

	raws, err := session.FetchBodies(uids)
	if err != nil {
		return defaults, err
	}

	// Flag before processing so a failed pipeline run does not make the
	// same messages come back on the next cycle.
	if err := session.MarkProcessed(uids, settings.DeleteMessage); err != nil {
		return defaults, err
	}

	messages := make([]*models.InboundMessage, 0, len(raws))
	for _, raw := range raws {
		messages = append(messages, c.parser.Parse(raw.UID, raw.Raw))
	}

	defaults, result := c.processor.ProcessBatch(ctx, messages, defaults)
	c.logf("mailcheck: processed %d messages, created %d, dropped %d",
		len(messages), result.Created, result.Dropped)
	if c.metrics != nil {
		c.metrics.MessagesCreated.Add(float64(result.Created))
		c.metrics.MessagesDropped.Add(float64(result.Dropped))
	}
	return defaults, nil
}

// Stop halts the polling schedule.
func (c *Checker) Stop() {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.mu.Unlock()
	if sched != nil {
		<-sched.Stop().Done()
	}
}

func (c *Checker) countCycle(status string) {
	if c.metrics != nil {
		c.metrics.Cycles.WithLabelValues(status).Inc()
	}
}

func (c *Checker) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
