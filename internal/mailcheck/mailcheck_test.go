package mailcheck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pradeepmisra81/trudesk/internal/email/inbound/connector"
	"github.com/pradeepmisra81/trudesk/internal/email/inbound/pipeline"
	"github.com/pradeepmisra81/trudesk/internal/models"
)

type fakeSession struct {
	mu        sync.Mutex
	uids      []uint32
	bodies    map[uint32][]byte
	calls     []string
	deleteArg bool
	blockOn   chan struct{}
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSession) OpenInbox() error {
	s.record("open")
	return nil
}

func (s *fakeSession) SearchUnseen() ([]uint32, error) {
	if s.blockOn != nil {
		<-s.blockOn
	}
	s.record("search")
	return s.uids, nil
}

func (s *fakeSession) FetchBodies(uids []uint32) ([]connector.RawMessage, error) {
	s.record("fetch")
	var raws []connector.RawMessage
	for _, uid := range uids {
		raws = append(raws, connector.RawMessage{UID: uid, Raw: s.bodies[uid]})
	}
	return raws, nil
}

func (s *fakeSession) MarkProcessed(uids []uint32, delete bool) error {
	s.record("mark")
	s.deleteArg = delete
	return nil
}

func (s *fakeSession) CloseAndDisconnect() error {
	s.record("close")
	return nil
}

type fakeProcessor struct {
	mu       sync.Mutex
	batches  [][]*models.InboundMessage
	defaults []pipeline.Defaults
	returned pipeline.Defaults
}

func (p *fakeProcessor) ProcessBatch(_ context.Context, messages []*models.InboundMessage, defaults pipeline.Defaults) (pipeline.Defaults, pipeline.BatchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, messages)
	p.defaults = append(p.defaults, defaults)
	return p.returned, pipeline.BatchResult{Created: len(messages)}
}

type fakeParser struct{}

func (fakeParser) Parse(uid uint32, raw []byte) *models.InboundMessage {
	return &models.InboundMessage{UID: uid, From: "a@b.com", Subject: "s", Body: string(raw)}
}

func enabledSettings() []models.Setting {
	return []models.Setting{
		{Name: models.SettingMailCheckEnable, Value: "true"},
		{Name: models.SettingMailCheckHost, Value: "mail.example"},
		{Name: models.SettingMailCheckUsername, Value: "agent"},
		{Name: models.SettingMailCheckPassword, Value: "secret"},
	}
}

func TestInitDisabledDoesNothing(t *testing.T) {
	factoryCalls := 0
	proc := &fakeProcessor{}
	c := New(proc, WithSessionFactory(func(connector.Account) (connector.Session, error) {
		factoryCalls++
		return &fakeSession{}, nil
	}))

	require.NoError(t, c.Init(context.Background(), nil))
	require.Zero(t, factoryCalls)
	require.Empty(t, proc.batches)
	c.Stop()
}

func TestInitPollsImmediately(t *testing.T) {
	session := &fakeSession{
		uids:   []uint32{11},
		bodies: map[uint32][]byte{11: []byte("body")},
	}
	var gotAccount connector.Account
	proc := &fakeProcessor{returned: pipeline.Defaults{TypeID: 7, PriorityID: 1}}
	c := New(proc,
		WithParser(fakeParser{}),
		WithSessionFactory(func(acc connector.Account) (connector.Session, error) {
			gotAccount = acc
			return session, nil
		}))
	defer c.Stop()

	require.NoError(t, c.Init(context.Background(), enabledSettings()))

	require.Equal(t, "mail.example", gotAccount.Host)
	require.Equal(t, "143", gotAccount.Port)
	require.False(t, gotAccount.TLS)

	// Messages are flagged right after fetch, before the pipeline runs.
	require.Equal(t, []string{"open", "search", "fetch", "mark", "close"}, session.calls)
	require.False(t, session.deleteArg)

	require.Len(t, proc.batches, 1)
	require.Len(t, proc.batches[0], 1)
	require.Equal(t, uint32(11), proc.batches[0][0].UID)
}

func TestPollWritesBackResolvedDefaults(t *testing.T) {
	session := &fakeSession{uids: []uint32{1}, bodies: map[uint32][]byte{1: []byte("x")}}
	proc := &fakeProcessor{returned: pipeline.Defaults{TicketType: "Issue", TypeID: 7, PriorityID: 1}}
	c := New(proc,
		WithParser(fakeParser{}),
		WithSessionFactory(func(connector.Account) (connector.Session, error) { return session, nil }))
	defer c.Stop()

	require.NoError(t, c.Init(context.Background(), enabledSettings()))
	c.PollNow(context.Background())

	require.Len(t, proc.defaults, 2)
	// The second cycle starts from the defaults the first cycle resolved.
	require.Equal(t, int64(7), proc.defaults[1].TypeID)
	require.Equal(t, int64(1), proc.defaults[1].PriorityID)
}

func TestPollSkipsWhenInFlight(t *testing.T) {
	release := make(chan struct{})
	session := &fakeSession{
		blockOn: release,
		uids:    []uint32{1},
		bodies:  map[uint32][]byte{1: []byte("x")},
	}
	proc := &fakeProcessor{}
	c := New(proc,
		WithParser(fakeParser{}),
		WithSessionFactory(func(connector.Account) (connector.Session, error) { return session, nil }))
	defer c.Stop()

	c.mu.Lock()
	c.enabled = true
	c.settings = models.ParseMailSettings(enabledSettings())
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.PollNow(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return c.polling.Load() }, time.Second, 5*time.Millisecond)
	c.PollNow(context.Background()) // overlapping poll is skipped

	close(release)
	<-done
	require.Len(t, session.calls, 5) // one full cycle only
}

func TestPollDeleteMessageSetting(t *testing.T) {
	session := &fakeSession{uids: []uint32{1}, bodies: map[uint32][]byte{1: []byte("x")}}
	proc := &fakeProcessor{}
	c := New(proc,
		WithParser(fakeParser{}),
		WithSessionFactory(func(connector.Account) (connector.Session, error) { return session, nil }))
	defer c.Stop()

	settings := append(enabledSettings(),
		models.Setting{Name: models.SettingMailCheckDeleteMessage, Value: "true"})
	require.NoError(t, c.Init(context.Background(), settings))
	require.True(t, session.deleteArg)
}

func TestPollEmptyMailboxSkipsPipeline(t *testing.T) {
	session := &fakeSession{}
	proc := &fakeProcessor{}
	c := New(proc,
		WithParser(fakeParser{}),
		WithSessionFactory(func(connector.Account) (connector.Session, error) { return session, nil }))
	defer c.Stop()

	require.NoError(t, c.Init(context.Background(), enabledSettings()))
	require.Empty(t, proc.batches)
	require.Equal(t, []string{"open", "search", "close"}, session.calls)
}
