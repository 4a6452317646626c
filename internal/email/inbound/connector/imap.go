package connector

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

type imapClient interface {
	Login(username, password string) commandWaiter
	Logout() commandWaiter
	Close() error
	Select(mailbox string, options *imap.SelectOptions) selectWaiter
	UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter
	Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter
	Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter
	UIDExpunge(uids imap.UIDSet) expungeWaiter
}

type commandWaiter interface{ Wait() error }
type selectWaiter interface {
	Wait() (*imap.SelectData, error)
}
type searchWaiter interface {
	Wait() (*imap.SearchData, error)
}
type fetchWaiter interface {
	Collect() ([]*imapclient.FetchMessageBuffer, error)
	Close() error
}
type expungeWaiter interface{ Close() error }

// IMAPSession talks to one IMAP/IMAPS mailbox for the duration of a poll.
type IMAPSession struct {
	client imapClient
}

// DialTimeout bounds the socket dial for new sessions.
var DialTimeout = 5 * time.Second

// NewIMAPSession dials and authenticates against the account's mailbox.
func NewIMAPSession(account Account) (Session, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	opts := &imapclient.Options{Dialer: &net.Dialer{Timeout: DialTimeout}}
	addr := account.Addr()
	var client *imapclient.Client
	var err error
	if account.TLS {
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialInsecure(addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}
	session := &IMAPSession{client: &imapClientWrapper{Client: client}}
	if err := session.client.Login(account.Username, account.Password).Wait(); err != nil {
		session.client.Close()
		return nil, fmt.Errorf("imap auth: %w", err)
	}
	return session, nil
}

func newIMAPSessionWith(client imapClient) *IMAPSession {
	return &IMAPSession{client: client}
}

// OpenInbox selects the INBOX folder.
func (s *IMAPSession) OpenInbox() error {
	if _, err := s.client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("imap select INBOX: %w", err)
	}
	return nil
}

// SearchUnseen returns the uids of messages not yet flagged seen.
func (s *IMAPSession) SearchUnseen() ([]uint32, error) {
	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}
	var uids []uint32
	for _, uid := range data.AllUIDs() {
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

// FetchBodies downloads the full raw body of each message.
func (s *IMAPSession) FetchBodies(uids []uint32) ([]RawMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	uidSet := uidSetOf(uids)
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{{}},
	}
	buffers, err := s.client.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	messages := make([]RawMessage, 0, len(buffers))
	for _, buf := range buffers {
		body := buf.FindBodySection(&imap.FetchItemBodySection{})
		if body == nil {
			continue
		}
		messages = append(messages, RawMessage{
			UID: uint32(buf.UID),
			Raw: append([]byte(nil), body...),
		})
	}
	return messages, nil
}

// MarkProcessed flags the messages seen, deleting and expunging them as
// well when delete is set.
func (s *IMAPSession) MarkProcessed(uids []uint32, delete bool) error {
	if len(uids) == 0 {
		return nil
	}
	uidSet := uidSetOf(uids)
	flags := []imap.Flag{imap.FlagSeen}
	if delete {
		flags = append(flags, imap.FlagDeleted)
	}
	store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Flags: flags}
	if err := s.client.Store(uidSet, store, nil).Close(); err != nil {
		return fmt.Errorf("imap store flags: %w", err)
	}
	if delete {
		if err := s.client.UIDExpunge(uidSet).Close(); err != nil {
			return fmt.Errorf("imap expunge: %w", err)
		}
	}
	return nil
}

// CloseAndDisconnect logs out and drops the connection.
func (s *IMAPSession) CloseAndDisconnect() error {
	logoutErr := s.client.Logout().Wait()
	if err := s.client.Close(); err != nil && logoutErr == nil {
		return fmt.Errorf("imap close: %w", err)
	}
	if logoutErr != nil {
		return fmt.Errorf("imap logout: %w", logoutErr)
	}
	return nil
}

func uidSetOf(uids []uint32) imap.UIDSet {
	converted := make([]imap.UID, len(uids))
	for i, uid := range uids {
		converted[i] = imap.UID(uid)
	}
	return imap.UIDSetNum(converted...)
}

type imapClientWrapper struct{ *imapclient.Client }

func (w *imapClientWrapper) Login(username, password string) commandWaiter {
	return w.Client.Login(username, password)
}
func (w *imapClientWrapper) Logout() commandWaiter { return w.Client.Logout() }
func (w *imapClientWrapper) Select(mailbox string, options *imap.SelectOptions) selectWaiter {
	return w.Client.Select(mailbox, options)
}
func (w *imapClientWrapper) UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter {
	return w.Client.UIDSearch(criteria, options)
}
func (w *imapClientWrapper) Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter {
	return w.Client.Fetch(numSet, options)
}
func (w *imapClientWrapper) Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter {
	return w.Client.Store(numSet, store, options)
}
func (w *imapClientWrapper) UIDExpunge(uids imap.UIDSet) expungeWaiter {
	return w.Client.UIDExpunge(uids)
}
