package connector

import (
	"errors"
	"fmt"
)

// Account describes a mailbox the checker polls.
type Account struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Validate reports whether the account carries enough to connect.
func (a Account) Validate() error {
	if a.Host == "" {
		return errors.New("mail account missing host")
	}
	if a.Username == "" {
		return errors.New("mail account missing username")
	}
	if a.Password == "" {
		return errors.New("mail account missing password")
	}
	return nil
}

// Addr returns the dial address, defaulting the port by TLS mode.
func (a Account) Addr() string {
	port := a.Port
	if port == "" {
		if a.TLS {
			port = "993"
		} else {
			port = "143"
		}
	}
	return fmt.Sprintf("%s:%s", a.Host, port)
}

// RawMessage is an unparsed mailbox message.
type RawMessage struct {
	UID uint32
	Raw []byte
}

// Session is one connected conversation with a mailbox. A fresh session is
// opened for every poll cycle and torn down when the cycle ends.
type Session interface {
	OpenInbox() error
	SearchUnseen() ([]uint32, error)
	FetchBodies(uids []uint32) ([]RawMessage, error)
	// MarkProcessed flags the messages seen; with delete set they are
	// additionally deleted and expunged.
	MarkProcessed(uids []uint32, delete bool) error
	CloseAndDisconnect() error
}

// SessionFactory opens a connected, authenticated session for an account.
type SessionFactory func(Account) (Session, error)
