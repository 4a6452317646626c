package models

// InboundMessage is a parsed mailbox message on its way to becoming a
// ticket. Resolution fields are filled in step by step by the ingestion
// pipeline and the whole value is discarded once the ticket exists (or the
// message terminally fails).
type InboundMessage struct {
	UID     uint32
	From    string
	Subject string
	Body    string // HTML-rendered form of the message text

	Owner    *User
	Group    *Group
	Type     *TicketType
	Priority *Priority
}

// Complete reports whether the message carries everything the pipeline
// needs. Incomplete messages are dropped before any resolution happens.
func (m *InboundMessage) Complete() bool {
	return m != nil && m.From != "" && m.Subject != "" && m.Body != ""
}
