package tickets

import "github.com/pradeepmisra81/trudesk/internal/models"

// StaticCapabilities is a role to capability-set table. The full rule
// engine lives outside this core; this covers the checks the ticket views
// need.
type StaticCapabilities map[string][]string

// DefaultCapabilities mirrors the stock role grants.
func DefaultCapabilities() StaticCapabilities {
	return StaticCapabilities{
		"admin":   {CapPublicTickets, CapNotesView},
		"agent":   {CapPublicTickets, CapNotesView},
		"support": {CapPublicTickets, CapNotesView},
		"user":    {},
	}
}

// Can reports whether the user's role grants the capability.
func (sc StaticCapabilities) Can(user *models.User, capability string) bool {
	if user == nil {
		return false
	}
	for _, granted := range sc[user.Role] {
		if granted == capability {
			return true
		}
	}
	return false
}
