package models

import (
	"strconv"
	"strings"
	"time"
)

// Setting is a single name/value row from the settings store.
type Setting struct {
	Name  string `json:"name" db:"name"`
	Value string `json:"value" db:"value"`
}

// Mail check setting names as stored in the settings table.
const (
	SettingMailCheckEnable        = "mailer:check:enable"
	SettingMailCheckHost          = "mailer:check:host"
	SettingMailCheckPort          = "mailer:check:port"
	SettingMailCheckUsername      = "mailer:check:username"
	SettingMailCheckPassword      = "mailer:check:password"
	SettingMailCheckPolling       = "mailer:check:polling"
	SettingMailCheckTicketType    = "mailer:check:ticketype"
	SettingMailCheckPriority      = "mailer:check:ticketpriority"
	SettingMailCheckCreateAccount = "mailer:check:createaccount"
	SettingMailCheckDeleteMessage = "mailer:check:deletemessage"
)

const defaultPollingInterval = 600000 * time.Millisecond // 10 min

// MailSettings is the typed form of the mailer:check:* settings. It is
// immutable for the lifetime of a polling session and rebuilt on re-init.
type MailSettings struct {
	Enabled       bool
	Host          string
	Port          string
	Username      string
	Password      string
	TLS           bool
	Polling       time.Duration
	TicketType    string
	PriorityID    int64
	CreateAccount bool
	DeleteMessage bool
}

// ParseMailSettings builds MailSettings from raw setting rows, applying the
// documented defaults for anything absent. TLS is driven purely by the port
// value: 993 means implicit TLS.
func ParseMailSettings(settings []Setting) MailSettings {
	byName := make(map[string]string, len(settings))
	for _, s := range settings {
		byName[s.Name] = s.Value
	}

	ms := MailSettings{
		Enabled:       parseBool(byName[SettingMailCheckEnable]),
		Host:          byName[SettingMailCheckHost],
		Port:          valueOr(byName, SettingMailCheckPort, "143"),
		Username:      byName[SettingMailCheckUsername],
		Password:      byName[SettingMailCheckPassword],
		Polling:       defaultPollingInterval,
		TicketType:    valueOr(byName, SettingMailCheckTicketType, "Issue"),
		CreateAccount: parseBool(byName[SettingMailCheckCreateAccount]),
		DeleteMessage: parseBool(byName[SettingMailCheckDeleteMessage]),
	}
	ms.TLS = ms.Port == "993"

	if raw := byName[SettingMailCheckPolling]; raw != "" {
		if millis, err := strconv.ParseInt(raw, 10, 64); err == nil && millis > 0 {
			ms.Polling = time.Duration(millis) * time.Millisecond
		}
	}
	if raw := byName[SettingMailCheckPriority]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			ms.PriorityID = id
		}
	}
	return ms
}

func valueOr(byName map[string]string, name, fallback string) string {
	if v, ok := byName[name]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func parseBool(raw string) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
