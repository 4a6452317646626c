package tickets

import (
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// Filter view query parameter names. Set-valued parameters may repeat.
const (
	paramPage      = "page"
	paramUID       = "uid"
	paramSubject   = "fs"
	paramIssue     = "it"
	paramDateStart = "ds"
	paramDateEnd   = "de"
	paramStatus    = "st"
	paramPriority  = "pr"
	paramGroup     = "gp"
	paramType      = "tt"
	paramTag       = "tag"
	paramAssignee  = "au"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "01-02-2006"}

// BuildFilter translates the filter view's query string into a ticket
// filter. rawURL is the original request URL; its page-stripped form is
// kept on the filter for building pagination links.
func BuildFilter(rawURL string, values url.Values) *models.TicketFilter {
	f := &models.TicketFilter{
		UID:        values.Get(paramUID),
		Subject:    values.Get(paramSubject),
		Issue:      values.Get(paramIssue),
		DateStart:  parseDate(values.Get(paramDateStart)),
		DateEnd:    parseDate(values.Get(paramDateEnd)),
		Status:     parseIntSet(values[paramStatus]),
		Priorities: parseInt64Set(values[paramPriority]),
		Groups:     parseInt64Set(values[paramGroup]),
		Types:      parseInt64Set(values[paramType]),
		Tags:       nonEmpty(values[paramTag]),
		Assignees:  parseInt64Set(values[paramAssignee]),
		Raw:        StripPage(rawURL),
	}
	return f
}

// BuildQuery assembles the ticket query for the filter view.
func BuildQuery(rawURL string, values url.Values, userID int64) *models.TicketQuery {
	q := &models.TicketQuery{
		Page:   parsePage(values.Get(paramPage)),
		UserID: userID,
		Filter: BuildFilter(rawURL, values),
	}
	q.Normalize()
	return q
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0
	}
	return page
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseIntSet(raw []string) []int {
	var out []int
	for _, v := range raw {
		if n, err := strconv.Atoi(v); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseInt64Set(raw []string) []int64 {
	var out []int64
	for _, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func nonEmpty(raw []string) []string {
	var out []string
	for _, v := range raw {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var (
	pageTrailingRe = regexp.MustCompile(`[?&]page=[^&#]*(#.*)?$`)
	pageMiddleRe   = regexp.MustCompile(`([?&])page=[^&]*&`)
)

// StripPage removes the page parameter from a URL, keeping every other
// parameter and the fragment. The result is the canonical base for
// pagination links.
func StripPage(rawURL string) string {
	out := pageTrailingRe.ReplaceAllString(rawURL, "$1")
	return pageMiddleRe.ReplaceAllString(out, "$1")
}
