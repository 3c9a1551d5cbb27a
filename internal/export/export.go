// Package export renders the recharge history of a SIM card as CSV or XLSX
// and builds the share-by-email link.
package export

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
)

// ErrNothingToExport is returned when the SIM has no recharges.
var ErrNothingToExport = errors.New("no recharge data to export")

// Header is the column layout shared by every export format.
var Header = []string{"Date", "Time", "Operation ID", "Amount (DA)", "User 1", "User 2"}

// Row renders one recharge in Header order.
func Row(r core.Recharge) []string {
	return []string{
		r.Date,
		r.Time,
		r.OperationID,
		FormatAmount(r.Amount),
		yesNo(r.ForUser1),
		yesNo(r.ForUser2),
	}
}

// FormatAmount prints the shortest decimal that reads back as v.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// SuggestedFilename names an export after the SIM number, or its id when the
// number is blank.
func SuggestedFilename(sim core.SimCard, ext string) string {
	ref := strings.TrimSpace(sim.Number)
	if ref == "" {
		ref = sim.ID
	}
	return "sim-recharges-" + ref + "." + strings.TrimPrefix(ext, ".")
}

// MailtoLink returns a mailto: URL with a recharge summary subject and body
// for sim. The recipient is left for the user to fill in.
func MailtoLink(sim core.SimCard) string {
	name := sim.Name
	if strings.TrimSpace(name) == "" {
		name = "Unknown SIM"
	}
	subject := "SIM Recharge Summary for " + name
	body := "Here is my SIM recharge summary for " + name + " (" + sim.Number + ")."
	return "mailto:?subject=" + encodeComponent(subject) + "&body=" + encodeComponent(body)
}

// encodeComponent percent-encodes s for a URL query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
