package smsparser

import "strings"

// rechargeKeywords covers generic recharge vocabulary and the three
// Algerian carriers.
var rechargeKeywords = []string{
	"recharg",
	"crédit",
	"solde",
	"montant",
	"vous avez reçu",
	"ooredoo",
	"mobilis",
	"djezzy",
}

// IsRechargeSms reports whether msg mentions any recharge keyword. It is
// looser than the gate used by ParseRechargeSms.
func IsRechargeSms(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range rechargeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
