// Package smsparser extracts recharge details from carrier SMS text.
//
// Extraction is best effort: a miss is reported through nil fields, never
// through an error or a panic.
package smsparser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reRechargeGate = regexp.MustCompile(`(?i)vous avez reçu|recharge de|montant|crédit`)
	reAmount       = regexp.MustCompile(`(?i)(\d+[.,]?\d*)[\s\x{00A0}]*(?:DA|DZD|dinars?)`)
	reOperationID  = regexp.MustCompile(`(?i)(?:ID|Ref|N°|Num[eé]ro)[\s:]*(\w+)`)
)

// Result holds whatever the parser could extract. Both fields are independent.
type Result struct {
	Amount      *float64 `json:"amount"`
	OperationID *string  `json:"operationId"`
}

// Complete reports whether both the amount and the operation id were found.
func (r Result) Complete() bool {
	return r.Amount != nil && r.OperationID != nil
}

// Options configures number parsing.
type Options struct {
	// DecimalSeparator selects how a comma in an amount is read. ',' (the
	// default, also used for zero) reads a comma as the decimal point, like
	// a dot. '.' treats a comma as a digit-group separator and drops it.
	DecimalSeparator rune
}

type Parser struct {
	decimal rune
}

// New returns a parser; unsupported separators fall back to ','.
func New(opts Options) *Parser {
	sep := opts.DecimalSeparator
	if sep != '.' && sep != ',' {
		sep = ','
	}
	return &Parser{decimal: sep}
}

// DecimalSeparator reports the separator in effect.
func (p *Parser) DecimalSeparator() rune {
	return p.decimal
}

var defaultParser = New(Options{})

// ParseRechargeSms parses msg with the default comma-decimal parser.
func ParseRechargeSms(msg string) Result {
	return defaultParser.ParseRechargeSms(msg)
}

// ParseRechargeSms classifies msg and, when it looks like a recharge
// confirmation, extracts the amount and the operation reference.
func (p *Parser) ParseRechargeSms(msg string) Result {
	var res Result
	if !reRechargeGate.MatchString(msg) {
		return res
	}

	if m := reAmount.FindStringSubmatch(msg); m != nil {
		if v, ok := p.parseNumber(m[1]); ok {
			res.Amount = &v
		}
	}

	if m := reOperationID.FindStringSubmatch(msg); m != nil {
		id := m[1]
		res.OperationID = &id
	}

	return res
}

// parseNumber reads the matched amount token. With ',' as the decimal
// separator either mark is read as the decimal point. With '.' a comma is a
// digit-group separator and is dropped.
func (p *Parser) parseNumber(s string) (float64, bool) {
	if p.decimal == '.' {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	// "12." is a valid token for the amount pattern.
	s = strings.TrimSuffix(s, ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
