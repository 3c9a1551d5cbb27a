// Package sheets pushes recharge history to a spreadsheet backend.
package sheets

import (
	"context"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/export"
)

// Header is the column layout of an exported spreadsheet tab. It extends
// the file export columns with the SIM number so several SIMs can share a tab.
var Header = append([]string{"SIM"}, export.Header...)

// Ports for outbound adapters.
type (
	// RechargeWriter appends the recharges of one SIM as rows and reports how
	// many rows were written.
	RechargeWriter interface {
		AppendRecharges(ctx context.Context, sim core.SimCard, recharges []core.Recharge) (int, error)
	}
)

// Rows renders recharges in Header order. Amounts stay numeric.
func Rows(sim core.SimCard, recharges []core.Recharge) [][]any {
	rows := make([][]any, 0, len(recharges))
	for _, r := range recharges {
		cells := export.Row(r)
		row := make([]any, 0, len(cells)+1)
		row = append(row, sim.Number)
		for i, c := range cells {
			if i == 3 {
				row = append(row, r.Amount)
				continue
			}
			row = append(row, c)
		}
		rows = append(rows, row)
	}
	return rows
}
