package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
)

// WriteCSV writes the header followed by one line per recharge.
func WriteCSV(w io.Writer, recharges []core.Recharge) error {
	if len(recharges) == 0 {
		return ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recharges {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
