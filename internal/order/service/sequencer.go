package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/toko/internal/order/domain"
	"github.com/smallbiznis/toko/pkg/db"
	"gorm.io/gorm"
)

// Sequencer issues invoice ids of the form INV-<year>-NNNN from a per-year
// counter row. Next must run inside the placement transaction: the counter
// increment commits and rolls back with the order, so issued numbers are
// gap-free and a failed placement consumes nothing.
type Sequencer struct{}

func (Sequencer) Next(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	query := `SELECT year, last_seq FROM invoice_counters WHERE year = ?`
	if db.SupportsRowLocking(tx) {
		query += ` FOR UPDATE`
	}

	var counter domain.InvoiceCounter
	if err := tx.WithContext(ctx).Raw(query, year).Scan(&counter).Error; err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSequencer, err)
	}

	var seq int64
	if counter.Year == 0 {
		// First order of the year. Two transactions can race to insert
		// the row; the loser hits the primary key and retries.
		err := tx.WithContext(ctx).Exec(
			`INSERT INTO invoice_counters (year, last_seq) VALUES (?, 1)`,
			year,
		).Error
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return "", domain.ErrContention
			}
			return "", fmt.Errorf("%w: %v", domain.ErrSequencer, err)
		}
		seq = 1
	} else {
		seq = counter.LastSeq + 1
		err := tx.WithContext(ctx).Exec(
			`UPDATE invoice_counters SET last_seq = ? WHERE year = ?`,
			seq,
			year,
		).Error
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrSequencer, err)
		}
	}

	return fmt.Sprintf("INV-%d-%04d", year, seq), nil
}
