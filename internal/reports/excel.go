// Package reports builds operator-facing spreadsheet exports.
package reports

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"surgebot/internal/models"
)

const (
	sheetTransactions = "Transactions"
	sheetRewards      = "Referral Rewards"
)

var txHeader = []string{"Tx ID", "Chat ID", "Plan", "Duration (days)", "Amount (SOL)", "Status", "Created", "Updated"}
var rewardHeader = []string{"ID", "Beneficiary Chat", "Source Chat", "Tx ID", "Amount (SOL)", "Status", "Payout Reference", "Created", "Paid"}

// BuildExport produces an xlsx workbook with one sheet of payment
// transactions and one of referral rewards.
func BuildExport(transactions []models.Transaction, rewards []models.ReferralReward) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetTransactions)
	if _, err := f.NewSheet(sheetRewards); err != nil {
		return nil, fmt.Errorf("BuildExport: creating rewards sheet: %w", err)
	}

	if err := writeRow(f, sheetTransactions, 1, toCells(txHeader)); err != nil {
		return nil, err
	}
	for i, tx := range transactions {
		row := []interface{}{
			tx.TxID, tx.ChatID, tx.Plan, tx.DurationDays, tx.Amount, tx.Status,
			formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
		}
		if err := writeRow(f, sheetTransactions, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, sheetRewards, 1, toCells(rewardHeader)); err != nil {
		return nil, err
	}
	for i, r := range rewards {
		paidAt := ""
		if r.PaidAt.Valid {
			paidAt = formatTime(r.PaidAt.Time)
		}
		row := []interface{}{
			r.ID, r.BeneficiaryChat, r.SourceChat, r.TxID, r.Amount, r.Status,
			r.PayoutReference.String, formatTime(r.CreatedAt), paidAt,
		}
		if err := writeRow(f, sheetRewards, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("BuildExport: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("BuildExport: row %d on %s: %w", row, sheet, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("BuildExport: row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func toCells(header []string) []interface{} {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	return cells
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
