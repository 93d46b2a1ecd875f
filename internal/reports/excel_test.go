package reports

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"surgebot/internal/models"
)

func TestBuildExport(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	transactions := []models.Transaction{
		{
			ID: 1, TxID: "5VfYt" + string(bytes.Repeat([]byte("a"), 50)), ChatID: 1001,
			Plan: "monthly", DurationDays: 30, Amount: 1.0,
			Status: models.TxStatusCompleted, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: 2, TxID: "9XkQz" + string(bytes.Repeat([]byte("b"), 50)), ChatID: 1002,
			Plan: "yearly", DurationDays: 365, Amount: 8.0,
			Status: models.TxStatusPending, CreatedAt: now, UpdatedAt: now,
		},
	}
	rewards := []models.ReferralReward{
		{
			ID: 1, BeneficiaryChat: 2001, SourceChat: 1001, TxID: transactions[0].TxID,
			Amount: 0.1, Status: models.RewardStatusPaid,
			PayoutReference: sql.NullString{String: "ref-123", Valid: true},
			CreatedAt:       now, PaidAt: sql.NullTime{Time: now, Valid: true},
		},
	}

	data, err := BuildExport(transactions, rewards)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 transactions
	assert.Equal(t, "Tx ID", rows[0][0])
	assert.Equal(t, transactions[0].TxID, rows[1][0])
	assert.Equal(t, "monthly", rows[1][2])

	rewardRows, err := f.GetRows(sheetRewards)
	require.NoError(t, err)
	require.Len(t, rewardRows, 2)
	assert.Equal(t, "paid", rewardRows[1][5])
	assert.Equal(t, "ref-123", rewardRows[1][6])
}

func TestBuildExportEmpty(t *testing.T) {
	data, err := BuildExport(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
