package testhelpers

import (
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// WaitForOutbox polls until no notification for waiverID is pending or
// sending, then returns the rows.
func (h *TestHelper) WaitForOutbox(waiverID int64, maxWait time.Duration) []OutboxRow {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		rows := h.OutboxRows(waiverID)
		done := len(rows) > 0
		for _, r := range rows {
			if r.Status == models.NotificationPending || r.Status == models.NotificationSending {
				done = false
			}
		}
		if done {
			return rows
		}
		time.Sleep(200 * time.Millisecond)
	}
	h.T.Fatalf("Outbox rows for waiver %d were not delivered within %v", waiverID, maxWait)
	return nil
}

// OutboxRow is the part of a notification row the tests look at.
type OutboxRow struct {
	Channel models.NotificationChannel
	Purpose models.NotificationPurpose
	Status  models.NotificationStatus
}

func (h *TestHelper) OutboxRows(waiverID int64) []OutboxRow {
	rows, err := h.DB.Query(h.Ctx, `
		SELECT channel, purpose, status FROM notification_outbox
		WHERE waiver_id=$1 ORDER BY id`, waiverID)
	require.NoError(h.T, err)
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var channel, purpose, status string
		require.NoError(h.T, rows.Scan(&channel, &purpose, &status))
		out = append(out, OutboxRow{
			Channel: models.NotificationChannel(channel),
			Purpose: models.NotificationPurpose(purpose),
			Status:  models.NotificationStatus(status),
		})
	}
	require.NoError(h.T, rows.Err())
	return out
}

// CountRows returns the number of rows in table matching the optional where
// clause. table and where must be literals from the test.
func (h *TestHelper) CountRows(table, where string, args ...any) int {
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(h.T, h.DB.QueryRow(h.Ctx, q, args...).Scan(&n))
	return n
}
