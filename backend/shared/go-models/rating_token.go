package models

import "time"

type RatingToken struct {
	ID        int64      `json:"id"`
	WaiverID  int64      `json:"waiver_id"`
	Token     string     `json:"token"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *RatingToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Usable is true for an unused token that has not expired.
func (t *RatingToken) Usable(now time.Time) bool {
	return !t.Used && !t.Expired(now)
}
