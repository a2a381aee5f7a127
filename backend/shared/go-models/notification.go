package models

import "time"

type NotificationChannel string

const (
	ChannelSMS   NotificationChannel = "sms"
	ChannelEmail NotificationChannel = "email"
)

type NotificationPurpose string

const (
	PurposeOTP    NotificationPurpose = "otp"
	PurposeRating NotificationPurpose = "rating"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row. It is written in the same transaction as
// the state change that triggers it and delivered afterwards.
type Notification struct {
	ID          int64
	Channel     NotificationChannel
	Purpose     NotificationPurpose
	Recipient   string
	Subject     string
	Body        string
	HTML        string
	WaiverID    *int64
	Status      NotificationStatus
	Attempts    int
	MaxAttempts int
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SentAt      *time.Time
}
