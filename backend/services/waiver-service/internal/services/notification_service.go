package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// ErrChannelDisabled is returned by a sender whose provider is not configured.
var ErrChannelDisabled = errors.New("notification channel disabled")

// Sender delivers one outbox row over its channel.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// Senders maps each channel to its provider.
type Senders map[models.NotificationChannel]Sender

// NewSenders builds the Twilio and SendGrid senders from cfg. A provider
// without credentials gets a sender that always fails, so rows on that
// channel end up failed instead of pending forever.
func NewSenders(cfg *config.Config, tw *twilio.RestClient, sg *sendgrid.Client) Senders {
	out := Senders{
		models.ChannelSMS:   disabledSender{channel: models.ChannelSMS},
		models.ChannelEmail: disabledSender{channel: models.ChannelEmail},
	}
	if cfg.SMSEnabled() && tw != nil {
		out[models.ChannelSMS] = &twilioSender{
			client:  tw,
			from:    cfg.LDFlag_TwilioFromPhone,
			breaker: newBreaker("twilio"),
		}
	}
	if cfg.EmailEnabled() && sg != nil {
		out[models.ChannelEmail] = &sendgridSender{
			client:   sg,
			fromName: cfg.OrganizationName,
			from:     cfg.LDFlag_SendgridFromEmail,
			sandbox:  cfg.LDFlag_SendgridSandboxMode,
			breaker:  newBreaker("sendgrid"),
		}
	}
	return out
}

// newBreaker trips after 3 consecutive failures, or above a 5% failure
// ratio once 20 requests were seen in the interval.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			utils.Logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

type disabledSender struct {
	channel models.NotificationChannel
}

func (d disabledSender) Send(_ context.Context, _ *models.Notification) error {
	return fmt.Errorf("%w: %s", ErrChannelDisabled, d.channel)
}

type twilioSender struct {
	client  *twilio.RestClient
	from    string
	breaker *gobreaker.CircuitBreaker
}

func (t *twilioSender) Send(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.breaker.Execute(func() (interface{}, error) {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(n.Recipient)
		params.SetFrom(t.from)
		params.SetBody(n.Body)
		return t.client.Api.CreateMessage(params)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

type sendgridSender struct {
	client   *sendgrid.Client
	fromName string
	from     string
	sandbox  bool
	breaker  *gobreaker.CircuitBreaker
}

func (s *sendgridSender) Send(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", n.Recipient)
	message := mail.NewSingleEmail(from, n.Subject, to, n.Body, n.HTML)

	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		resp, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to send email via sendgrid: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

// ratingEmailHTML: title, greeting name, organization, link, link, year.
const ratingEmailHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f4;font-family:Arial,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:24px 0;">
    <tr>
      <td align="center">
        <table width="560" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
          <tr>
            <td style="font-size:16px;color:#333333;line-height:1.5;">
              <p>Hi %s,</p>
              <p>Thanks for visiting %s. How was your experience? It only takes a moment to let us know.</p>
              <p style="text-align:center;margin:32px 0;">
                <a href="%s" style="background-color:#1a73e8;color:#ffffff;padding:12px 24px;border-radius:4px;text-decoration:none;">Rate your visit</a>
              </p>
              <p style="font-size:12px;color:#888888;">If the button does not work, copy this link into your browser: %s</p>
            </td>
          </tr>
          <tr>
            <td style="font-size:12px;color:#aaaaaa;text-align:center;padding-top:24px;">&copy; %d %s</td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

// ratingEmail renders the subject, plain text and HTML of a rating request.
func ratingEmail(org, firstName, link string, now time.Time) (subject, plain, htmlBody string) {
	subject = fmt.Sprintf("How was your visit to %s?", org)
	plain = fmt.Sprintf("Hi %s, thanks for visiting %s. Tell us how it went: %s", firstName, org, link)
	name, orgEsc, linkEsc := html.EscapeString(firstName), html.EscapeString(org), html.EscapeString(link)
	htmlBody = fmt.Sprintf(ratingEmailHTML, html.EscapeString(subject), name, orgEsc, linkEsc, linkEsc, now.Year(), orgEsc)
	return subject, plain, htmlBody
}

func ratingSMS(org, firstName, link string) string {
	return fmt.Sprintf("Hi %s, thanks for visiting %s! Rate your visit: %s", firstName, org, link)
}
