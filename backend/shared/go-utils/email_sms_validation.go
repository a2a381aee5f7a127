package utils

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

// -----------------------------------------------------------------------
// 1) PHONE NUMBERS
// -----------------------------------------------------------------------

var (
	nonDigits = regexp.MustCompile(`\D`)
	e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164
)

// NormalizePhone strips every non-digit. Customers are stored and looked up
// by this form, so "(555) 123-4567" and "555.123.4567" are the same key.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// ToE164 turns normalized digits into the form Twilio expects. Ten-digit
// national numbers get countryCode prepended.
func ToE164(digits, countryCode string) string {
	if len(digits) == 10 {
		return "+" + countryCode + digits
	}
	return "+" + digits
}

func IsE164(number string) bool { return e164Regex.MatchString(number) }

// ValidatePhoneNumber validates an E.164 `number`.
//
// If validateWithTwilio is set and tw is non-nil, a Twilio Lookups V2 fetch
// (free basic tier) must also find the number.
func ValidatePhoneNumber(
	ctx context.Context,
	number string,
	validateWithTwilio bool,
	tw *twilio.RestClient,
) (bool, error) {
	if !IsE164(number) {
		return false, nil
	}

	if validateWithTwilio && tw != nil {
		_, err := tw.LookupsV2.FetchPhoneNumber(number, &lookupsv2.FetchPhoneNumberParams{})
		if err == nil {
			return true, nil
		}

		if restErr, ok := err.(*twilioclient.TwilioRestError); ok {
			if restErr.Status == 404 {
				return false, nil
			}
			return false, fmt.Errorf("twilio lookup failed: %d %s", restErr.Status, restErr.Error())
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}

	return true, nil
}

// -----------------------------------------------------------------------
// 2) EMAIL
// -----------------------------------------------------------------------

// NormalizeEmail lower-cases and syntax-checks an address. Display-name
// forms ("Sam <sam@x.com>") are rejected.
func NormalizeEmail(raw string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return e, nil
}
