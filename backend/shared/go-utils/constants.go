package utils

const (
	OrganizationName                      = "Waiver Desk"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	// Phones beginning with TestPhonePrefix never reach Twilio when fake
	// phones are accepted; their OTP is always TestPhoneCode.
	TestPhonePrefix = "999"
	TestPhoneCode   = "1234"

	DefaultCountryCode = "1"
)
