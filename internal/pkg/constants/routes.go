package constants

// Static route constants
const (
	WebhookRoute  = "/webhook"
	LivenessRoute = "/up"
	APIv1Prefix   = "/api/v1"
)
