package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template names a set of embedded subject/text/html templates rendered by
// the email worker with Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Template string         `json:"template"` // "activation" or "reset_password"
	Data     map[string]any `json:"data,omitempty"`
}
