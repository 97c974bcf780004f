package email

// Config holds email delivery configuration. The Postmark tokens are
// optional so development environments can run with the file-based
// sender; SenderEmail and SupportEmail establish the from / reply-to
// identity of every outbound message.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
