// Package email sends transactional email through Postmark, with a
// file-based sender for local development.
//
// The automation engine's send_email action is the main consumer:
//
//	sender := email.MustNewPostmarkClient(cfg)
//	err := sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   acc.Email,
//	    Subject:  "Your trial ends soon",
//	    BodyHTML: body,
//	    Tag:      "automation-trial_expiring",
//	})
//
// In development, NewDevSender writes each message to disk as an HTML
// file plus a JSON metadata sidecar instead of calling Postmark.
package email
