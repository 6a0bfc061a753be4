package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/echotune/echotune-backend/internal/models"
)

// OTCMessage renders the subject and bodies for a one-time-code email.
func OTCMessage(name, code, purpose string, expiry time.Duration) (subject, textBody, htmlBody string) {
	safeName := strings.TrimSpace(name)
	if safeName == "" {
		safeName = "there"
	}

	var intro string
	if purpose == models.OTCPurposePasswordReset {
		subject = "EchoTune password reset code"
		intro = "Use this code to reset your EchoTune account password."
	} else {
		subject = "EchoTune account verification code"
		intro = "Use this code to verify your EchoTune account."
	}

	minutes := int(expiry.Minutes())

	textBody = strings.Join([]string{
		fmt.Sprintf("Hi %s,", safeName),
		"",
		intro,
		"",
		fmt.Sprintf("Code: %s", code),
		fmt.Sprintf("This code expires in %d minutes.", minutes),
		"",
		"If you did not request this, you can ignore this email.",
		"",
		"Team EchoTune",
	}, "\n")

	htmlBody = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #111827;">
  <p>Hi %s,</p>
  <p>%s</p>
  <p style="font-size: 24px; font-weight: 700; letter-spacing: 4px;">%s</p>
  <p>This code expires in %d minutes.</p>
  <p>If you did not request this, you can ignore this email.</p>
  <p>Team EchoTune</p>
</div>`, safeName, intro, code, minutes)

	return subject, textBody, htmlBody
}
