package mail

import (
	"testing"
	"time"

	"github.com/echotune/echotune-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOTCMessagePerPurpose(t *testing.T) {
	subject, text, html := OTCMessage("Ada", "4821", models.OTCPurposeSignup, 10*time.Minute)
	assert.Equal(t, "EchoTune account verification code", subject)
	assert.Contains(t, text, "Hi Ada,")
	assert.Contains(t, text, "Code: 4821")
	assert.Contains(t, text, "expires in 10 minutes")
	assert.Contains(t, html, "4821")

	subject, text, _ = OTCMessage("Ada", "4821", models.OTCPurposePasswordReset, 10*time.Minute)
	assert.Equal(t, "EchoTune password reset code", subject)
	assert.Contains(t, text, "reset your EchoTune account password")
}

func TestOTCMessageBlankName(t *testing.T) {
	_, text, _ := OTCMessage("  ", "4821", models.OTCPurposeSignup, 10*time.Minute)
	assert.Contains(t, text, "Hi there,")
}
