package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMessage(t *testing.T) {
	msg := CodeMessage("a@x.com", "012345", 10*time.Minute)

	assert.Equal(t, "Your One-Time Password (OTP)", msg.Subject)
	assert.Contains(t, msg.Text, "Your OTP is: 012345. It is valid for 10 minutes.")
	assert.Contains(t, msg.HTML, "<b>012345</b>")
	assert.Empty(t, msg.Attachments)
}

func TestApprovalMessage_AttachesQRInline(t *testing.T) {
	visitAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	msg := ApprovalMessage("a@x.com", "Ada <script>", "Interview", visitAt, []byte{0x89, 'P', 'N', 'G'})

	assert.Equal(t, "Your GatePass QR Code", msg.Subject)
	assert.Contains(t, msg.Text, "Purpose: Interview")
	assert.Contains(t, msg.Text, "Sat, 14 Mar 2026 10:30 UTC")
	assert.Contains(t, msg.HTML, `src="cid:qrcode"`)
	assert.Contains(t, msg.HTML, "Ada &lt;script&gt;")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "qrcode.png", msg.Attachments[0].Filename)
	assert.Equal(t, QRContentID, msg.Attachments[0].ContentID)
}

func TestRejectionMessage(t *testing.T) {
	msg := RejectionMessage("a@x.com", "Ada")
	assert.Equal(t, "GatePass Request Status", msg.Subject)
	assert.Contains(t, msg.Text, "Hello Ada,\n\nYour visitor request has been rejected.")
}

func TestFormatTTL(t *testing.T) {
	assert.Equal(t, "10 minutes", formatTTL(10*time.Minute))
	assert.Equal(t, "1 minute", formatTTL(time.Minute))
	assert.Equal(t, "2 hours", formatTTL(2*time.Hour))
}
