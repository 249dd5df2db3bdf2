package notify

import (
	"fmt"
	"html"
	"time"
)

const (
	signature     = "Regards,\nGatePass System"
	signatureHTML = "<p>Regards,<br>GatePass System</p>"

	// QRContentID is the content id the approval HTML references.
	QRContentID = "qrcode"
)

// CodeMessage is the one-time code email.
func CodeMessage(to, code string, ttl time.Duration) Message {
	validity := formatTTL(ttl)
	return Message{
		To:      to,
		Subject: "Your One-Time Password (OTP)",
		Text:    fmt.Sprintf("Hello,\n\nYour OTP is: %s. It is valid for %s.\n\n%s", code, validity, signature),
		HTML: fmt.Sprintf("<p>Hello,</p><p>Your OTP is: <b>%s</b>. It is valid for %s.</p>%s",
			html.EscapeString(code), validity, signatureHTML),
	}
}

// ApprovalMessage carries the credential QR image inline and as an attachment.
func ApprovalMessage(to, name, purpose string, visitAt time.Time, qrPNG []byte) Message {
	when := visitAt.Format("Mon, 02 Jan 2006 15:04 MST")
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your GatePass QR Code",
		Text: fmt.Sprintf("Hello %s,\n\nYour visitor request has been approved! Please use the attached QR code for entry.\n\nVisit Date & Time: %s\nPurpose: %s\n\n%s",
			name, when, purpose, signature),
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>Your visitor request has been approved! Please use the QR code below for entry:</p>
<img src="cid:%s" alt="QR Code" />
<p><strong>Visit Date &amp; Time:</strong> %s</p>
<p><strong>Purpose:</strong> %s</p>
%s`, html.EscapeString(name), QRContentID, html.EscapeString(when), html.EscapeString(purpose), signatureHTML),
		Attachments: []Attachment{{
			Filename:    "qrcode.png",
			ContentType: "image/png",
			ContentID:   QRContentID,
			Data:        qrPNG,
		}},
	}
}

// RejectionMessage is the notice sent before a rejected record is deleted.
func RejectionMessage(to, name string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "GatePass Request Status",
		Text:    fmt.Sprintf("Hello %s,\n\nYour visitor request has been rejected.\n\n%s", name, signature),
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>Your visitor request has been rejected.</p>%s",
			html.EscapeString(name), signatureHTML),
	}
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	}
	n := int(d.Round(time.Minute) / time.Minute)
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
