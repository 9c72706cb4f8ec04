package utils

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerSend(t *testing.T) {
	m := NewMailer("noreply@carbid.test", "pw", "smtp.carbid.test", "587", "https://carbid.test")

	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.Send([]string{"renter@example.com"}, "Booking confirmed", "<p>hi</p>"))
	assert.Equal(t, "smtp.carbid.test:587", gotAddr)
	assert.Equal(t, []string{"renter@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Booking confirmed\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>hi</p>"))
}

func TestMailerRequiresConfiguration(t *testing.T) {
	m := NewMailer("", "", "", "", "")
	assert.False(t, m.Configured())
	assert.Error(t, m.Send([]string{"a@example.com"}, "s", "b"))
}

func TestRenderEmailEscapesContent(t *testing.T) {
	m := NewMailer("", "", "", "", "https://carbid.test")
	body := m.RenderEmail("New bid", []string{"Offer from <script>"})
	assert.Contains(t, body, "Offer from &lt;script&gt;")
	assert.Contains(t, body, "https://carbid.test/dashboard")
}
