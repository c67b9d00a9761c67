package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core"
)

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "ada@cin.org"}}, Subject: "hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@cin.org"}}, Subject: "empty"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0].Subject)
	assert.Equal(t, "hello", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleServiceCompose(t *testing.T) {
	var out bytes.Buffer
	svc := &consoleService{
		defaultFromEmail: mail.Address{Name: "CIN", Address: "noreply@cin.org"},
		subjPrefix:       "[CIN] ",
		out:              &out,
	}

	err := svc.sendMessage(&core.EmailMessage{
		To:      []mail.Address{{Name: "Ada", Address: "ada@cin.org"}},
		Subject: "Welcome",
		BodyStr: "hello there",
		Attachments: []core.Attachment{
			{Content: bytes.NewBufferString("aGk="), ContentType: "text/plain", Filename: "hi.txt"},
		},
	})
	require.NoError(t, err)

	body := out.String()
	assert.Contains(t, body, "Subject: [CIN] Welcome")
	assert.Contains(t, body, `To: "Ada" <ada@cin.org>`)
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "hello there")
	assert.Contains(t, body, "filename=hi.txt")
	assert.True(t, strings.HasPrefix(body, `From: "CIN" <noreply@cin.org>`))
}

func TestSendgridPrepare(t *testing.T) {
	svc := NewSendgridService(core.NewTestConfig(), nil).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@cin.org"}},
		Cc:          []mail.Address{{Address: "bob@cin.org"}},
		Subject:     "Capability request approved",
		TextContent: "text",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[CIN] Capability request approved", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@cin.org", p.To[0].Address)
	require.Len(t, p.CC, 1)
	assert.Equal(t, "noreply@localhost", m.From.Address)
	require.Len(t, m.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
