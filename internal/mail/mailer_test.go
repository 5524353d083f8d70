package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendEncodesAttachment(t *testing.T) {
	var captured []byte
	m := NewMailer("localhost", 2525, "billing@example.rs")
	m.send = func(addr, from string, to []string, msg []byte) error {
		require.Equal(t, "localhost:2525", addr)
		require.Equal(t, []string{"client@example.de"}, to)
		captured = msg
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:         "client@example.de",
		Subject:    SubjectFor("Pera Programer PR", "2025-0005"),
		Body:       "U prilogu je faktura.",
		Attachment: []byte("%PDF-1.7 fake"),
		Filename:   "2025-0005.pdf",
	})
	require.NoError(t, err)

	body := string(captured)
	require.Contains(t, body, "Subject: Pera Programer PR - faktura 2025-0005")
	require.Contains(t, body, "Content-Type: application/pdf")
	require.Contains(t, body, `filename="2025-0005.pdf"`)
	require.Contains(t, body, "U prilogu je faktura.")
}

func TestSendRejectsEmptyRecipient(t *testing.T) {
	m := NewMailer("localhost", 2525, "billing@example.rs")
	m.send = func(addr, from string, to []string, msg []byte) error { return nil }
	err := m.Send(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
}
