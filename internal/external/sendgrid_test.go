package external

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

func reportEmail() types.EmailMessage {
	return types.EmailMessage{
		To:       []string{"jefe@lab.test", "coordinacion@lab.test"},
		From:     types.SenderIdentity{Name: "Mantenimiento", Address: "noreply@lab.test"},
		Subject:  "Reporte de mantenimiento",
		TextBody: "Adjunto el historial.",
		Attachments: []types.Attachment{{
			Filename:    "historial.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     []byte("PK\x03\x04fake"),
		}},
		ReferenceID: "report-2026-01",
	}
}

func newTestSendGrid(t *testing.T, handler http.HandlerFunc) *SendGridClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSendGridClientWithBase(newTestClient(0), SendGridClientConfig{APIKey: "SG.key", BaseURL: srv.URL})
}

func TestSendGrid_Send(t *testing.T) {
	var got sendGridMailPayload
	client := newTestSendGrid(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "sg-msg-1")
		w.WriteHeader(http.StatusAccepted)
	})

	id, err := client.Send(context.Background(), reportEmail())
	require.NoError(t, err)
	assert.Equal(t, "sg-msg-1", id)

	require.Len(t, got.Personalizations, 1)
	assert.Len(t, got.Personalizations[0].To, 2)
	assert.Equal(t, "noreply@lab.test", got.From.Email)
	assert.Equal(t, "Reporte de mantenimiento", got.Subject)
	assert.Equal(t, []sendGridContent{{Type: "text/plain", Value: "Adjunto el historial."}}, got.Content)

	require.Len(t, got.Attachments, 1)
	decoded, err := base64.StdEncoding.DecodeString(got.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04fake", string(decoded))
	assert.Equal(t, "historial.xlsx", got.Attachments[0].Filename)
	assert.Equal(t, "attachment", got.Attachments[0].Disposition)
	assert.Equal(t, "report-2026-01", got.CustomArgs["reference_id"])
}

func TestSendGrid_Blocked(t *testing.T) {
	client := newTestSendGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"sender not verified"}]}`))
	})

	_, err := client.Send(context.Background(), reportEmail())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeEmailBlocked))
	assert.Contains(t, err.Error(), "sender not verified")
}

func TestSendGrid_BadRequest(t *testing.T) {
	client := newTestSendGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad attachment","field":"attachments"}]}`))
	})

	_, err := client.Send(context.Background(), reportEmail())
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamEmailProvider))
}

func TestSendGrid_ServerErrorAfterRetries(t *testing.T) {
	client := newTestSendGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Send(context.Background(), reportEmail())
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamUnavailable))
}

func TestSendGrid_NoRecipients(t *testing.T) {
	client := newTestSendGrid(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	msg := reportEmail()
	msg.To = nil
	_, err := client.Send(context.Background(), msg)
	assert.True(t, types.IsCode(err, types.ErrCodeValidationMissingField))
}

func TestBuildMailPayload_TextBeforeHTML(t *testing.T) {
	msg := reportEmail()
	msg.HTMLBody = "<p>Adjunto</p>"
	p := buildMailPayload(msg)
	require.Len(t, p.Content, 2)
	assert.Equal(t, "text/plain", p.Content[0].Type)
	assert.Equal(t, "text/html", p.Content[1].Type)
}
