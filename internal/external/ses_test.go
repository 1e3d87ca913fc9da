package external

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSES_SendRawWithAttachment(t *testing.T) {
	api := &fakeSES{}
	client := NewSESClientWithAPI(api, nil)

	id, err := client.Send(context.Background(), reportEmail())
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)

	require.NotNil(t, api.input.Content.Raw)
	assert.Equal(t, []string{"jefe@lab.test", "coordinacion@lab.test"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "report-2026-01", aws.ToString(api.input.EmailTags[0].Value))

	msg, err := mail.ReadMessage(strings.NewReader(string(api.input.Content.Raw.Data)))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Reporte de mantenimiento", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var parts []*multipart.Part
	var attachment []byte
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		parts = append(parts, p)
		if p.FileName() == "historial.xlsx" {
			// multipart.Reader does not decode base64 transfer encoding.
			raw, _ := io.ReadAll(p)
			attachment = raw
		}
	}
	require.Len(t, parts, 2)
	assert.Contains(t, string(attachment), "UEsDBGZha2U=")
}

func TestSES_SendAlternativeBodies(t *testing.T) {
	api := &fakeSES{}
	msg := reportEmail()
	msg.HTMLBody = "<p>Adjunto el historial.</p>"
	msg.Attachments = nil

	_, err := NewSESClientWithAPI(api, nil).Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Contains(t, string(api.input.Content.Raw.Data), "multipart/alternative")
}

func TestSES_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code types.ErrorCode
	}{
		{"rejected", &sestypes.MessageRejected{Message: aws.String("no")}, types.ErrCodeEmailBlocked},
		{"throttled", &sestypes.TooManyRequestsException{Message: aws.String("slow")}, types.ErrCodeUpstreamRateLimited},
		{"paused", &sestypes.SendingPausedException{Message: aws.String("paused")}, types.ErrCodeUpstreamUnavailable},
		{"other", errors.New("boom"), types.ErrCodeUpstreamEmailProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSESClientWithAPI(&fakeSES{err: tt.err}, nil).Send(context.Background(), reportEmail())
			assert.True(t, types.IsCode(err, tt.code))
		})
	}
}

func TestSES_NoRecipients(t *testing.T) {
	api := &fakeSES{}
	msg := reportEmail()
	msg.To = nil
	_, err := NewSESClientWithAPI(api, nil).Send(context.Background(), msg)
	assert.True(t, types.IsCode(err, types.ErrCodeValidationMissingField))
	assert.Nil(t, api.input)
}
