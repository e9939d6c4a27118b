package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

var sample = domain.Notification{
	RunID:    "run-1",
	Facility: "honmoku",
	Status:   "partial",
	Subject:  "[WARN] fishing batch honmoku (2/3 success)",
	Body:     "- 2024-01-02: missing required fields in catch count: [visitors]",
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, l.Notify(context.Background(), sample))
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"msg":"[WARN] fishing batch honmoku (2/3 success)"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

func TestSES(t *testing.T) {
	api := &fakeSES{}
	s := NewSES(api, "batch@example.com", []string{"ops@example.com"})

	require.NoError(t, s.Notify(context.Background(), sample))
	require.NotNil(t, api.in)
	assert.Equal(t, "batch@example.com", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, api.in.Destination.ToAddresses)
	msg := api.in.Content.Simple
	assert.Equal(t, sample.Subject, aws.ToString(msg.Subject.Data))
	assert.Equal(t, sample.Body, aws.ToString(msg.Body.Text.Data))
	assert.Equal(t, "UTF-8", aws.ToString(msg.Body.Text.Charset))
}

func TestSES_Error(t *testing.T) {
	boom := errors.New("MessageRejected")
	err := NewSES(&fakeSES{err: boom}, "a@example.com", []string{"b@example.com"}).Notify(context.Background(), sample)
	assert.ErrorIs(t, err, boom)
}

type recordingNotifier struct {
	got []domain.Notification
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestFanout_AttemptsAll(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingNotifier{err: boom}
	second := &recordingNotifier{}

	err := Fanout{first, second}.Notify(context.Background(), sample)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout{}.Notify(context.Background(), sample))
}
