package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type Texter interface {
	Text(ctx context.Context, to, body string) error
}

type TwilioTexter struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioTexter(accountSID, authToken, from string) *TwilioTexter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioTexter{client: client, from: from}
}

func (t *TwilioTexter) Text(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)
	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	return nil
}

func smsBody(kind Kind, d MessageData) string {
	switch kind {
	case KindBookingConfirmation:
		return fmt.Sprintf("%s: your appointment with %s on %s at %s is confirmed.", d.Hospital, d.DoctorName, d.Date, d.Time)
	case KindStatusUpdate:
		return fmt.Sprintf("%s: %s (%s, %s at %s)", d.Hospital, d.StatusMessage, d.DoctorName, d.Date, d.Time)
	case KindReminder:
		return fmt.Sprintf("%s: reminder of your appointment with %s tomorrow at %s.", d.Hospital, d.DoctorName, d.Time)
	}
	return ""
}
