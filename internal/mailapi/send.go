package mailapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Message is one outbound email with a single recipient.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type content struct {
	Data    string `json:"Data"`
	Charset string `json:"Charset"`
}

type sendEmailRequest struct {
	FromEmailAddress string `json:"FromEmailAddress"`
	Destination      struct {
		ToAddresses []string `json:"ToAddresses"`
	} `json:"Destination"`
	Content struct {
		Simple struct {
			Subject content `json:"Subject"`
			Body    struct {
				Html content `json:"Html"`
			} `json:"Body"`
		} `json:"Simple"`
	} `json:"Content"`
}

type sendEmailResponse struct {
	MessageID string `json:"MessageId"`
}

// SendEmail submits msg and returns the provider message id.
func (c *Client) SendEmail(ctx context.Context, msg Message) (string, error) {
	var req sendEmailRequest
	req.FromEmailAddress = msg.From
	req.Destination.ToAddresses = []string{msg.To}
	req.Content.Simple.Subject = content{Data: msg.Subject, Charset: "UTF-8"}
	req.Content.Simple.Body.Html = content{Data: msg.HTML, Charset: "UTF-8"}

	body, err := c.Do(ctx, http.MethodPost, "/v2/email/outbound-emails", req)
	if err != nil {
		return "", err
	}
	var out sendEmailResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("decoding send response: %w", err)
		}
	}
	return out.MessageID, nil
}
