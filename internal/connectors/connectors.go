// Package connectors pulls offer mails from a mailbox into the local inbox directory.
package connectors

import "context"

type Message struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]Message, error)
}
