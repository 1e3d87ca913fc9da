package types

// DefaultPushTopic is the topic every device subscribes to.
const DefaultPushTopic = "mantenimiento"

// PushMessage is a titled notification addressed to a topic.
type PushMessage struct {
	Topic string
	Title string
	Body  string
	// ChannelID selects the Android notification channel on the device.
	ChannelID string
}

// SenderIdentity is the From header of outbound email.
type SenderIdentity struct {
	Name    string
	Address string
}

// Attachment is a file carried by an EmailMessage.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EmailMessage is a pre-rendered email. Providers do no templating.
type EmailMessage struct {
	To          []string
	From        SenderIdentity
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	// ReferenceID correlates provider events with the report that produced
	// the message.
	ReferenceID string
}
