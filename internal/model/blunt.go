package model

import "time"

type BluntID string

type DeliveryMode string

const (
	DeliveryModeSMS      DeliveryMode = "SMS"
	DeliveryModeWhatsApp DeliveryMode = "WHATSAPP"
	DeliveryModeEmail    DeliveryMode = "EMAIL"
)

func (m DeliveryMode) Valid() bool {
	switch m {
	case DeliveryModeSMS, DeliveryModeWhatsApp, DeliveryModeEmail:
		return true
	}
	return false
}

type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeFile  AttachmentType = "file"
)

type RecipientMode string

const (
	RecipientModePerson    RecipientMode = "person"
	RecipientModeAuthority RecipientMode = "authority"
)

// OfficialChannel replaces the recipient number of blunts addressed to an authority.
const OfficialChannel = "OFFICIAL_CHANNEL"

const BluntVersion = 2

type Reply struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

type Blunt struct {
	ID              BluntID        `json:"id"`
	Version         int            `json:"version"`
	Content         string         `json:"content"`
	IsAnonymous     bool           `json:"isAnonymous"`
	AllowReply      bool           `json:"allowReply"`
	PostToFeed      bool           `json:"postToFeed"`
	CreatedAt       int64          `json:"createdAt"`
	ScheduledFor    int64          `json:"scheduledFor"`
	RecipientName   string         `json:"recipientName"`
	RecipientNumber string         `json:"recipientNumber"`
	DeliveryMode    DeliveryMode   `json:"deliveryMode"`
	Attachment      string         `json:"attachment,omitempty"`
	AttachmentType  AttachmentType `json:"attachmentType,omitempty"`
	AttachmentName  string         `json:"attachmentName,omitempty"`
	Acknowledged    bool           `json:"acknowledged"`
	Denied          bool           `json:"denied"`
	Replies         []Reply        `json:"replies"`
	SenderID        UserID         `json:"senderId,omitempty"`
}

// IsLocked reports whether the blunt is still waiting for its scheduled time.
func (b *Blunt) IsLocked(now time.Time) bool {
	return b.ScheduledFor > Millis(now)
}

func (b *Blunt) IsAuthority() bool {
	return b.RecipientNumber == OfficialChannel
}

// Public returns a copy safe to show to anyone other than the sender.
func (b *Blunt) Public() Blunt {
	p := *b
	if p.IsAnonymous {
		p.SenderID = ""
	}
	p.Replies = append([]Reply{}, b.Replies...)
	return p
}

// MigrateBlunt fills in fields older records were stored without.
func MigrateBlunt(b *Blunt) {
	if b.Version >= BluntVersion {
		return
	}
	if b.Replies == nil {
		b.Replies = []Reply{}
	}
	if b.ScheduledFor == 0 {
		b.ScheduledFor = b.CreatedAt
	}
	if b.DeliveryMode == "" {
		b.DeliveryMode = DeliveryModeWhatsApp
	}
	b.Version = BluntVersion
}
