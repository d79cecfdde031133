package blunt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/blunt-app/blunt/internal/authority"
	"github.com/blunt-app/blunt/internal/metrics"
	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/internal/service/moderation"
)

// MaxAttachmentBytes caps the decoded size of an attachment.
const MaxAttachmentBytes = 500000

type Store interface {
	Save(ctx context.Context, blunt *model.Blunt) error
	Get(ctx context.Context, id model.BluntID) (*model.Blunt, error)
	AddReply(ctx context.Context, id model.BluntID, content string) (*model.Blunt, error)
	Acknowledge(ctx context.Context, id model.BluntID) (*model.Blunt, error)
	Deny(ctx context.Context, id model.BluntID) (*model.Blunt, error)
	ListPublic(ctx context.Context) ([]model.Blunt, error)
	ListBySender(ctx context.Context, sender model.UserID) ([]model.Blunt, error)
}

type RateLimiter interface {
	CheckLimit(ctx context.Context, userID model.UserID, isGuest bool) (model.LimitStatus, error)
	IncrementUsage(ctx context.Context, userID model.UserID) error
}

type Moderator interface {
	Moderate(ctx context.Context, text string) moderation.Result
}

type Authorities interface {
	Find(country, id string) (authority.Authority, bool)
}

type ComposeParams struct {
	Content         string               `json:"content"`
	IsAnonymous     bool                 `json:"isAnonymous"`
	AllowReply      bool                 `json:"allowReply"`
	PostToFeed      bool                 `json:"postToFeed"`
	ScheduledFor    int64                `json:"scheduledFor"`
	RecipientMode   model.RecipientMode  `json:"recipientMode"`
	RecipientName   string               `json:"recipientName"`
	RecipientNumber string               `json:"recipientNumber"`
	DeliveryMode    model.DeliveryMode   `json:"deliveryMode"`
	AuthorityID     string               `json:"authorityId"`
	Country         string               `json:"country"`
	Attachment      string               `json:"attachment"`
	AttachmentType  model.AttachmentType `json:"attachmentType"`
	AttachmentName  string               `json:"attachmentName"`
}

// View is a blunt as seen at a given instant.
type View struct {
	model.Blunt
	Locked    bool  `json:"locked"`
	UnlocksAt int64 `json:"unlocksAt,omitempty"`
	CanReply  bool  `json:"canReply"`
}

type service struct {
	store       Store
	limiter     RateLimiter
	moderator   Moderator
	authorities Authorities
	clock       model.Clock
}

func New(store Store, limiter RateLimiter, moderator Moderator, authorities Authorities, clock model.Clock) *service {
	return &service{store, limiter, moderator, authorities, clock}
}

// Compose runs a draft through the rate limit, validation and moderation and
// stores it. Usage is only counted once the blunt is saved.
func (s *service) Compose(ctx context.Context, viewer model.Viewer, params *ComposeParams) (*model.Blunt, error) {
	status, err := s.limiter.CheckLimit(ctx, viewer.ID, viewer.IsGuest)
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}
	if !status.Allowed {
		metrics.Rejected.WithLabelValues("rate_limit").Inc()
		return nil, &model.RateLimitError{Status: status}
	}

	if err := validate(params); err != nil {
		metrics.Rejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	result := s.moderator.Moderate(ctx, params.Content)
	if !result.Safe {
		metrics.Rejected.WithLabelValues("moderation").Inc()
		reason := result.Reason
		if reason == "" {
			reason = "Content violation."
		}
		return nil, &model.ModerationViolation{Reason: reason}
	}

	blunt := s.build(viewer, params)
	if err := s.store.Save(ctx, blunt); err != nil {
		log.Errorf("saving blunt: %+v", err)
		return nil, fmt.Errorf("%w: %v", model.ErrorPersistenceFailed, err)
	}

	if err := s.limiter.IncrementUsage(ctx, viewer.ID); err != nil {
		log.Errorf("incrementing usage for %s: %+v", viewer.ID, err)
	}

	metrics.Composed.WithLabelValues(string(recipientMode(params))).Inc()
	return blunt, nil
}

func recipientMode(params *ComposeParams) model.RecipientMode {
	if params.RecipientMode == model.RecipientModeAuthority {
		return model.RecipientModeAuthority
	}
	return model.RecipientModePerson
}

func validate(params *ComposeParams) error {
	if strings.TrimSpace(params.Content) == "" {
		return &model.ValidationError{Field: "content", Message: "You have nothing to say? Then don't."}
	}

	if recipientMode(params) == model.RecipientModePerson {
		if strings.TrimSpace(params.RecipientName) == "" || strings.TrimSpace(params.RecipientNumber) == "" {
			return &model.ValidationError{Field: "recipient", Message: "Recipient details are required."}
		}
		if params.DeliveryMode != "" && !params.DeliveryMode.Valid() {
			return &model.ValidationError{Field: "deliveryMode", Message: "Delivery mode must be SMS, WHATSAPP or EMAIL."}
		}
	} else if strings.TrimSpace(params.AuthorityID) == "" {
		return &model.ValidationError{Field: "authority", Message: "Please select an authority agency."}
	}

	if params.Attachment != "" && attachmentSize(params.Attachment) > MaxAttachmentBytes {
		return &model.ValidationError{Field: "attachment", Message: "File too large. MVP limit is 500KB."}
	}
	return nil
}

// attachmentSize measures the decoded payload of a data URL, or the raw
// length of anything else.
func attachmentSize(attachment string) int {
	if strings.HasPrefix(attachment, "data:") {
		if i := strings.Index(attachment, ";base64,"); i >= 0 {
			return base64.StdEncoding.DecodedLen(len(attachment) - i - len(";base64,"))
		}
	}
	return len(attachment)
}

func (s *service) build(viewer model.Viewer, params *ComposeParams) *model.Blunt {
	now := model.Millis(s.clock())
	scheduledFor := params.ScheduledFor
	if scheduledFor == 0 {
		scheduledFor = now
	}

	blunt := &model.Blunt{
		ID:              model.BluntID(model.CreateID()),
		Version:         model.BluntVersion,
		Content:         params.Content,
		IsAnonymous:     params.IsAnonymous || viewer.IsGuest,
		AllowReply:      params.AllowReply,
		PostToFeed:      params.PostToFeed,
		CreatedAt:       now,
		ScheduledFor:    scheduledFor,
		RecipientName:   strings.TrimSpace(params.RecipientName),
		RecipientNumber: strings.TrimSpace(params.RecipientNumber),
		DeliveryMode:    params.DeliveryMode,
		Attachment:      params.Attachment,
		AttachmentName:  params.AttachmentName,
		Replies:         []model.Reply{},
		SenderID:        viewer.ID,
	}
	if blunt.DeliveryMode == "" {
		blunt.DeliveryMode = model.DeliveryModeWhatsApp
	}
	if params.Attachment != "" {
		blunt.AttachmentType = params.AttachmentType
		if blunt.AttachmentType == "" {
			blunt.AttachmentType = model.AttachmentTypeFile
			if strings.HasPrefix(params.Attachment, "data:image/") {
				blunt.AttachmentType = model.AttachmentTypeImage
			}
		}
	}

	if recipientMode(params) == model.RecipientModeAuthority {
		country := params.Country
		if country == "" {
			country = viewer.Country
		}
		if country == "" {
			country = model.DefaultCountry
		}
		blunt.RecipientName = authority.FallbackName
		if a, ok := s.authorities.Find(country, params.AuthorityID); ok {
			blunt.RecipientName = a.Name
		}
		blunt.RecipientNumber = model.OfficialChannel
		blunt.DeliveryMode = model.DeliveryModeEmail
	}
	return blunt
}

func (s *service) Get(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	blunt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching blunt: %w", err)
	}
	return blunt, nil
}

// View shows a blunt to its recipient. Until the scheduled time the content
// and attachment stay hidden.
func (s *service) View(ctx context.Context, viewer model.Viewer, id model.BluntID) (*View, error) {
	blunt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(viewer, blunt), nil
}

func (s *service) view(viewer model.Viewer, blunt *model.Blunt) *View {
	v := &View{Blunt: blunt.Public()}
	if blunt.IsLocked(s.clock()) {
		v.Locked = true
		v.UnlocksAt = blunt.ScheduledFor
		v.Content = ""
		v.Attachment = ""
		v.AttachmentName = ""
		v.AttachmentType = ""
		return v
	}
	v.CanReply = canReply(viewer, blunt) == nil
	return v
}

func canReply(viewer model.Viewer, blunt *model.Blunt) error {
	if !blunt.AllowReply {
		return model.ErrorRepliesDisabled
	}
	if !blunt.IsAuthority() && viewer.IsGuest {
		return model.ErrorReplyNotPermitted
	}
	return nil
}

// delivered fetches a blunt the recipient is allowed to act on.
func (s *service) delivered(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	blunt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if blunt.IsLocked(s.clock()) {
		return nil, model.ErrorBluntLocked
	}
	return blunt, nil
}

func (s *service) Acknowledge(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	if _, err := s.delivered(ctx, id); err != nil {
		return nil, err
	}
	blunt, err := s.store.Acknowledge(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acknowledging blunt: %w", err)
	}
	return blunt, nil
}

func (s *service) Deny(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	if _, err := s.delivered(ctx, id); err != nil {
		return nil, err
	}
	blunt, err := s.store.Deny(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("denying blunt: %w", err)
	}
	return blunt, nil
}

func (s *service) Reply(ctx context.Context, viewer model.Viewer, id model.BluntID, content string) (*model.Blunt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &model.ValidationError{Field: "content", Message: "Reply cannot be empty."}
	}

	blunt, err := s.delivered(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canReply(viewer, blunt); err != nil {
		return nil, err
	}

	updated, err := s.store.AddReply(ctx, id, content)
	if err != nil {
		return nil, fmt.Errorf("adding reply: %w", err)
	}
	metrics.Replies.Inc()
	return updated, nil
}

// Feed lists blunts posted to the public feed, hiding anonymous senders.
func (s *service) Feed(ctx context.Context) ([]View, error) {
	blunts, err := s.store.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed: %w", err)
	}
	views := make([]View, 0, len(blunts))
	for i := range blunts {
		views = append(views, *s.view(model.Viewer{IsGuest: true}, &blunts[i]))
	}
	return views, nil
}

// Sent lists the viewer's own blunts, newest first.
func (s *service) Sent(ctx context.Context, viewer model.Viewer) ([]model.Blunt, error) {
	if viewer.IsGuest {
		return nil, model.ErrorGuestForbidden
	}
	blunts, err := s.store.ListBySender(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing sent blunts: %w", err)
	}
	return blunts, nil
}

type Conversation struct {
	ID            model.BluntID `json:"id"`
	RecipientName string        `json:"recipientName"`
	IsAuthority   bool          `json:"isAuthority"`
	Preview       string        `json:"preview"`
	LastActivity  int64         `json:"lastActivity"`
	Acknowledged  bool          `json:"acknowledged"`
	Denied        bool          `json:"denied"`
	Locked        bool          `json:"locked"`
	ReplyCount    int           `json:"replyCount"`
}

// Conversations summarises the viewer's blunts for the chat list.
func (s *service) Conversations(ctx context.Context, viewer model.Viewer) ([]Conversation, error) {
	blunts, err := s.Sent(ctx, viewer)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	out := make([]Conversation, 0, len(blunts))
	for _, b := range blunts {
		c := Conversation{
			ID:            b.ID,
			RecipientName: b.RecipientName,
			IsAuthority:   b.IsAuthority(),
			Preview:       "You: " + b.Content,
			LastActivity:  b.CreatedAt,
			Acknowledged:  b.Acknowledged,
			Denied:        b.Denied,
			Locked:        b.IsLocked(now),
			ReplyCount:    len(b.Replies),
		}
		if n := len(b.Replies); n > 0 {
			c.Preview = "Reply: " + b.Replies[n-1].Content
			c.LastActivity = b.Replies[n-1].CreatedAt
		}
		out = append(out, c)
	}
	return out, nil
}

// Thread returns one of the viewer's own blunts with its replies.
func (s *service) Thread(ctx context.Context, viewer model.Viewer, id model.BluntID) (*model.Blunt, error) {
	if viewer.IsGuest {
		return nil, model.ErrorGuestForbidden
	}
	blunt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if blunt.SenderID != viewer.ID {
		return nil, model.ErrorBluntNotFound
	}
	return blunt, nil
}

func (s *service) Limit(ctx context.Context, viewer model.Viewer) (model.LimitStatus, error) {
	return s.limiter.CheckLimit(ctx, viewer.ID, viewer.IsGuest)
}
