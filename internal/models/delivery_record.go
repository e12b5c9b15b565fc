package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rg345/smtp-ui/internal/enum"
	"github.com/rg345/smtp-ui/internal/utils"
)

// DeliveryRecord is the durable trace of one dispatch attempt. It is created
// in pending state before the transport attempt and moved to exactly one
// terminal state afterwards; terminal records are immutable.
type DeliveryRecord struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant    string `gorm:"column:tenant;type:varchar(255);not null;index:delivery_records_tenant_created_idx,priority:1" json:"tenant"`
	ProfileID string `gorm:"column:profile_id;type:varchar(50);index;not null" json:"profileId"`

	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[];not null" json:"to"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"cc"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]" json:"bcc"`

	Subject     string         `gorm:"column:subject;type:varchar(1000);not null" json:"subject"`
	Body        string         `gorm:"column:body;type:text" json:"body,omitempty"`
	Attachments AttachmentList `gorm:"column:attachments;type:jsonb" json:"attachments"`

	Status       enum.DeliveryStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	ErrorMessage string              `gorm:"column:error_message;type:text" json:"errorMessage,omitempty"`
	SentAt       *time.Time          `gorm:"column:sent_at;type:timestamp" json:"sentAt,omitempty"`
	MessageID    string              `gorm:"column:message_id;type:varchar(255)" json:"messageId,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp;index:delivery_records_tenant_created_idx,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (DeliveryRecord) TableName() string {
	return "delivery_records"
}

func (r *DeliveryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIdWithPrefix("dlv", 24)
	}
	if r.Status == "" {
		r.Status = enum.DeliveryStatusPending
	}
	r.CreatedAt = utils.Now()
	return nil
}

// DeliveryRecordFilter narrows List queries; all set filters are ANDed.
type DeliveryRecordFilter struct {
	Status      *enum.DeliveryStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	Limit       int
}

// OutboundMessage is the transport-facing shape handed to an SMTP client.
type OutboundMessage struct {
	FromEmail    string
	FromName     string
	ToAddresses  []string
	CcAddresses  []string
	BccAddresses []string
	Subject      string
	BodyHTML     string
	Attachments  AttachmentList
}

// Recipients returns the full envelope recipient set.
func (m *OutboundMessage) Recipients() []string {
	recipients := make([]string, 0, len(m.ToAddresses)+len(m.CcAddresses)+len(m.BccAddresses))
	recipients = append(recipients, m.ToAddresses...)
	recipients = append(recipients, m.CcAddresses...)
	recipients = append(recipients, m.BccAddresses...)
	return utils.UniqueEmails(recipients)
}

// SenderHeader renders the From header value for the message.
func (m *OutboundMessage) SenderHeader() string {
	return utils.FormatSenderHeader(m.FromName, m.FromEmail)
}
