package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/rg345/smtp-ui/internal/utils"
)

// SmtpProfile holds one tenant-owned outbound transport configuration,
// credentials included. Only the dispatch path may consume the full struct;
// read APIs work with SmtpProfileView.
type SmtpProfile struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant    string    `gorm:"column:tenant;type:varchar(255);not null;index;uniqueIndex:smtp_profiles_tenant_name_idx" json:"tenant"`
	Name      string    `gorm:"column:name;type:varchar(255);not null;uniqueIndex:smtp_profiles_tenant_name_idx" json:"name"`
	Host      string    `gorm:"column:host;type:varchar(255);not null" json:"host"`
	Port      int       `gorm:"column:port;not null" json:"port"`
	Secure    bool      `gorm:"column:secure;not null;default:false" json:"secure"`
	Username  string    `gorm:"column:username;type:varchar(255);not null" json:"username"`
	Password  string    `gorm:"column:password;type:varchar(255);not null" json:"password"`
	FromEmail string    `gorm:"column:from_email;type:varchar(255);not null" json:"fromEmail"`
	FromName  string    `gorm:"column:from_name;type:varchar(255)" json:"fromName"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SmtpProfile) TableName() string {
	return "smtp_profiles"
}

func (p *SmtpProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIdWithPrefix("smtp", 16)
	}
	return nil
}

// SenderHeader renders the From header for messages sent through this profile.
func (p *SmtpProfile) SenderHeader() string {
	return utils.FormatSenderHeader(p.FromName, p.FromEmail)
}

// SmtpProfileView is the secret-free read shape of a profile. Every read path
// outside the dispatch engine returns this type, so credentials cannot leak
// through a newly added endpoint.
type SmtpProfileView struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Secure    bool      `json:"secure"`
	FromEmail string    `json:"fromEmail"`
	FromName  string    `json:"fromName"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *SmtpProfile) View() *SmtpProfileView {
	return &SmtpProfileView{
		ID:        p.ID,
		Tenant:    p.Tenant,
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		Secure:    p.Secure,
		FromEmail: p.FromEmail,
		FromName:  p.FromName,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// SmtpProfileUpdate carries the allow-listed mutable fields. Nil means leave
// the field untouched.
type SmtpProfileUpdate struct {
	Name      *string `json:"name"`
	Host      *string `json:"host"`
	Port      *int    `json:"port"`
	Secure    *bool   `json:"secure"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	FromEmail *string `json:"fromEmail"`
	FromName  *string `json:"fromName"`
	IsActive  *bool   `json:"isActive"`
}

// Apply copies the present fields onto the profile.
func (u *SmtpProfileUpdate) Apply(p *SmtpProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Host != nil {
		p.Host = *u.Host
	}
	if u.Port != nil {
		p.Port = *u.Port
	}
	if u.Secure != nil {
		p.Secure = *u.Secure
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.Password != nil {
		p.Password = *u.Password
	}
	if u.FromEmail != nil {
		p.FromEmail = *u.FromEmail
	}
	if u.FromName != nil {
		p.FromName = *u.FromName
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
}
