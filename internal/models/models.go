package models

import (
	"fmt"
	"time"
)

// VisitorEvent is one tracked page view as stored by the backend.
type VisitorEvent struct {
	ID           string    `json:"_id"`
	IP           string    `json:"ip"`
	Device       string    `json:"device"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	Page         string    `json:"page"`
	Referrer     string    `json:"referrer"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	VisitorToken *string   `json:"visitorToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Location renders "city, country", omitting an unknown city.
func (v VisitorEvent) Location() string {
	country := v.Country
	if country == "" {
		country = "Unknown"
	}
	if v.City != "" && v.City != "Unknown" {
		return v.City + ", " + country
	}
	return country
}

type BlockedEntry struct {
	ID           string    `json:"_id"`
	IP           string    `json:"ip"`
	Reason       string    `json:"reason"`
	RequestCount int       `json:"requestCount"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

type EmailStatus string

const (
	EmailNew       EmailStatus = "new"
	EmailContacted EmailStatus = "contacted"
	EmailArchived  EmailStatus = "archived"
)

// EmailStatuses lists every status in display order. Any status may move to any other.
var EmailStatuses = []EmailStatus{EmailNew, EmailContacted, EmailArchived}

func ParseEmailStatus(s string) (EmailStatus, error) {
	for _, st := range EmailStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown email status %q", s)
}

// EmailFilter is a status filter for the email list; "all" disables it.
type EmailFilter string

const EmailFilterAll EmailFilter = "all"

func ParseEmailFilter(s string) (EmailFilter, error) {
	if s == "" || s == string(EmailFilterAll) {
		return EmailFilterAll, nil
	}
	st, err := ParseEmailStatus(s)
	if err != nil {
		return "", err
	}
	return EmailFilter(st), nil
}

type EmailEntry struct {
	ID        string      `json:"_id"`
	Email     string      `json:"email"`
	Source    string      `json:"source"`
	Status    EmailStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type EmailStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Contacted int `json:"contacted"`
	Archived  int `json:"archived"`
}

type VisitorStats struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
	Today  int `json:"today"`
}

type BlockedStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type ListMeta struct {
	Pages int `json:"pages"`
}

// TrackRequest is the beacon payload. VisitorToken is null on a first visit.
type TrackRequest struct {
	Page         string  `json:"page"`
	Referrer     string  `json:"referrer"`
	Device       string  `json:"device"`
	Browser      string  `json:"browser"`
	OS           string  `json:"os"`
	VisitorToken *string `json:"visitorToken"`
	ClientIP     string  `json:"clientIP"`
}

type TrackResponse struct {
	Token string `json:"token,omitempty"`
}

type Admin struct {
	Email string `json:"email"`
}

type Subscription struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

type OrderRequest struct {
	Amount  int    `json:"amount" form:"amount"`
	Name    string `json:"name,omitempty" form:"name"`
	Email   string `json:"email,omitempty" form:"email"`
	Message string `json:"message,omitempty" form:"message"`
}

type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// PaymentSignature carries the three fields the vendor signs on a completed payment.
type PaymentSignature struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature"`
}

type Receipt struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
	Name   string `json:"name"`
}

type DonationStats struct {
	Total int `json:"total"`
	Count int `json:"count"`
}

type Supporter struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnonymousSupporter stands in for donations made without a name.
const AnonymousSupporter = "Anonymous"

func (s Supporter) DisplayName() string {
	if s.Name == "" {
		return AnonymousSupporter
	}
	return s.Name
}

// TimeAgo renders the distance from t to now as the supporter list shows it.
func TimeAgo(now, t time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// DonationSnapshot is the cached pair shown by the donate widget.
type DonationSnapshot struct {
	Stats      DonationStats `json:"stats"`
	Supporters []Supporter   `json:"supporters"`
	FetchedAt  time.Time     `json:"fetched_at"`
}
