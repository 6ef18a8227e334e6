package domain

import (
	"fmt"
	"time"
)

// RequestStatus enumerates the two lifecycle states of a request.
type RequestStatus string

const (
	RequestStatusOngoing   RequestStatus = "ongoing"
	RequestStatusCompleted RequestStatus = "completed"
)

// RequestPriority enumerates SLA urgency tiers.
type RequestPriority string

const (
	RequestPriorityMedium RequestPriority = "medium"
	RequestPriorityHigh   RequestPriority = "high"
)

// EngagementType classifies what kind of work is being requested.
type EngagementType string

const (
	EngagementOpportunity EngagementType = "opportunity"
	EngagementTraining    EngagementType = "training"
	EngagementSupport     EngagementType = "support"
	EngagementInquiry     EngagementType = "inquiry"
)

// ProductCategory classifies the product line a request targets.
type ProductCategory string

const (
	ProductAzure   ProductCategory = "Azure"
	ProductM365    ProductCategory = "M365"
	ProductVMware  ProductCategory = "VMware"
	ProductOmnissa ProductCategory = "Omnissa"
	ProductHybrid  ProductCategory = "Hybrid"
	ProductOthers  ProductCategory = "Others"
)

// MaxOngoingPerEngineer caps concurrent workload per engineer.
const MaxOngoingPerEngineer = 5

// Request is the central aggregate of the portal: a service request filed
// by an account manager against a customer account.
type Request struct {
	ID             int64
	ReferenceCode  string
	RequestorID    int64
	AccountID      int64
	AccountName    string
	AccountManager string
	Product        ProductCategory
	Priority       RequestPriority
	Engagement     EngagementType
	StartDate      time.Time
	DueDate        *time.Time
	EndDate        *time.Time
	EngineerID     *int64
	Status         RequestStatus
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReferenceCodeFor derives the immutable reference code from the numeric id.
func ReferenceCodeFor(id int64) string {
	return fmt.Sprintf("REQ-%05d", id)
}

// IsOverdue reports whether the request has missed its SLA target as of
// the given day. Completed requests are never overdue.
func (r *Request) IsOverdue(today time.Time) bool {
	if r.Status == RequestStatusCompleted || r.DueDate == nil {
		return false
	}
	return r.DueDate.Before(truncateToDay(today))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
