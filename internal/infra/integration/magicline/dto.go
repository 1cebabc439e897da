package magicline

import "time"

// MembershipFact: the newest active contract known for a member.
type MembershipFact struct {
	ExternalMemberID string
	PlanName         string
	StartDate        time.Time
}

// CourseFact: the newest qualifying course-package purchase (10er/16er).
type CourseFact struct {
	ExternalMemberID string
	PurchaseDate     time.Time
	InitialQuantity  int
	FacilityID       string
}

// --- wire types ---

type contractDTO struct {
	MemberID  string `json:"memberId"`
	PlanName  string `json:"planName"`
	StartDate string `json:"startDate"` // YYYY-MM-DD
	Status    string `json:"status"`
}

type contractResponse struct {
	Contract *contractDTO `json:"contract"`
}

type contractPage struct {
	Items   []contractDTO `json:"items"`
	HasNext bool          `json:"hasNext"`
}

type purchaseDTO struct {
	MemberID        string `json:"memberId"`
	ProductName     string `json:"productName"`
	ProductType     string `json:"productType"` // COURSE_CARD, TRIAL_CLASS, ...
	InitialQuantity int    `json:"initialQuantity"`
	PurchaseDate    string `json:"purchaseDate"` // YYYY-MM-DD
	FacilityID      string `json:"facilityId"`
}

type purchaseResponse struct {
	Purchases []purchaseDTO `json:"purchases"`
}

type purchasePage struct {
	Items   []purchaseDTO `json:"items"`
	HasNext bool          `json:"hasNext"`
}
