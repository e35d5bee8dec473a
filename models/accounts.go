package models

import "time"

type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Pincode string `json:"pincode,omitempty" bson:"pincode,omitempty"`
}

type Donor struct {
	ID               string     `json:"_id" bson:"_id"`
	FullName         string     `json:"fullName" bson:"fullName"`
	Email            string     `json:"email" bson:"email"`
	PasswordHash     string     `json:"-" bson:"passwordHash"`
	Phone            string     `json:"phone,omitempty" bson:"phone,omitempty"`
	BloodGroup       BloodGroup `json:"bloodGroup" bson:"bloodGroup"`
	Gender           string     `json:"gender,omitempty" bson:"gender,omitempty"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Address          Address    `json:"address" bson:"address"`
	LastDonationDate *time.Time `json:"lastDonationDate,omitempty" bson:"lastDonationDate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt"`
}

type FacilityType string

const (
	FacilityHospital FacilityType = "hospital"
	FacilityBloodLab FacilityType = "blood-lab"
)

func (t FacilityType) Valid() bool {
	return t == FacilityHospital || t == FacilityBloodLab
}

type FacilityStatus string

const (
	FacilityPending  FacilityStatus = "pending"
	FacilityApproved FacilityStatus = "approved"
	FacilityRejected FacilityStatus = "rejected"
)

func (s FacilityStatus) Valid() bool {
	return s == FacilityPending || s == FacilityApproved || s == FacilityRejected
}

// CanReview reports whether an admin may move a facility from s to next.
// Pending facilities are decided once; decided ones may be flipped on re-review.
func (s FacilityStatus) CanReview(next FacilityStatus) bool {
	switch next {
	case FacilityApproved, FacilityRejected:
		return s != next
	default:
		return false
	}
}

type Facility struct {
	ID                 string         `json:"_id" bson:"_id"`
	Name               string         `json:"name" bson:"name"`
	Email              string         `json:"email" bson:"email"`
	PasswordHash       string         `json:"-" bson:"passwordHash"`
	FacilityType       FacilityType   `json:"facilityType" bson:"facilityType"`
	RegistrationNumber string         `json:"registrationNumber,omitempty" bson:"registrationNumber,omitempty"`
	Phone              string         `json:"phone,omitempty" bson:"phone,omitempty"`
	Address            Address        `json:"address" bson:"address"`
	OperatingHours     string         `json:"operatingHours,omitempty" bson:"operatingHours,omitempty"`
	Logo               string         `json:"logo,omitempty" bson:"logo,omitempty"`
	Status             FacilityStatus `json:"status" bson:"status"`
	CreatedAt          time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type Admin struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
