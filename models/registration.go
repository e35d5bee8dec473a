package models

import "time"

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "Registered"
	RegistrationDonated    RegistrationStatus = "Donated"
	RegistrationNoShow     RegistrationStatus = "No-Show"
)

// DefaultQuantityML is a standard whole-blood unit.
const DefaultQuantityML = 350

// MaxQuantityML bounds a single recorded donation.
const MaxQuantityML = 1000

func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationDonated || s == RegistrationNoShow
}

// CanTransition enforces Registered -> {Donated, No-Show}; both are terminal.
func (s RegistrationStatus) CanTransition(next RegistrationStatus) bool {
	return s == RegistrationRegistered && next.Terminal()
}

// HoldsSeat reports whether the registration counts against camp capacity.
func (s RegistrationStatus) HoldsSeat() bool {
	return s == RegistrationRegistered || s == RegistrationDonated
}

type CampRegistration struct {
	ID           string             `json:"_id" bson:"_id"`
	Donor        string             `json:"-" bson:"donor"`
	Camp         string             `json:"-" bson:"camp"`
	TimeSlot     string             `json:"timeSlot" bson:"timeSlot"`
	QuantityML   int                `json:"quantityML" bson:"quantityML"`
	DonationDate time.Time          `json:"donationDate" bson:"donationDate"`
	Status       RegistrationStatus `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DonorRef is the donor as shown to facility staff.
type DonorRef struct {
	ID         string     `json:"_id" bson:"_id"`
	FullName   string     `json:"fullName" bson:"fullName"`
	Email      string     `json:"email" bson:"email"`
	Phone      string     `json:"phone,omitempty" bson:"phone,omitempty"`
	BloodGroup BloodGroup `json:"bloodGroup" bson:"bloodGroup"`
}

// CampRef is the camp as shown in a donor's registration list.
type CampRef struct {
	ID           string       `json:"_id"`
	Title        string       `json:"title"`
	Date         time.Time    `json:"date"`
	Time         CampTime     `json:"time"`
	Location     CampLocation `json:"location"`
	Status       CampStatus   `json:"status"`
	HospitalName string       `json:"hospitalName,omitempty"`
}

// RegistrationView is a registration with donor and camp populated.
type RegistrationView struct {
	CampRegistration
	Donor DonorRef `json:"donor"`
	Camp  CampRef  `json:"camp"`
}
