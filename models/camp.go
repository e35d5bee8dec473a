package models

import "time"

type CampStatus string

const (
	CampUpcoming  CampStatus = "Upcoming"
	CampOngoing   CampStatus = "Ongoing"
	CampCompleted CampStatus = "Completed"
	CampCancelled CampStatus = "Cancelled"
)

func (s CampStatus) Valid() bool {
	switch s {
	case CampUpcoming, CampOngoing, CampCompleted, CampCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a camp may move from s to next.
func (s CampStatus) CanTransition(next CampStatus) bool {
	switch s {
	case CampUpcoming:
		return next == CampOngoing || next == CampCancelled
	case CampOngoing:
		return next == CampCompleted || next == CampCancelled
	default:
		return false
	}
}

type CampLocation struct {
	Venue   string `json:"venue" bson:"venue"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Pincode string `json:"pincode,omitempty" bson:"pincode,omitempty"`
}

type CampTime struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

// BloodCamp is a donation event hosted by one facility.
// ActualDonors counts held seats: Registered plus Donated registrations.
type BloodCamp struct {
	ID             string       `json:"_id" bson:"_id"`
	Hospital       string       `json:"-" bson:"hospital"`
	Title          string       `json:"title" bson:"title"`
	Description    string       `json:"description,omitempty" bson:"description,omitempty"`
	Location       CampLocation `json:"location" bson:"location"`
	Date           time.Time    `json:"date" bson:"date"`
	Time           CampTime     `json:"time" bson:"time"`
	ExpectedDonors int          `json:"expectedDonors" bson:"expectedDonors"`
	ActualDonors   int          `json:"actualDonors" bson:"actualDonors"`
	Status         CampStatus   `json:"status" bson:"status"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// SlotsAvailable is expectedDonors minus actualDonors, never negative.
func (c BloodCamp) SlotsAvailable() int {
	if n := c.ExpectedDonors - c.ActualDonors; n > 0 {
		return n
	}
	return 0
}

// OpenForRegistration reports whether a donor could book a seat right now.
func (c BloodCamp) OpenForRegistration() bool {
	return c.Status == CampUpcoming && c.SlotsAvailable() > 0
}

// HospitalRef is the populated owner shown alongside a camp.
type HospitalRef struct {
	ID      string  `json:"_id" bson:"_id"`
	Name    string  `json:"name" bson:"name"`
	Phone   string  `json:"phone,omitempty" bson:"phone,omitempty"`
	Address Address `json:"address" bson:"address"`
}

// CampView is the JSON shape of a camp with its owner populated.
type CampView struct {
	BloodCamp      `bson:",inline"`
	Hospital       HospitalRef `json:"hospital" bson:"-"`
	SlotsAvailable int         `json:"slotsAvailable" bson:"-"`
}

// NewCampView populates a camp for display.
func NewCampView(c BloodCamp, owner HospitalRef) CampView {
	if owner.ID == "" {
		owner.ID = c.Hospital
	}
	return CampView{BloodCamp: c, Hospital: owner, SlotsAvailable: c.SlotsAvailable()}
}
