package models

import "time"

type BloodGroup string

// BloodGroups lists the eight ABO/Rh groups in display order.
var BloodGroups = []BloodGroup{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func (g BloodGroup) Valid() bool {
	for _, b := range BloodGroups {
		if g == b {
			return true
		}
	}
	return false
}

type BloodSource string

const (
	SourceManual   BloodSource = "manual"
	SourceCamp     BloodSource = "camp"
	SourceTransfer BloodSource = "transfer"
)

// WholeBloodShelfLife is how long a camp donation stays usable.
const WholeBloodShelfLife = 42 * 24 * time.Hour

// UnitsPerDonation is the stock one Donated registration adds. Quantity is
// always counted in units; the collected volume is kept in VolumeML.
const UnitsPerDonation = 1

// Blood is one inventory record held by a blood lab or a hospital.
type Blood struct {
	ID           string      `json:"_id" bson:"_id"`
	BloodGroup   BloodGroup  `json:"bloodGroup" bson:"bloodGroup"`
	Quantity     int         `json:"quantity" bson:"quantity"`
	VolumeML     int         `json:"volumeML,omitempty" bson:"volumeML,omitempty"`
	ExpiryDate   time.Time   `json:"expiryDate" bson:"expiryDate"`
	BloodLab     string      `json:"bloodLab,omitempty" bson:"bloodLab,omitempty"`
	Hospital     string      `json:"hospital,omitempty" bson:"hospital,omitempty"`
	Source       BloodSource `json:"source" bson:"source"`
	Registration string      `json:"registration,omitempty" bson:"registration,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt" bson:"updatedAt"`
}

func (b Blood) Expired(now time.Time) bool {
	return !b.ExpiryDate.After(now)
}

// Owner is the facility holding the record.
func (b Blood) Owner() string {
	if b.BloodLab != "" {
		return b.BloodLab
	}
	return b.Hospital
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestAccepted  RequestStatus = "Accepted"
	RequestRejected  RequestStatus = "Rejected"
	RequestFulfilled RequestStatus = "Fulfilled"
)

// CanTransition reports whether a lab may move a request from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestAccepted || next == RequestRejected
	case RequestAccepted:
		return next == RequestFulfilled || next == RequestRejected
	default:
		return false
	}
}

// BloodRequest is a hospital asking a blood lab for units of one group.
type BloodRequest struct {
	ID         string        `json:"_id" bson:"_id"`
	Hospital   string        `json:"hospital" bson:"hospital"`
	BloodLab   string        `json:"bloodLab" bson:"bloodLab"`
	BloodGroup BloodGroup    `json:"bloodGroup" bson:"bloodGroup"`
	Units      int           `json:"units" bson:"units"`
	Urgency    string        `json:"urgency" bson:"urgency"`
	Notes      string        `json:"notes,omitempty" bson:"notes,omitempty"`
	Status     RequestStatus `json:"status" bson:"status"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updatedAt"`

	HospitalName string `json:"hospitalName,omitempty" bson:"-"`
	BloodLabName string `json:"bloodLabName,omitempty" bson:"-"`
}
