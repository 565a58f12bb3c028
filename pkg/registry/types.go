package registry

import "time"

type Coordinates struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type CrowdLevel string

const (
	CrowdLow      CrowdLevel = "low"
	CrowdMedium   CrowdLevel = "medium"
	CrowdHigh     CrowdLevel = "high"
	CrowdCritical CrowdLevel = "critical"
)

type Zone struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Level       CrowdLevel    `json:"level"`
	Occupancy   int           `json:"occupancy"`
	Coordinates []Coordinates `json:"coordinates"`
}

type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

type IncidentStatus string

const (
	IncidentPending       IncidentStatus = "pending"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentPending, IncidentInvestigating, IncidentResolved:
		return true
	default:
		return false
	}
}

type Incident struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Description   string         `json:"description"`
	Location      Coordinates    `json:"location"`
	LocationName  string         `json:"location_name"`
	Images        []string       `json:"images"`
	ReporterName  string         `json:"reporter_name"`
	ReporterPhone string         `json:"reporter_phone"`
	Timestamp     time.Time      `json:"timestamp"`
	Status        IncidentStatus `json:"status"`
}

// IncidentRequest is the public incident form. At most three image names
// may be attached.
type IncidentRequest struct {
	Type          string       `json:"type" validate:"required,oneof=crowd_surge missing_person sanitation medical other"`
	Description   string       `json:"description" validate:"required"`
	Location      *Coordinates `json:"location" validate:"required"`
	LocationName  string       `json:"location_name" validate:"required"`
	Images        []string     `json:"images" validate:"max=3,dive,required"`
	ReporterName  string       `json:"reporter_name" validate:"required"`
	ReporterPhone string       `json:"reporter_phone" validate:"required"`
}

// Profile is the record behind an emergency wrist band.
type Profile struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Age               int      `json:"age"`
	Phone             string   `json:"phone"`
	EmergencyContact  string   `json:"emergency_contact"`
	MedicalConditions []string `json:"medical_conditions"`
	Address           string   `json:"address"`
}

type SOSStatus string

const (
	SOSActive    SOSStatus = "active"
	SOSResponded SOSStatus = "responded"
	SOSResolved  SOSStatus = "resolved"
)

func (s SOSStatus) Valid() bool {
	switch s {
	case SOSActive, SOSResponded, SOSResolved:
		return true
	default:
		return false
	}
}

type SOSAlert struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	UserName         string      `json:"user_name"`
	UserPhone        string      `json:"user_phone"`
	EmergencyContact string      `json:"emergency_contact"`
	Location         Coordinates `json:"location"`
	Timestamp        time.Time   `json:"timestamp"`
	Status           SOSStatus   `json:"status"`
}

type Donation struct {
	ID           string    `json:"id"`
	DonorName    string    `json:"donor_name"`
	Amount       float64   `json:"amount"`
	MobileNumber string    `json:"mobile_number"`
	Purpose      string    `json:"purpose"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
}

type DonationRequest struct {
	DonorName    string  `json:"donor_name" validate:"required"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	MobileNumber string  `json:"mobile_number" validate:"required"`
	Purpose      string  `json:"purpose" validate:"required,oneof=general food medical sanitation"`
}

type SevaRequest struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	RequesterName string    `json:"requester_name"`
	MobileNumber  string    `json:"mobile_number"`
	Description   string    `json:"description"`
	PreferredTime string    `json:"preferred_time,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

type SevaInput struct {
	Type          string `json:"type" validate:"required,oneof=darshan lost_found medical_help volunteer"`
	RequesterName string `json:"requester_name" validate:"required"`
	MobileNumber  string `json:"mobile_number" validate:"required"`
	Description   string `json:"description" validate:"required"`
	PreferredTime string `json:"preferred_time"`
}

type Bin struct {
	ID           string      `json:"id"`
	Location     string      `json:"location"`
	Coordinates  Coordinates `json:"coordinates"`
	FillLevel    float64     `json:"fill_level"`
	LastEmptied  time.Time   `json:"last_emptied"`
	BatteryLevel float64     `json:"battery_level"`
	Status       string      `json:"status"`
}

// Summary holds the counters of the admin dashboard.
type Summary struct {
	OpenIncidents  int      `json:"open_incidents"`
	ActiveSOS      int      `json:"active_sos"`
	DonationTotal  float64  `json:"donation_total"`
	DonationCount  int      `json:"donation_count"`
	PendingSeva    int      `json:"pending_seva"`
	CriticalBins   int      `json:"critical_bins"`
	HighCrowdZones []string `json:"high_crowd_zones"`
}
