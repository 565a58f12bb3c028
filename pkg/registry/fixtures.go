package registry

import "time"

// DemoBandID is the user id encoded on the demo emergency band.
const DemoBandID = "user123"

func fixtureZones() []Zone {
	return []Zone{
		{
			ID: "1", Name: "Main Ghat Area", Level: CrowdHigh, Occupancy: 85,
			Coordinates: []Coordinates{
				{Lat: 22.7196, Lng: 75.8577},
				{Lat: 22.7206, Lng: 75.8587},
				{Lat: 22.7196, Lng: 75.8597},
				{Lat: 22.7186, Lng: 75.8587},
			},
		},
		{
			ID: "2", Name: "Food Court", Level: CrowdMedium, Occupancy: 60,
			Coordinates: []Coordinates{
				{Lat: 22.7176, Lng: 75.8567},
				{Lat: 22.7186, Lng: 75.8577},
				{Lat: 22.7176, Lng: 75.8587},
				{Lat: 22.7166, Lng: 75.8577},
			},
		},
		{
			ID: "3", Name: "Parking Area", Level: CrowdLow, Occupancy: 25,
			Coordinates: []Coordinates{
				{Lat: 22.7156, Lng: 75.8547},
				{Lat: 22.7166, Lng: 75.8557},
				{Lat: 22.7156, Lng: 75.8567},
				{Lat: 22.7146, Lng: 75.8557},
			},
		},
	}
}

func fixtureAlerts(now time.Time) []Alert {
	return []Alert{
		{ID: "1", Type: "crowd", Severity: "warning", Timestamp: now.Add(-10 * time.Minute),
			Message: "High crowd density detected at Main Ghat. Consider alternative routes."},
		{ID: "2", Type: "health", Severity: "info", Timestamp: now.Add(-30 * time.Minute),
			Message: "Medical assistance station available at Food Court entrance."},
		{ID: "3", Type: "weather", Severity: "warning", Timestamp: now.Add(-45 * time.Minute),
			Message: "Temperature rising. Stay hydrated and seek shade."},
	}
}

func fixtureIncidents(now time.Time) []Incident {
	return []Incident{
		{
			ID: "1", Type: "crowd_surge", Status: IncidentInvestigating,
			Description:  "Sudden crowd movement causing difficulty in movement",
			Location:     Coordinates{Lat: 22.7196, Lng: 75.8577},
			LocationName: "Main Ghat Area",
			ReporterName: "Rajesh Kumar", ReporterPhone: "+91-9876543210",
			Timestamp: now.Add(-20 * time.Minute),
		},
		{
			ID: "2", Type: "sanitation", Status: IncidentResolved,
			Description:  "Overflowing dustbin needs immediate attention",
			Location:     Coordinates{Lat: 22.7176, Lng: 75.8567},
			LocationName: "Food Court",
			ReporterName: "Priya Sharma", ReporterPhone: "+91-9876543211",
			Timestamp: now.Add(-60 * time.Minute),
		},
	}
}

func fixtureProfiles() map[string]Profile {
	return map[string]Profile{
		DemoBandID: {
			ID:                DemoBandID,
			Name:              "Amit Patel",
			Age:               45,
			Phone:             "+91-9876543212",
			EmergencyContact:  "+91-9876543213",
			MedicalConditions: []string{"Diabetes", "High BP"},
			Address:           "Ahmedabad, Gujarat",
		},
	}
}

func fixtureSOSAlerts(now time.Time) []SOSAlert {
	return []SOSAlert{
		{
			ID: "1", UserID: DemoBandID, UserName: "Amit Patel",
			UserPhone: "+91-9876543212", EmergencyContact: "+91-9876543213",
			Location:  Coordinates{Lat: 22.7186, Lng: 75.8587},
			Timestamp: now.Add(-5 * time.Minute),
			Status:    SOSActive,
		},
	}
}

func fixtureDonations(now time.Time) []Donation {
	return []Donation{
		{ID: "1", DonorName: "Vikram Singh", Amount: 1000, MobileNumber: "+91-9876543214",
			Purpose: "general", Timestamp: now.Add(-120 * time.Minute), Status: "completed"},
		{ID: "2", DonorName: "Meera Devi", Amount: 500, MobileNumber: "+91-9876543215",
			Purpose: "food", Timestamp: now.Add(-180 * time.Minute), Status: "completed"},
	}
}

func fixtureSevaRequests(now time.Time) []SevaRequest {
	return []SevaRequest{
		{ID: "1", Type: "darshan", RequesterName: "Sunita Gupta", MobileNumber: "+91-9876543216",
			Description: "Request for VIP darshan booking", PreferredTime: "06:00 AM",
			Timestamp: now.Add(-240 * time.Minute), Status: "approved"},
	}
}

func fixtureBins(now time.Time) []Bin {
	return []Bin{
		{ID: "1", Location: "Main Ghat - North", Coordinates: Coordinates{Lat: 22.7200, Lng: 75.8580},
			FillLevel: 85, LastEmptied: now.Add(-4 * time.Hour), BatteryLevel: 65, Status: "warning"},
		{ID: "2", Location: "Food Court - Central", Coordinates: Coordinates{Lat: 22.7180, Lng: 75.8570},
			FillLevel: 45, LastEmptied: now.Add(-2 * time.Hour), BatteryLevel: 88, Status: "normal"},
		{ID: "3", Location: "Parking Area - East", Coordinates: Coordinates{Lat: 22.7160, Lng: 75.8550},
			FillLevel: 95, LastEmptied: now.Add(-6 * time.Hour), BatteryLevel: 22, Status: "critical"},
	}
}
