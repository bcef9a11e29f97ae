package portal

import (
	"time"
)

// Vaccination categories.
const (
	CategoryCovid     = "covid"
	CategoryRoutine   = "routine"
	CategoryTravel    = "travel"
	CategoryEmergency = "emergency"
	CategoryOther     = "other"
)

const certificateGateway = "https://gateway.lighthouse.storage/ipfs/"

type Vaccination struct {
	ID               string  `json:"id"`
	VaccineName      string  `json:"vaccineName"`
	Manufacturer     string  `json:"manufacturer"`
	BatchNumber      string  `json:"batchNumber"`
	DateAdministered string  `json:"dateAdministered"`
	Location         string  `json:"location"`
	Administrator    string  `json:"administrator"`
	DoseNumber       int     `json:"doseNumber"`
	TotalDoses       int     `json:"totalDoses"`
	NextDueDate      *string `json:"nextDueDate"`
	CertificateURL   *string `json:"certificateUrl"`
	Verified         bool    `json:"verified"`
	Notes            string  `json:"notes"`
	Category         string  `json:"category"`
}

type VaccinationStats struct {
	Total      int            `json:"total"`
	Verified   int            `json:"verified"`
	Pending    int            `json:"pending"`
	Categories map[string]int `json:"categories"`
}

// VaccinationInput is the body of POST /patient/vaccinations.
type VaccinationInput struct {
	PatientID        string `json:"patientId"`
	VaccineName      string `json:"vaccineName"`
	Manufacturer     string `json:"manufacturer"`
	BatchNumber      string `json:"batchNumber"`
	DateAdministered string `json:"dateAdministered"`
	Location         string `json:"location"`
	Administrator    string `json:"administrator"`
	DoseNumber       int    `json:"doseNumber"`
	TotalDoses       int    `json:"totalDoses"`
	NextDueDate      string `json:"nextDueDate"`
	Notes            string `json:"notes"`
	Category         string `json:"category"`
}

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Date      time.Time `json:"date"`
	IsRead    bool      `json:"isRead"`
	Priority  string    `json:"priority"`
	Icon      string    `json:"icon"`
	ActionURL string    `json:"actionUrl"`
}

type NotificationStats struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	Read         int `json:"read"`
	HighPriority int `json:"highPriority"`
}

// NotificationUpdate is the body of PUT /patient/notifications. A nil IsRead
// marks the notification read.
type NotificationUpdate struct {
	ID     string `json:"id"`
	IsRead *bool  `json:"isRead"`
}

func strPtr(s string) *string { return &s }

func vaccinationSet() []*Vaccination {
	return []*Vaccination{
		{
			ID:               "1",
			VaccineName:      "COVID-19 (Pfizer)",
			Manufacturer:     "Pfizer-BioNTech",
			BatchNumber:      "FH3923",
			DateAdministered: "2024-01-15",
			Location:         "City Health Center",
			Administrator:    "Dr. Sarah Johnson",
			DoseNumber:       3,
			TotalDoses:       3,
			NextDueDate:      strPtr("2025-01-15"),
			CertificateURL:   strPtr(certificateGateway + "QmVaccine1"),
			Verified:         true,
			Notes:            "Booster dose administered. No adverse reactions.",
			Category:         CategoryCovid,
		},
		{
			ID:               "2",
			VaccineName:      "Influenza (Flu Shot)",
			Manufacturer:     "Sanofi Pasteur",
			BatchNumber:      "FL9887",
			DateAdministered: "2024-10-01",
			Location:         "Local Pharmacy",
			Administrator:    "Pharmacist Mike Chen",
			DoseNumber:       1,
			TotalDoses:       1,
			NextDueDate:      strPtr("2025-10-01"),
			CertificateURL:   strPtr(certificateGateway + "QmVaccine2"),
			Verified:         true,
			Notes:            "Annual flu vaccination.",
			Category:         CategoryRoutine,
		},
		{
			ID:               "3",
			VaccineName:      "Hepatitis B",
			Manufacturer:     "GlaxoSmithKline",
			BatchNumber:      "HB4521",
			DateAdministered: "2023-06-15",
			Location:         "Travel Clinic",
			Administrator:    "Dr. Priya Patel",
			DoseNumber:       3,
			TotalDoses:       3,
			CertificateURL:   strPtr(certificateGateway + "QmVaccine3"),
			Verified:         true,
			Notes:            "Final dose of Hepatitis B series. Travel vaccination completed.",
			Category:         CategoryTravel,
		},
		{
			ID:               "4",
			VaccineName:      "Tetanus-Diphtheria (Td)",
			Manufacturer:     "Sanofi Pasteur",
			BatchNumber:      "TD7734",
			DateAdministered: "2022-03-20",
			Location:         "Emergency Department",
			Administrator:    "Nurse Jennifer Lopez",
			DoseNumber:       1,
			TotalDoses:       1,
			NextDueDate:      strPtr("2032-03-20"),
			CertificateURL:   strPtr(certificateGateway + "QmVaccine4"),
			Verified:         true,
			Notes:            "Emergency tetanus shot after minor injury.",
			Category:         CategoryEmergency,
		},
	}
}

// notificationSet is dated relative to now.
func notificationSet(now time.Time) []*Notification {
	return []*Notification{
		{
			ID:        "1",
			Type:      "appointment",
			Title:     "🏥 Upcoming Doctor Appointment",
			Message:   "Your next visit with Dr. Smith is scheduled for tomorrow at 2:00 PM.",
			Date:      now.Add(24 * time.Hour),
			Priority:  "high",
			Icon:      "🩺",
			ActionURL: "/patient/reminders",
		},
		{
			ID:        "2",
			Type:      "medication",
			Title:     "💊 Medication Reminder",
			Message:   "Time to take your blood pressure medication.",
			Date:      now.Add(-2 * time.Hour),
			Priority:  "medium",
			Icon:      "⏰",
			ActionURL: "/patient/reminders",
		},
		{
			ID:        "3",
			Type:      "vaccination",
			Title:     "💉 Vaccination Due",
			Message:   "Your annual flu vaccination is due next week.",
			Date:      now.Add(-24 * time.Hour),
			IsRead:    true,
			Priority:  "medium",
			Icon:      "🩹",
			ActionURL: "/patient/vaccination",
		},
		{
			ID:        "4",
			Type:      "document",
			Title:     "📄 New Lab Report Available",
			Message:   "Your blood test results have been uploaded to your locker.",
			Date:      now.Add(-3 * 24 * time.Hour),
			IsRead:    true,
			Priority:  "low",
			Icon:      "📋",
			ActionURL: "/patient/locker",
		},
		{
			ID:        "5",
			Type:      "checkup",
			Title:     "🔬 Health Checkup Reminder",
			Message:   "Your quarterly health checkup is scheduled for next month.",
			Date:      now.Add(-7 * 24 * time.Hour),
			IsRead:    true,
			Priority:  "low",
			Icon:      "🏥",
			ActionURL: "/patient/reminders",
		},
	}
}
