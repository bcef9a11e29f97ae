package portal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

// Service serves the patient portal's vaccination and notification feeds.
// Both are fixed demonstration sets; writes are acknowledged but not stored.
type Service struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{logger: logger, now: time.Now}
}

// SetClock overrides the clock notifications are dated against.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// -- Vaccinations --

// Vaccinations returns the records in category (all when empty or "all"),
// newest first. Stats always cover the full set.
func (s *Service) Vaccinations(_ context.Context, category string) ([]*Vaccination, *VaccinationStats) {
	all := vaccinationSet()
	out := make([]*Vaccination, 0, len(all))
	for _, v := range all {
		if category == "" || category == "all" || v.Category == category {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAdministered > out[j].DateAdministered
	})

	stats := &VaccinationStats{
		Total: len(all),
		Categories: map[string]int{
			CategoryCovid: 0, CategoryRoutine: 0, CategoryTravel: 0, CategoryEmergency: 0, CategoryOther: 0,
		},
	}
	for _, v := range all {
		if v.Verified {
			stats.Verified++
		} else {
			stats.Pending++
		}
		if _, ok := stats.Categories[v.Category]; ok {
			stats.Categories[v.Category]++
		}
	}
	return out, stats
}

func (s *Service) CreateVaccination(_ context.Context, in *VaccinationInput) (*Vaccination, error) {
	if in.PatientID == "" || in.VaccineName == "" || in.DateAdministered == "" {
		return nil, httpx.Validation("Patient ID, vaccine name, and date administered are required")
	}
	v := &Vaccination{
		ID:               fmt.Sprintf("new_%d", s.now().UnixMilli()),
		VaccineName:      in.VaccineName,
		Manufacturer:     in.Manufacturer,
		BatchNumber:      in.BatchNumber,
		DateAdministered: in.DateAdministered,
		Location:         in.Location,
		Administrator:    in.Administrator,
		DoseNumber:       in.DoseNumber,
		TotalDoses:       in.TotalDoses,
		Notes:            in.Notes,
		Category:         in.Category,
	}
	if v.DoseNumber == 0 {
		v.DoseNumber = 1
	}
	if v.TotalDoses == 0 {
		v.TotalDoses = 1
	}
	if v.Category == "" {
		v.Category = CategoryOther
	}
	if in.NextDueDate != "" {
		v.NextDueDate = strPtr(in.NextDueDate)
	}
	s.logger.Info().Str("patient_id", in.PatientID).Str("vaccine", v.VaccineName).Msg("vaccination recorded")
	return v, nil
}

// UpdateVaccination echoes the update. fields must carry an id.
func (s *Service) UpdateVaccination(_ context.Context, fields map[string]interface{}) (map[string]interface{}, error) {
	if id, _ := fields["id"].(string); id == "" {
		return nil, httpx.Validation("Vaccination record ID is required")
	}
	return fields, nil
}

func (s *Service) DeleteVaccination(_ context.Context, id string) error {
	if id == "" {
		return httpx.Validation("Vaccination record ID is required")
	}
	return nil
}

// -- Notifications --

// Notifications returns the feed filtered by read state ("unread", "read",
// anything else for all), newest first.
func (s *Service) Notifications(_ context.Context, readState string) ([]*Notification, *NotificationStats) {
	all := notificationSet(s.now())
	out := make([]*Notification, 0, len(all))
	for _, n := range all {
		switch readState {
		case "unread":
			if n.IsRead {
				continue
			}
		case "read":
			if !n.IsRead {
				continue
			}
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	stats := &NotificationStats{Total: len(all)}
	for _, n := range all {
		if n.IsRead {
			stats.Read++
		} else {
			stats.Unread++
		}
		if n.Priority == "high" {
			stats.HighPriority++
		}
	}
	return out, stats
}

func (s *Service) MarkNotification(_ context.Context, in *NotificationUpdate) (*NotificationUpdate, error) {
	if in.ID == "" {
		return nil, httpx.Validation("Notification ID is required")
	}
	read := true
	if in.IsRead != nil {
		read = *in.IsRead
	}
	return &NotificationUpdate{ID: in.ID, IsRead: &read}, nil
}

func (s *Service) DeleteNotification(_ context.Context, id string) error {
	if id == "" {
		return httpx.Validation("Notification ID is required")
	}
	return nil
}
