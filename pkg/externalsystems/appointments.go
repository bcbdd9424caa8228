package externalsystems

import (
	"fmt"
	"sync"
	"time"
)

// AppointmentInfo holds the details of one appointment
type AppointmentInfo struct {
	AppointmentID string `json:"appointment_id"`
	UserEmail     string `json:"user_email"`
	UserPhone     string `json:"user_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ServiceType   string `json:"service_type"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// AppointmentsAPI manages appointment scheduling and queries
type AppointmentsAPI struct {
	mu           sync.Mutex
	appointments map[string]*AppointmentInfo
	emailIndex   map[string][]string
	phoneIndex   map[string][]string
}

// NewAppointmentsAPI creates an AppointmentsAPI seeded with mock appointments
func NewAppointmentsAPI() *AppointmentsAPI {
	api := &AppointmentsAPI{
		appointments: map[string]*AppointmentInfo{
			"APT-001": {
				AppointmentID: "APT-001",
				UserEmail:     "john.doe@example.com",
				UserPhone:     "+1-555-0101",
				Date:          "2025-12-05",
				Time:          "10:00",
				ServiceType:   "Consultation",
				Status:        "scheduled",
				CreatedAt:     "2025-11-25T09:00:00",
			},
			"APT-002": {
				AppointmentID: "APT-002",
				UserEmail:     "jane.smith@example.com",
				UserPhone:     "+1-555-0102",
				Date:          "2025-12-06",
				Time:          "14:30",
				ServiceType:   "Technical Support",
				Status:        "confirmed",
				CreatedAt:     "2025-11-26T11:30:00",
			},
			"APT-003": {
				AppointmentID: "APT-003",
				UserEmail:     "john.doe@example.com",
				UserPhone:     "+1-555-0101",
				Date:          "2025-12-10",
				Time:          "09:00",
				ServiceType:   "Follow-up",
				Status:        "scheduled",
				CreatedAt:     "2025-11-28T15:20:00",
			},
			"APT-004": {
				AppointmentID: "APT-004",
				UserEmail:     "bob.wilson@example.com",
				UserPhone:     "+1-555-0103",
				Date:          "2025-12-03",
				Time:          "16:00",
				ServiceType:   "Consultation",
				Status:        "completed",
				CreatedAt:     "2025-11-20T10:00:00",
			},
			"APT-005": {
				AppointmentID: "APT-005",
				UserEmail:     "alice.brown@example.com",
				UserPhone:     "+1-555-0104",
				Date:          "2025-12-08",
				Time:          "11:00",
				ServiceType:   "Product Demo",
				Status:        "scheduled",
				CreatedAt:     "2025-11-29T13:45:00",
			},
		},
		emailIndex: make(map[string][]string),
		phoneIndex: make(map[string][]string),
	}
	api.rebuildIndexes()
	return api
}

// rebuildIndexes must be called with the lock held (or before the API is shared)
func (api *AppointmentsAPI) rebuildIndexes() {
	api.emailIndex = make(map[string][]string)
	api.phoneIndex = make(map[string][]string)

	for id, apt := range api.appointments {
		api.emailIndex[apt.UserEmail] = append(api.emailIndex[apt.UserEmail], id)
		api.phoneIndex[apt.UserPhone] = append(api.phoneIndex[apt.UserPhone], id)
	}
}

// GetAppointment retrieves appointment details by id
func (api *AppointmentsAPI) GetAppointment(appointmentID string) (AppointmentInfo, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()

	apt, ok := api.appointments[appointmentID]
	if !ok {
		return AppointmentInfo{}, false
	}
	return *apt, true
}

// GetAppointmentsByEmail retrieves all appointments for a user by email
func (api *AppointmentsAPI) GetAppointmentsByEmail(email string) []AppointmentInfo {
	api.mu.Lock()
	defer api.mu.Unlock()

	return api.appointmentsByEmailLocked(email)
}

func (api *AppointmentsAPI) appointmentsByEmailLocked(email string) []AppointmentInfo {
	out := []AppointmentInfo{}
	for _, id := range api.emailIndex[email] {
		if apt, ok := api.appointments[id]; ok {
			out = append(out, *apt)
		}
	}
	return out
}

// GetAppointmentsByPhone retrieves all appointments for a user by phone
func (api *AppointmentsAPI) GetAppointmentsByPhone(phone string) []AppointmentInfo {
	api.mu.Lock()
	defer api.mu.Unlock()

	out := []AppointmentInfo{}
	for _, id := range api.phoneIndex[phone] {
		if apt, ok := api.appointments[id]; ok {
			out = append(out, *apt)
		}
	}
	return out
}

// ScheduleAppointment books a new appointment. A user cannot hold two active
// appointments at the same date and time.
func (api *AppointmentsAPI) ScheduleAppointment(email, phone, date, timeOfDay, serviceType string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	for _, apt := range api.appointmentsByEmailLocked(email) {
		if apt.Date == date && apt.Time == timeOfDay && (apt.Status == "scheduled" || apt.Status == "confirmed") {
			return ActionResult{
				Message: fmt.Sprintf("You already have an appointment at %s on %s", timeOfDay, date),
			}
		}
	}

	newID := fmt.Sprintf("APT-%03d", len(api.appointments)+1)
	api.appointments[newID] = &AppointmentInfo{
		AppointmentID: newID,
		UserEmail:     email,
		UserPhone:     phone,
		Date:          date,
		Time:          timeOfDay,
		ServiceType:   serviceType,
		Status:        "scheduled",
		CreatedAt:     time.Now().Format("2006-01-02T15:04:05"),
	}
	api.rebuildIndexes()

	return ActionResult{
		Success:       true,
		Message:       fmt.Sprintf("Appointment scheduled for %s at %s", date, timeOfDay),
		AppointmentID: newID,
	}
}

// RescheduleAppointment moves an existing appointment to a new date and time
func (api *AppointmentsAPI) RescheduleAppointment(appointmentID, newDate, newTime string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	apt, ok := api.appointments[appointmentID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Appointment %s not found", appointmentID)}
	}

	if apt.Status == "cancelled" || apt.Status == "completed" {
		return ActionResult{
			Message: fmt.Sprintf("Cannot reschedule %s appointment. Please schedule a new one.", apt.Status),
		}
	}

	for _, other := range api.appointmentsByEmailLocked(apt.UserEmail) {
		if other.AppointmentID != appointmentID &&
			other.Date == newDate && other.Time == newTime &&
			(other.Status == "scheduled" || other.Status == "confirmed") {
			return ActionResult{
				Message: fmt.Sprintf("You already have an appointment at %s on %s", newTime, newDate),
			}
		}
	}

	oldDate, oldTime := apt.Date, apt.Time
	apt.Date = newDate
	apt.Time = newTime

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Appointment rescheduled from %s %s to %s %s", oldDate, oldTime, newDate, newTime),
	}
}

// CancelAppointment cancels an appointment that is not already cancelled or completed
func (api *AppointmentsAPI) CancelAppointment(appointmentID string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	apt, ok := api.appointments[appointmentID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Appointment %s not found", appointmentID)}
	}

	if apt.Status == "cancelled" {
		return ActionResult{Message: "Appointment is already cancelled"}
	}
	if apt.Status == "completed" {
		return ActionResult{Message: "Cannot cancel a completed appointment"}
	}

	apt.Status = "cancelled"

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Appointment %s on %s at %s has been cancelled", appointmentID, apt.Date, apt.Time),
	}
}

// ConfirmAppointment confirms a scheduled appointment
func (api *AppointmentsAPI) ConfirmAppointment(appointmentID string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	apt, ok := api.appointments[appointmentID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Appointment %s not found", appointmentID)}
	}

	if apt.Status == "confirmed" {
		return ActionResult{Message: "Appointment is already confirmed"}
	}
	if apt.Status == "cancelled" || apt.Status == "completed" {
		return ActionResult{Message: fmt.Sprintf("Cannot confirm a %s appointment", apt.Status)}
	}

	apt.Status = "confirmed"

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Appointment %s on %s at %s has been confirmed", appointmentID, apt.Date, apt.Time),
	}
}
