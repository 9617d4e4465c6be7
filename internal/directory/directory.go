package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrCustomerNotFound is returned when no customer matches the lookup key.
	ErrCustomerNotFound = errors.New("directory: customer not found")
	// ErrAppointmentNotFound is returned when no appointment matches the id.
	ErrAppointmentNotFound = errors.New("directory: appointment not found")
	// ErrDuplicatePhone is returned when adding a customer whose phone number
	// is already registered.
	ErrDuplicatePhone = errors.New("directory: phone number already registered")
)

// Customer is immutable reference data about a caller.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"` // E.164, e.g. +14803828571
	DOB         string `json:"dob"`          // YYYY-MM-DD
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Terminal reports whether no further status transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Appointment is a scheduled visit for a customer.
type Appointment struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customer_id"`
	Date       string            `json:"date"` // YYYY-MM-DD
	Time       string            `json:"time"` // HH:MM, 24h
	Status     AppointmentStatus `json:"status"`
}

// CustomerStore looks up customers by phone number or id.
type CustomerStore interface {
	FindByPhone(ctx context.Context, phone string) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
	Add(ctx context.Context, c Customer) error
}

// AppointmentStore manages appointment records.
type AppointmentStore interface {
	ListForCustomer(ctx context.Context, customerID string) ([]Appointment, error)
	Get(ctx context.Context, id string) (Appointment, error)
	Add(ctx context.Context, a Appointment) (Appointment, error)
	UpdateStatus(ctx context.Context, id string, status AppointmentStatus) error
}

// MemoryCustomerStore is a mutex-guarded in-memory customer directory.
type MemoryCustomerStore struct {
	mu        sync.RWMutex
	customers []Customer
}

// NewMemoryCustomerStore creates an empty in-memory customer store.
func NewMemoryCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{}
}

// NewSeededCustomerStore creates a customer store preloaded with demo data.
func NewSeededCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{customers: []Customer{
		{ID: "CUST-1001", Name: "John Doe", PhoneNumber: "+14803828571", DOB: "1990-05-15"},
		{ID: "CUST-1002", Name: "Jane Smith", PhoneNumber: "+15559876543", DOB: "1985-12-03"},
		{ID: "CUST-1003", Name: "Michael Johnson", PhoneNumber: "+15555555555", DOB: "1992-08-22"},
	}}
}

// FindByPhone returns the customer registered under the given phone number.
func (s *MemoryCustomerStore) FindByPhone(_ context.Context, phone string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.PhoneNumber == phone {
			return c, nil
		}
	}
	return Customer{}, ErrCustomerNotFound
}

// Get returns the customer with the given id.
func (s *MemoryCustomerStore) Get(_ context.Context, id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return Customer{}, ErrCustomerNotFound
}

// Add registers a new customer. Phone numbers must be unique.
func (s *MemoryCustomerStore) Add(_ context.Context, c Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.customers {
		if existing.PhoneNumber == c.PhoneNumber {
			return ErrDuplicatePhone
		}
	}
	s.customers = append(s.customers, c)
	return nil
}

// MemoryAppointmentStore is a mutex-guarded in-memory appointment book.
type MemoryAppointmentStore struct {
	mu           sync.RWMutex
	appointments []Appointment
}

// NewMemoryAppointmentStore creates an empty in-memory appointment store.
func NewMemoryAppointmentStore() *MemoryAppointmentStore {
	return &MemoryAppointmentStore{}
}

// NewSeededAppointmentStore creates an appointment store preloaded with demo data.
func NewSeededAppointmentStore() *MemoryAppointmentStore {
	return &MemoryAppointmentStore{appointments: []Appointment{
		{ID: "APT-2025-001", CustomerID: "CUST-1001", Date: "2025-03-20", Time: "09:00", Status: StatusCompleted},
		{ID: "APT-2025-002", CustomerID: "CUST-1001", Date: "2025-07-19", Time: "09:00", Status: StatusConfirmed},
		{ID: "APT-2025-003", CustomerID: "CUST-1001", Date: "2025-08-25", Time: "14:00", Status: StatusPending},
		{ID: "APT-2025-004", CustomerID: "CUST-1002", Date: "2025-07-20", Time: "10:30", Status: StatusConfirmed},
		{ID: "APT-2025-005", CustomerID: "CUST-1002", Date: "2025-03-23", Time: "13:00", Status: StatusCancelled},
		{ID: "APT-2025-006", CustomerID: "CUST-1003", Date: "2025-07-20", Time: "14:00", Status: StatusPending},
		{ID: "APT-2025-007", CustomerID: "CUST-1003", Date: "2025-07-28", Time: "11:30", Status: StatusPending},
	}}
}

// ListForCustomer returns every appointment belonging to the customer.
func (s *MemoryAppointmentStore) ListForCustomer(_ context.Context, customerID string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Get returns the appointment with the given id.
func (s *MemoryAppointmentStore) Get(_ context.Context, id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return Appointment{}, ErrAppointmentNotFound
}

// Add stores a new appointment, assigning an id when none is set.
func (s *MemoryAppointmentStore) Add(_ context.Context, a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = "APT-" + uuid.NewString()
	}
	s.appointments = append(s.appointments, a)
	return a, nil
}

// UpdateStatus sets the status of an existing appointment. Lifecycle rules
// (terminal statuses, allowed transitions) are enforced by the caller.
func (s *MemoryAppointmentStore) UpdateStatus(_ context.Context, id string, status AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("directory: update appointment %s: %w", id, ErrAppointmentNotFound)
}
