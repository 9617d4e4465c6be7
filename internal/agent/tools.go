package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// ToolName identifies a callable tool. The registry is closed: dispatch is an
// exhaustive switch and an unrecognized name is a configuration bug, not a
// recoverable runtime condition.
type ToolName string

const (
	ToolWelcomeMessage     ToolName = "welcome_message"
	ToolListAppointments   ToolName = "list_appointments"
	ToolBookAppointment    ToolName = "book_appointment"
	ToolConfirmAppointment ToolName = "confirm_appointment"
	ToolCancelAppointment  ToolName = "cancel_appointment"
	ToolSendOTP            ToolName = "send_otp"
	ToolVerifyOTP          ToolName = "verify_otp"
)

// mockOTP is the fixed demonstration passcode. A real deployment would send
// a generated code over SMS.
const mockOTP = "123456"

// ToolObserver counts tool dispatches, typically a metrics collector.
type ToolObserver interface {
	ObserveToolCall(tool string)
}

// ToolsetConfig controls tool behavior.
type ToolsetConfig struct {
	// RequireAuth gates appointment tools behind OTP verification.
	RequireAuth bool
	// Timezone is the reference timezone for booking validation.
	Timezone string
	// Observer, when set, is notified of every dispatched tool call.
	Observer ToolObserver
}

// Toolset executes tool calls against the conversation state. Tool failures
// are narrated back into the conversation as tool results and never abort the
// graph.
type Toolset struct {
	appointments directory.AppointmentStore
	requireAuth  bool
	loc          *time.Location
	now          func() time.Time
	observer     ToolObserver
	logger       *logging.Logger
}

// NewToolset creates a toolset over the given appointment store.
func NewToolset(appointments directory.AppointmentStore, cfg ToolsetConfig, logger *logging.Logger) *Toolset {
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid booking timezone, falling back to UTC", "timezone", cfg.Timezone)
		loc = time.UTC
	}
	return &Toolset{
		appointments: appointments,
		requireAuth:  cfg.RequireAuth,
		loc:          loc,
		now:          time.Now,
		observer:     cfg.Observer,
		logger:       logger,
	}
}

type bookArgs struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type appointmentIDArgs struct {
	AppointmentID string `json:"appointment_id"`
}

type otpArgs struct {
	OTP string `json:"otp"`
}

// Dispatch executes one tool call, appending a tool-result message to the
// state. Only an unknown tool name produces an error.
func (t *Toolset) Dispatch(ctx context.Context, state *State, call ToolCall) error {
	t.logger.Debug("dispatching tool call", "tool", call.Name, "call_id", call.ID)
	if t.observer != nil {
		t.observer.ObserveToolCall(string(call.Name))
	}

	switch call.Name {
	case ToolWelcomeMessage:
		t.welcomeMessage(state, call)
	case ToolListAppointments:
		t.listAppointments(ctx, state, call)
	case ToolBookAppointment:
		t.bookAppointment(ctx, state, call)
	case ToolConfirmAppointment:
		t.confirmAppointment(ctx, state, call)
	case ToolCancelAppointment:
		t.cancelAppointment(ctx, state, call)
	case ToolSendOTP:
		t.sendOTP(state, call)
	case ToolVerifyOTP:
		t.verifyOTP(state, call)
	default:
		return fmt.Errorf("agent: unknown tool %q", call.Name)
	}
	return nil
}

func toolResult(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// authorize enforces the authentication gate: protected appointment tools run
// only for verified callers. When the gate trips, the redirect is narrated and
// the active node moves to authentication.
func (t *Toolset) authorize(state *State, call ToolCall) bool {
	if !t.requireAuth || state.Auth.IsAuthorized {
		return true
	}
	state.ActiveNode = NodeAuth
	state.Append(toolResult(call, "You are not authorized to use this service, authenticating the user"))
	return false
}

func (t *Toolset) welcomeMessage(state *State, call ToolCall) {
	greeting := state.WelcomeMessage
	if greeting == "" {
		greeting = "Hello, I am your AI assistant. I can help you with your appointment related queries."
	}
	state.Append(toolResult(call, greeting))
}

func (t *Toolset) listAppointments(ctx context.Context, state *State, call ToolCall) {
	if !t.authorize(state, call) {
		return
	}
	if state.Customer.ID == "" {
		state.Append(toolResult(call, "Customer ID is required to get appointments"))
		return
	}
	appts, err := t.appointments.ListForCustomer(ctx, state.Customer.ID)
	if err != nil {
		t.logger.Error("failed to list appointments", "error", err, "customer_id", state.Customer.ID)
		state.Append(toolResult(call, "Sorry, I could not look up the appointments right now"))
		return
	}
	serialized, err := json.Marshal(appts)
	if err != nil {
		t.logger.Error("failed to serialize appointments", "error", err)
		state.Append(toolResult(call, "Sorry, I could not look up the appointments right now"))
		return
	}
	state.Append(toolResult(call, "Here are the appointments: "+string(serialized)))
}

func (t *Toolset) bookAppointment(ctx context.Context, state *State, call ToolCall) {
	if !t.authorize(state, call) {
		return
	}
	if state.Customer.ID == "" {
		state.Append(toolResult(call, "Customer ID is required to book appointment"))
		return
	}
	var args bookArgs
	if err := json.Unmarshal(call.Args, &args); err != nil || args.Date == "" || args.Time == "" {
		state.Append(toolResult(call, "A date and a time are required to book an appointment"))
		return
	}

	now := t.now().In(t.loc)
	slot, err := resolveBookingSlot(args.Date, args.Time, now)
	if err != nil {
		state.Append(toolResult(call, fmt.Sprintf("I could not understand %s at %s as a date and time", args.Date, args.Time)))
		return
	}
	if slot.Before(now.Add(bookingLeadTime)) {
		state.Append(toolResult(call, fmt.Sprintf("Appointments must be at least %d minutes in the future, %s at %s is too soon", int(bookingLeadTime.Minutes()), args.Date, args.Time)))
		return
	}

	appt, err := t.appointments.Add(ctx, directory.Appointment{
		CustomerID: state.Customer.ID,
		Date:       slot.Format("2006-01-02"),
		Time:       slot.Format("15:04"),
		Status:     directory.StatusPending,
	})
	if err != nil {
		t.logger.Error("failed to store appointment", "error", err, "customer_id", state.Customer.ID)
		state.Append(toolResult(call, "Sorry, I could not book the appointment right now"))
		return
	}
	t.logger.Info("appointment booked", "appointment_id", appt.ID, "customer_id", state.Customer.ID)
	state.Append(toolResult(call, fmt.Sprintf("Appointment %s booked successfully for %s at %s", appt.ID, appt.Date, appt.Time)))
}

func (t *Toolset) confirmAppointment(ctx context.Context, state *State, call ToolCall) {
	if !t.authorize(state, call) {
		return
	}
	if state.Customer.ID == "" {
		state.Append(toolResult(call, "Customer ID is required to confirm appointment"))
		return
	}
	var args appointmentIDArgs
	if err := json.Unmarshal(call.Args, &args); err != nil || args.AppointmentID == "" {
		state.Append(toolResult(call, "An appointment ID is required to confirm an appointment"))
		return
	}

	appt, err := t.appointments.Get(ctx, args.AppointmentID)
	if err != nil {
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s not found", args.AppointmentID)))
		return
	}
	switch appt.Status {
	case directory.StatusConfirmed:
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s is already confirmed", appt.ID)))
	case directory.StatusCompleted:
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s is already completed", appt.ID)))
	case directory.StatusCancelled:
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s is cancelled and cannot be confirmed", appt.ID)))
	default:
		if err := t.appointments.UpdateStatus(ctx, appt.ID, directory.StatusConfirmed); err != nil {
			t.logger.Error("failed to confirm appointment", "error", err, "appointment_id", appt.ID)
			state.Append(toolResult(call, "Sorry, I could not confirm the appointment right now"))
			return
		}
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s confirmed successfully", appt.ID)))
	}
}

func (t *Toolset) cancelAppointment(ctx context.Context, state *State, call ToolCall) {
	if !t.authorize(state, call) {
		return
	}
	if state.Customer.ID == "" {
		state.Append(toolResult(call, "Customer ID is required to cancel appointment"))
		return
	}
	var args appointmentIDArgs
	if err := json.Unmarshal(call.Args, &args); err != nil || args.AppointmentID == "" {
		state.Append(toolResult(call, "An appointment ID is required to cancel an appointment"))
		return
	}

	appt, err := t.appointments.Get(ctx, args.AppointmentID)
	if err != nil {
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s not found", args.AppointmentID)))
		return
	}
	switch appt.Status {
	case directory.StatusCompleted:
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s is already completed, cannot be cancelled", appt.ID)))
	case directory.StatusCancelled:
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s is already cancelled", appt.ID)))
	default:
		if err := t.appointments.UpdateStatus(ctx, appt.ID, directory.StatusCancelled); err != nil {
			t.logger.Error("failed to cancel appointment", "error", err, "appointment_id", appt.ID)
			state.Append(toolResult(call, "Sorry, I could not cancel the appointment right now"))
			return
		}
		state.Append(toolResult(call, fmt.Sprintf("Appointment %s cancelled successfully", appt.ID)))
	}
}

// sendOTP marks the code as sent and narrates it. Re-invocation simply
// resends; is_authorized is never touched here.
func (t *Toolset) sendOTP(state *State, call ToolCall) {
	phone := state.Customer.PhoneNumber
	t.logger.Info("sending otp", "phone_number", phone)

	state.Auth.OTPSent = true
	content := fmt.Sprintf("OTP sent successfully to %s", phone)
	state.Append(
		toolResult(call, content),
		Message{Role: RoleAssistant, Content: content},
	)
}

func (t *Toolset) verifyOTP(state *State, call ToolCall) {
	var args otpArgs
	if err := json.Unmarshal(call.Args, &args); err != nil || args.OTP == "" {
		state.Append(toolResult(call, "An OTP is required, please share the code you received"))
		return
	}
	if args.OTP != mockOTP {
		state.Append(toolResult(call, "Invalid OTP, Please enter the correct OTP"))
		return
	}
	state.Auth.IsAuthorized = true
	state.Append(toolResult(call, "OTP verified successfully"))
}
