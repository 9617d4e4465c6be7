package agent

import (
	"encoding/json"
	"fmt"
)

var emptyParams = json.RawMessage(`{"type":"object","properties":{}}`)

// AppointmentToolDefs returns the tool subset bound to the appointment node.
// The booking description embeds the current datetime so the model can resolve
// relative expressions against it.
func (t *Toolset) AppointmentToolDefs() []ToolDefinition {
	now := t.now().In(t.loc).Format("Monday, 01-02-2006 15:04 MST")
	return []ToolDefinition{
		{
			Name:        ToolWelcomeMessage,
			Description: "Send the welcome message to the user.",
			Parameters:  emptyParams,
		},
		{
			Name:        ToolListAppointments,
			Description: "List all the appointments of the customer.",
			Parameters:  emptyParams,
		},
		{
			Name: ToolBookAppointment,
			Description: fmt.Sprintf(`Book an appointment for the customer using a valid future date and time.

Input requirements:
- date: MM-DD-YYYY, or a relative expression like "tomorrow" or "next Sunday"
- time: HH:MM in 24-hour format

The current datetime is %s. Only future appointments are allowed: the date
must be today or later and the time at least 10 minutes ahead of now. Relative
expressions are resolved against the current datetime.`, now),
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "MM-DD-YYYY or a relative expression"},
					"time": {"type": "string", "description": "HH:MM, 24-hour"}
				},
				"required": ["date", "time"]
			}`),
		},
		{
			Name: ToolConfirmAppointment,
			Description: "Confirm an appointment for the customer using a valid appointment id. " +
				"List all the appointments for the customer if the appointment id is not provided by the user.",
			Parameters: appointmentIDParams,
		},
		{
			Name:        ToolCancelAppointment,
			Description: "Cancel an appointment for the customer using a valid appointment id.",
			Parameters:  appointmentIDParams,
		},
	}
}

var appointmentIDParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"appointment_id": {"type": "string", "description": "A valid appointment id"}
	},
	"required": ["appointment_id"]
}`)

// AuthToolDefs returns the tool subset bound to the authentication node.
func (t *Toolset) AuthToolDefs() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolSendOTP,
			Description: "Send an OTP to the user.",
			Parameters:  emptyParams,
		},
		{
			Name:        ToolVerifyOTP,
			Description: "Verify the OTP provided by the user.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"otp": {"type": "string", "description": "The code the user received"}
				},
				"required": ["otp"]
			}`),
		},
	}
}
