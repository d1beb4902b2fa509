// Package inquiry records contact-form submissions and relays them to every
// staff member assigned to the actor through the staff member's own
// Telegram bot.
package inquiry

import (
	"fmt"
	"strings"
)

// Inquiry is one contact-form submission as received from the client.
type Inquiry struct {
	ActorID      string
	ActorName    string
	SenderName   string
	Organization *string
	Body         string
}

// ValidationError reports a submission rejected before anything was stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("inquiry: %s %s", e.Field, e.Reason)
}

// normalize trims every field, drops a blank organization, and validates the
// required fields.
func (in Inquiry) normalize() (Inquiry, error) {
	out := Inquiry{
		ActorID:    strings.TrimSpace(in.ActorID),
		ActorName:  strings.TrimSpace(in.ActorName),
		SenderName: strings.TrimSpace(in.SenderName),
		Body:       strings.TrimSpace(in.Body),
	}
	if in.Organization != nil {
		if org := strings.TrimSpace(*in.Organization); org != "" {
			out.Organization = &org
		}
	}
	switch {
	case out.SenderName == "":
		return out, &ValidationError{Field: "sender_name", Reason: "is required"}
	case out.Body == "":
		return out, &ValidationError{Field: "message", Reason: "is required"}
	case out.ActorID == "":
		return out, &ValidationError{Field: "actor_id", Reason: "is required"}
	}
	return out, nil
}

// composeText renders the notification text a staff member receives.
func composeText(in Inquiry, assignmentType string) string {
	sender := in.SenderName
	if in.Organization != nil && *in.Organization != "" {
		sender += " / " + *in.Organization
	}
	return fmt.Sprintf("[문의] %s\n👤 %s\n📝 %s\n🏷️ %s", in.ActorName, sender, in.Body, assignmentType)
}
