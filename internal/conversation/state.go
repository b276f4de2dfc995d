// ABOUTME: Conversation states, input classes and the transition table
// ABOUTME: The table is the single source of truth for where each input leads

package conversation

import (
	"context"
	"strings"
)

// State is the step a session is on.
type State int

const (
	StateIdle State = iota
	StateAwaitingEmail
	StateAwaitingBody
	StateAwaitingConfirm
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingEmail:
		return "awaiting_email"
	case StateAwaitingBody:
		return "awaiting_body"
	case StateAwaitingConfirm:
		return "awaiting_confirm"
	default:
		return "unknown"
	}
}

// InputClass is what an inbound event means in the current state.
type InputClass int

const (
	InputStart InputClass = iota
	InputText             // free text while idle
	InputValidEmail
	InputInvalidEmail
	InputBody
	InputBlankBody
	InputYes
	InputNo
	InputUnknownAnswer
)

func (c InputClass) String() string {
	switch c {
	case InputStart:
		return "start"
	case InputText:
		return "text"
	case InputValidEmail:
		return "valid_email"
	case InputInvalidEmail:
		return "invalid_email"
	case InputBody:
		return "body"
	case InputBlankBody:
		return "blank_body"
	case InputYes:
		return "yes"
	case InputNo:
		return "no"
	case InputUnknownAnswer:
		return "unknown_answer"
	default:
		return "unknown"
	}
}

var (
	yesAnswers = map[string]bool{"да": true, "yes": true}
	noAnswers  = map[string]bool{"нет": true, "no": true}
)

// ValidEmail is a loose address check: an "@" and a "." anywhere.
// Real validation happens when the mail transport parses the address.
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// classify maps an event onto the input class of the given state.
// A start event is InputStart everywhere.
func classify(state State, ev Event) InputClass {
	if ev.Start {
		return InputStart
	}

	switch state {
	case StateAwaitingEmail:
		if ValidEmail(ev.Text) {
			return InputValidEmail
		}
		return InputInvalidEmail
	case StateAwaitingBody:
		if strings.TrimSpace(ev.Text) != "" {
			return InputBody
		}
		return InputBlankBody
	case StateAwaitingConfirm:
		answer := strings.ToLower(strings.TrimSpace(ev.Text))
		switch {
		case yesAnswers[answer]:
			return InputYes
		case noAnswers[answer]:
			return InputNo
		default:
			return InputUnknownAnswer
		}
	default:
		return InputText
	}
}

// action mutates the session for an accepted input and returns the reply text.
// An empty reply means nothing is sent.
type action func(m *Machine, ctx context.Context, s *Session, text string) string

type transitionKey struct {
	from  State
	input InputClass
}

type transition struct {
	to State
	do action
}

var transitions = map[transitionKey]transition{
	{StateIdle, InputStart}:            {StateAwaitingEmail, (*Machine).begin},
	{StateAwaitingEmail, InputStart}:   {StateAwaitingEmail, (*Machine).begin},
	{StateAwaitingBody, InputStart}:    {StateAwaitingEmail, (*Machine).begin},
	{StateAwaitingConfirm, InputStart}: {StateAwaitingEmail, (*Machine).begin},

	{StateIdle, InputText}: {StateIdle, nil},

	{StateAwaitingEmail, InputValidEmail}:   {StateAwaitingBody, (*Machine).acceptEmail},
	{StateAwaitingEmail, InputInvalidEmail}: {StateAwaitingEmail, reply(PromptInvalidEmail)},

	{StateAwaitingBody, InputBody}:      {StateAwaitingConfirm, (*Machine).acceptBody},
	{StateAwaitingBody, InputBlankBody}: {StateAwaitingBody, reply(PromptEmptyBody)},

	{StateAwaitingConfirm, InputYes}:           {StateIdle, (*Machine).confirm},
	{StateAwaitingConfirm, InputNo}:            {StateAwaitingEmail, (*Machine).decline},
	{StateAwaitingConfirm, InputUnknownAnswer}: {StateAwaitingConfirm, reply(PromptYesNo)},
}

// reply is an action that only re-prompts.
func reply(text string) action {
	return func(*Machine, context.Context, *Session, string) string {
		return text
	}
}
