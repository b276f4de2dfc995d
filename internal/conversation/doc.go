// Package conversation implements the three-step "send an email" dialogue.
//
// # States
//
//	Idle → AwaitingEmail → AwaitingBody → AwaitingConfirm → Idle
//	                 ↑                          │
//	                 └──────── "нет" ───────────┘
//
// The start command moves any session to AwaitingEmail and discards its draft.
// Free text while Idle gets no reply.
//
// # Transition Table
//
// Each inbound Event is classified against the session's current State into an
// InputClass (valid_email, blank_body, yes, ...). The pair (State, InputClass)
// looks up a transition in a static table giving the next State and the action
// that mutates the draft and produces the reply text.
//
// # Sessions
//
// Sessions is an in-memory map keyed by session id (a Matrix room id in
// production). Each entry has its own mutex and Machine.Handle holds it for the
// whole transition, including the blocking relay call on confirm. Different
// sessions never wait on each other.
//
// # Relay
//
// On "да" the Machine hands (sender, recipient, body) to a Relayer and turns the
// returned relay.Outcome into the user-facing result. The session is reset to
// Idle whatever the outcome.
package conversation
