// Package core holds the conversation logic behind the chat page.
//
// It is independent of HTTP: web handlers, tests and any future front end
// drive it through [Service].
//
// # Conversations
//
// Each browser session owns one [Conversation]: an append-only list of
// [ChatMessage] values, at most one loaded sheet, and one [ActionState] per
// user action (sheet load, question). Conversations live in a
// [SessionStore] in memory and are dropped by the session sweeper after an
// idle period.
//
// # Sheet Loads
//
// [Service.LoadSheet] validates the URL and the Sheets credential, starts a
// new load generation and fetches without holding the conversation lock.
// When the fetch returns, the result is applied only if no newer load
// started in the meantime; otherwise it is dropped with [ErrLoadSuperseded].
// Loads never add chat messages; the outcome is shown in the status region.
//
// # Questions
//
// [Service.Ask] appends the question and exactly one AI reply. The reply is
// the model's answer, or a readable explanation when the model is not
// configured, no sheet is loaded, or the call failed. Model calls across all
// sessions share a [CallLimiter].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError]:
//
//   - SHEET001-SHEET006: Sheet URL, credential and fetch errors
//   - AI001-AI005: Model configuration, quota and communication errors
//   - REQ001-REQ005: Request validation, cancellation and rate limits
//
// # Activity Log
//
// Sheet loads and questions are reported to an [audit.Recorder] when one is
// configured. Only sizes, ids and error codes are recorded.
package core
