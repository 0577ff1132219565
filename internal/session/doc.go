// Package session implements the conversation layer of the PromptLab core.
//
// A session tracks one conversation between a user and a configured endpoint:
// the base prompt that opened it, the running history, the response being
// displayed and at most one in-flight invocation. Sessions are what UI
// layers (the HTTP server, the headless runner) render and drive.
//
// # Architecture Overview
//
// The package is built around two types:
//
//   - Session: the per-conversation state machine (idle, awaiting response,
//     closed) with Submit, Cancel, Regenerate and Start operations
//   - Manager: the server-side registry that creates, looks up, lists and
//     deletes sessions and persists their snapshots through storage
//
// # Session Lifecycle
//
// A session is created idle, seeded with its base prompt as the first
// history entry:
//
//	sess := session.New(session.Options{
//		BasePrompt: "Summarize the selected files",
//		Config:     profileConfig,
//		Invoker:    invoker,
//		Resolver:   resolver,
//	})
//
//	// Fire the initial base-prompt invocation.
//	err := sess.Start(ctx)
//
//	// Follow-up queries fold the conversation into a mega-prompt.
//	err = sess.Submit(ctx, "Shorten that to one paragraph", types.SubmitOptions{
//		UseConversation: true,
//	})
//
// Submitting moves the session to awaitingResponse and streams the endpoint
// response into the view; a terminal update returns it to idle. Submitting
// again while a response is pending supersedes the pending invocation: its
// remaining updates are dropped by an invocation-ID check.
//
// # The Mega-Prompt
//
// Each submit assembles its request from fixed blocks: the base prompt, the
// selected-file context (when UseFiles is set), either the running
// conversation (UseConversation) or the most recent response, and the
// placeholder-resolved query. History is trimmed oldest-first until the
// query plus the joined history fit the prompt budget, so long conversations
// degrade by forgetting their oldest turns.
//
// # Cancel and Regenerate
//
// Cancel is two different operations depending on how far the conversation
// got. With a previous response to fall back to it abandons only the
// in-flight invocation and makes that response visible again. Without one it
// abandons the whole session, which is then closed to further operations.
//
// Regenerate re-invokes without touching the conversation: the exact last
// sent request when a previous response exists, otherwise the initial
// base-prompt request.
//
// # Events
//
// State changes are published on the event bus for SSE subscribers:
//
//	event.SessionCreated    registry additions
//	event.SessionUpdated    streaming chunks and view changes (with delta)
//	event.SessionCompleted  terminal response text
//	event.SessionError      invocation failures, with the error kind
//	event.SessionClosed     whole-session abandonment
//	event.SessionDeleted    registry removals
//
// # Persistence
//
// The Manager persists each session under session/{id} via the storage
// layer. A restart revives stored sessions as idle conversations with their
// history, endpoint configuration and file context intact; in-flight state
// is not recoverable and is not restored.
package session
