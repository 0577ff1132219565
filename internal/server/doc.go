// Package server provides the HTTP server implementation for the PromptLab API.
//
// The server exposes the session and profile layers over a small REST surface
// plus a Server-Sent Events stream, so editor plugins and scripts can drive
// conversations without linking the Go packages directly.
//
// # API Endpoints
//
//   - /session: list and create conversation sessions
//   - /session/{sessionID}: inspect or delete one session
//   - /session/{sessionID}/submit: send a follow-up query
//   - /session/{sessionID}/cancel: abort the in-flight invocation
//   - /session/{sessionID}/regenerate: re-run the last request
//   - /profile: list endpoint profiles
//   - /profile/{name}: read, save, or delete one profile
//   - /event: real-time event streaming via SSE
//   - /health: liveness check
//
// # Sessions
//
// A session is created from a base prompt plus an endpoint configuration,
// either inline or resolved from a named profile. Mutating operations return
// the session snapshot immediately; the response text itself arrives through
// the event stream as the invocation progresses. Submit accepts
// useConversation and useFiles switches that control how much context is
// folded into the outgoing mega-prompt.
//
// # Profiles
//
// Profiles name reusable endpoint configurations. Config-file profiles are
// read-only over HTTP; saved profiles shadow them and can be deleted again.
// Unknown profile names answer with a nearest-name suggestion in the error
// details.
//
// # Event Stream
//
// GET /event holds the connection open and writes one SSE event per bus
// event, the bus event type in the SSE event field and the payload as JSON
// data. A sessionID query parameter narrows the stream to one session's
// events. The stream opens with a server.connected event and sends comment
// heartbeats every 30 seconds.
//
// # Usage Example
//
//	cfg := server.DefaultConfig()
//	cfg.Port = 8080
//
//	srv := server.New(cfg, appConfig, sessions, profiles)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
