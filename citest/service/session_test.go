package service_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/citest/testutil"
)

const awaitTimeout = 10 * time.Second

// neutralPrompt matches no mock rule, so only the query decides the response.
const neutralPrompt = "You are a helpful assistant."

var _ = Describe("Session Service", func() {
	Describe("Initial invocation", func() {
		It("should run the base prompt through the default profile", func() {
			testServer.Endpoint.ResetRequests()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Hello, world",
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.State).To(Equal("idle"))
			Expect(final.View.Data).To(Equal("Hello, World!"))
			Expect(final.View.Error).To(BeEmpty())

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(Equal("Hello, world"))
			Expect(last.Path).To(Equal("/generate"))
		})

		It("should extract the response through a nested key path", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Hello, world",
				Profile:    "nested",
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("Hello, World!"))
		})

		It("should surface endpoint failures in the view", func() {
			cfg := testutil.EndpointConfigFor(testServer.Endpoint.URL() + "/missing")
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
				Config:     &cfg,
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.State).To(Equal("idle"))
			Expect(final.View.Data).To(BeEmpty())
			Expect(final.View.Error).NotTo(BeEmpty())
		})
	})

	Describe("Streaming profile", func() {
		It("should fold streamed chunks and emit deltas that rebuild the response", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
				Profile:    "streaming",
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			sseClient := testServer.SSEClient()
			err = sseClient.Connect(ctx, "/event?sessionID="+session.ID)
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()
			_, err = sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Submit(ctx, session.ID, "Write a story about anything.")
			Expect(err).NotTo(HaveOccurred())

			completed, err := sseClient.WaitForCompleted(session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(completed.Data).To(Equal("Once upon a time a prompt walked into an endpoint and came back a response."))

			var joined strings.Builder
			updates := 0
			for _, evt := range sseClient.GetAllEvents() {
				if evt.Type != "session.updated" {
					continue
				}
				data, err := evt.ParseSession()
				Expect(err).NotTo(HaveOccurred())
				joined.WriteString(data.Delta)
				if data.Delta != "" {
					updates++
				}
			}
			Expect(updates).To(BeNumerically(">=", 2))
			Expect(joined.String()).To(Equal(completed.Data))

			final, err := client.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal(completed.Data))
		})
	})

	Describe("Follow-up queries", func() {
		It("should thread the conversation through the mega-prompt", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			_, err = client.Submit(ctx, session.ID, "Tell me about your day.")
			Expect(err).NotTo(HaveOccurred())
			first, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.View.Data).To(Equal("I understand your request. Let me help you with that."))

			_, err = client.Submit(ctx, session.ID, "What is 2 + 2?")
			Expect(err).NotTo(HaveOccurred())
			second, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.View.Data).To(Equal("4"))

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(ContainSubstring("The conversation so far"))
			Expect(last.Prompt).To(ContainSubstring("Tell me about your day."))

			// The first exchange had no previous response, which lands in the
			// history as a literal empty entry.
			Expect(second.History).To(Equal([]string{
				neutralPrompt,
				"",
				"Tell me about your day.",
				"I understand your request. Let me help you with that.",
				"What is 2 + 2?",
			}))
		})

		It("should swap the conversation for the previous response when useConversation is off", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			_, err = client.Submit(ctx, session.ID, "Tell me about your day.")
			Expect(err).NotTo(HaveOccurred())
			_, err = client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.Post(ctx, "/session/"+session.ID+"/submit", map[string]interface{}{
				"query":           "What is 2 + 2?",
				"useConversation": false,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("4"))

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(ContainSubstring("Your previous response was:"))
			Expect(last.Prompt).NotTo(ContainSubstring("The conversation so far"))
			Expect(last.Prompt).NotTo(ContainSubstring("Tell me about your day."))
		})
	})

	Describe("Regenerate", func() {
		It("should replay the initial request verbatim", func() {
			testServer.Endpoint.ResetRequests()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Please say OK",
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			first, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.View.Data).To(Equal("OK"))

			_, err = client.Regenerate(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			second, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.View.Data).To(Equal("OK"))

			requests := testServer.Endpoint.Requests()
			Expect(requests).To(HaveLen(2))
			Expect(requests[1].Prompt).To(Equal(requests[0].Prompt))
		})

		It("should replay the last query once a previous response exists", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			// The second submit is the first with a previous response to
			// fall back to; only then does regenerate replay a query.
			_, err = client.Submit(ctx, session.ID, "Tell me about your day.")
			Expect(err).NotTo(HaveOccurred())
			_, err = client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Submit(ctx, session.ID, "What is 2 + 2?")
			Expect(err).NotTo(HaveOccurred())
			_, err = client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())

			sent := testServer.Endpoint.LastRequest()
			Expect(sent).NotTo(BeNil())

			_, err = client.Regenerate(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("4"))

			replayed := testServer.Endpoint.LastRequest()
			Expect(replayed).NotTo(BeNil())
			Expect(replayed.Prompt).To(Equal(sent.Prompt))
		})
	})

	Describe("Cancel", func() {
		It("should restore the previous response when cancelled mid-flight", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
				Profile:    "streaming",
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			_, err = client.Submit(ctx, session.ID, "What is 2 + 2?")
			Expect(err).NotTo(HaveOccurred())
			first, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.View.Data).To(Equal("4"))

			// The story streams in fifteen spaced chunks, leaving plenty of
			// time to cancel mid-flight.
			_, err = client.Submit(ctx, session.ID, "Write a story about anything.")
			Expect(err).NotTo(HaveOccurred())

			cancelled, err := client.CancelSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.State).To(Equal("idle"))
			Expect(cancelled.View.Data).To(Equal("4"))
			Expect(cancelled.View.IsLoading).To(BeFalse())

			// The aborted invocation must not resurface.
			time.Sleep(200 * time.Millisecond)
			final, err := client.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("4"))
			Expect(final.View.Error).To(BeEmpty())
		})
	})

	Describe("File context", func() {
		It("should send selected file contents as the request input", func() {
			tempFile, err := testutil.NewTempFile("The quick brown fox jumps over the lazy dog.")
			Expect(err).NotTo(HaveOccurred())
			defer tempFile.Cleanup()

			testServer.Endpoint.ResetRequests()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Summarize the selection",
				Files:      []string{tempFile.Path},
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("A concise summary of the provided material."))

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			input, _ := last.Body["input"].(string)
			Expect(input).To(ContainSubstring("quick brown fox"))
		})

		It("should embed file contents in follow-up prompts", func() {
			tempFile, err := testutil.NewTempFile("alpha beta gamma")
			Expect(err).NotTo(HaveOccurred())
			defer tempFile.Cleanup()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: neutralPrompt,
				Files:      []string{tempFile.Path},
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			_, err = client.Submit(ctx, session.ID, "What is 2 + 2?")
			Expect(err).NotTo(HaveOccurred())
			_, err = client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(ContainSubstring("Use the contents of the following files"))
			Expect(last.Prompt).To(ContainSubstring("alpha beta gamma"))
		})
	})

	Describe("Placeholders", func() {
		It("should apply request substitutions before sending", func() {
			testServer.Endpoint.ResetRequests()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Summarize {{selection}}",
				Substitutions: []testutil.Substitution{
					{Key: "{{selection}}", Value: "the quarterly revenue numbers"},
				},
				Start: true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("A concise summary of the provided material."))

			// The snapshot keeps the unexpanded template; only the sent
			// request resolves it.
			Expect(final.BasePrompt).To(Equal("Summarize {{selection}}"))

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(Equal("Summarize the quarterly revenue numbers"))
		})

		It("should expand prompt variables from the config", func() {
			testServer.Endpoint.ResetRequests()

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Describe {{product}} for a new user",
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("PromptLab turns prompts into reusable pipelines."))

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Prompt).To(Equal("Describe PromptLab for a new user"))
		})
	})
})
