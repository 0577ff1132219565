package server_test

import (
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/citest/testutil"
)

var _ = Describe("SSE Event Streaming", func() {
	Describe("GET /event", func() {
		It("should return SSE content-type and cache headers", func() {
			req, err := http.NewRequest("GET", testServer.BaseURL+"/event", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Accept", "text/event-stream")

			httpClient := &http.Client{Timeout: 5 * time.Second}
			resp, err := httpClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(200))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		})

		It("should announce the stream with server.connected", func() {
			sseClient := testServer.SSEClient()
			err := sseClient.Connect(ctx, "/event")
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()

			evt, err := sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			var payload struct {
				Time int64 `json:"time"`
			}
			Expect(json.Unmarshal(evt.Data, &payload)).To(Succeed())
			Expect(payload.Time).To(BeNumerically(">", 0))
		})

		It("should deliver session lifecycle events", func() {
			sseClient := testServer.SSEClient()
			err := sseClient.Connect(ctx, "/event")
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()

			_, err = sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())

			created, err := sseClient.WaitForEvent("session.created", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			createdData, err := created.ParseSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(createdData.Info).NotTo(BeNil())
			Expect(createdData.Info.ID).To(Equal(session.ID))

			Expect(client.DeleteSession(ctx, session.ID)).To(Succeed())

			deleted, err := sseClient.WaitForEvent("session.deleted", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			var deletedData struct {
				SessionID string `json:"sessionID"`
			}
			Expect(json.Unmarshal(deleted.Data, &deletedData)).To(Succeed())
			Expect(deletedData.SessionID).To(Equal(session.ID))
		})
	})

	Describe("Event Filtering", func() {
		It("should only deliver events for the named session", func() {
			session1, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())
			session2, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())

			sseClient := testServer.SSEClient()
			err = sseClient.Connect(ctx, "/event?sessionID="+session1.ID)
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()

			_, err = sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			// session2's delete must not reach a stream scoped to session1.
			Expect(client.DeleteSession(ctx, session2.ID)).To(Succeed())
			Expect(client.DeleteSession(ctx, session1.ID)).To(Succeed())

			deleted, err := sseClient.WaitForEvent("session.deleted", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			var deletedData struct {
				SessionID string `json:"sessionID"`
			}
			Expect(json.Unmarshal(deleted.Data, &deletedData)).To(Succeed())
			Expect(deletedData.SessionID).To(Equal(session1.ID))
			Expect(sseClient.CountEventType("session.deleted")).To(Equal(1))
		})

		It("should drop profile events from a session-scoped stream", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())

			sseClient := testServer.SSEClient()
			err = sseClient.Connect(ctx, "/event?sessionID="+session.ID)
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()

			_, err = sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			name := "citest-" + testutil.RandomString(6)
			_, err = client.PutProfile(ctx, name, "", testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL()))
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteProfile(ctx, name)

			Expect(client.DeleteSession(ctx, session.ID)).To(Succeed())

			_, err = sseClient.WaitForEvent("session.deleted", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(sseClient.HasEventType("profile.updated")).To(BeFalse())
		})
	})

	Describe("SSE Connection Lifecycle", func() {
		It("should handle client disconnect gracefully", func() {
			sseClient := testServer.SSEClient()
			err := sseClient.Connect(ctx, "/event")
			Expect(err).NotTo(HaveOccurred())

			sseClient.Close()

			// Server keeps serving after the stream goes away.
			resp, err := client.Get(ctx, "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())
		})
	})
})
