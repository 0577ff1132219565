package server_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/citest/testutil"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var _ = Describe("Server Endpoints Integration Tests", func() {
	// ==================== Health ====================
	Describe("GET /health", func() {
		It("should report ok", func() {
			resp, err := client.Get(ctx, "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))
			Expect(resp.String()).To(ContainSubstring(`"status":"ok"`))
		})
	})

	// ==================== Session Endpoints ====================
	Describe("Session Endpoints", func() {
		Describe("POST /session", func() {
			It("should create an idle session seeded with the base prompt", func() {
				session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
					BasePrompt: "Say OK",
				})
				Expect(err).NotTo(HaveOccurred())
				defer client.DeleteSession(ctx, session.ID)

				Expect(session.ID).NotTo(BeEmpty())
				Expect(session.State).To(Equal("idle"))
				Expect(session.View.IsLoading).To(BeFalse())
				Expect(session.History).To(Equal([]string{"Say OK"}))
			})
		})

		Describe("GET /session", func() {
			It("should list created sessions", func() {
				session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
					BasePrompt: "Say OK",
				})
				Expect(err).NotTo(HaveOccurred())
				defer client.DeleteSession(ctx, session.ID)

				sessions, err := client.ListSessions(ctx)
				Expect(err).NotTo(HaveOccurred())

				found := false
				for _, s := range sessions {
					if s.ID == session.ID {
						found = true
						break
					}
				}
				Expect(found).To(BeTrue())
			})
		})

		Describe("GET /session/{sessionID}", func() {
			It("should retrieve a session by ID", func() {
				session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
					BasePrompt: "Say OK",
				})
				Expect(err).NotTo(HaveOccurred())
				defer client.DeleteSession(ctx, session.ID)

				retrieved, err := client.GetSession(ctx, session.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(retrieved.ID).To(Equal(session.ID))
				Expect(retrieved.BasePrompt).To(Equal("Say OK"))
			})

			It("should return 404 for a non-existent session", func() {
				resp, err := client.Get(ctx, "/session/non-existent-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(404))

				detail, err := resp.APIError()
				Expect(err).NotTo(HaveOccurred())
				Expect(detail.Code).To(Equal("NOT_FOUND"))
			})
		})

		Describe("DELETE /session/{sessionID}", func() {
			It("should delete a session", func() {
				session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
					BasePrompt: "Say OK",
				})
				Expect(err).NotTo(HaveOccurred())

				Expect(client.DeleteSession(ctx, session.ID)).To(Succeed())

				resp, err := client.Get(ctx, "/session/"+session.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(404))
			})

			It("should return 404 for a non-existent session", func() {
				resp, err := client.Delete(ctx, "/session/non-existent-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(404))
			})
		})
	})

	// ==================== Request Validation ====================
	Describe("Session Validation", func() {
		It("should reject a missing basePrompt", func() {
			resp, err := client.Post(ctx, "/session", map[string]string{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Code).To(Equal("INVALID_REQUEST"))
			Expect(detail.Message).To(ContainSubstring("basePrompt"))
		})

		It("should reject malformed JSON", func() {
			resp, err := client.Post(ctx, "/session", "invalid json{")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should suggest the nearest name for an unknown profile", func() {
			resp, err := client.Post(ctx, "/session", testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
				Profile:    "defult",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Message).To(ContainSubstring("profile not found"))
			Expect(detail.Details).To(HaveKeyWithValue("suggestion", "default"))
		})

		It("should reject an inline config without an endpoint", func() {
			resp, err := client.Post(ctx, "/session", testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
				Config:     &types.EndpointConfig{OutputKeyPath: "text"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Message).To(ContainSubstring("endpoint"))
		})

		It("should reject a nonexistent context file", func() {
			resp, err := client.Post(ctx, "/session", testutil.CreateSessionRequest{
				BasePrompt: "Summarize this",
				Files:      []string{"/nonexistent/path/notes.txt"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should reject an empty substitution key", func() {
			resp, err := client.Post(ctx, "/session", testutil.CreateSessionRequest{
				BasePrompt:    "Say OK",
				Substitutions: []testutil.Substitution{{Key: "", Value: "x"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})
	})

	// ==================== Query Endpoints ====================
	Describe("Query Endpoints", func() {
		It("should reject an empty query", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)

			resp, err := client.Post(ctx, "/session/"+session.ID+"/submit", map[string]string{
				"query": "",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should close a never-started session on cancel and refuse further queries", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())

			// No invocation ran and there is no previous response, so
			// cancel abandons the whole session.
			cancelled, err := client.CancelSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.State).To(Equal("closed"))

			resp, err := client.Post(ctx, "/session/"+session.ID+"/submit", map[string]string{
				"query": "hello",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(409))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Code).To(Equal("CONFLICT"))
		})

		It("should return 404 when submitting to an unknown session", func() {
			resp, err := client.Post(ctx, "/session/non-existent-id/submit", map[string]string{
				"query": "hello",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	// ==================== Profile Endpoints ====================
	Describe("Profile Endpoints", func() {
		endpointConfig := func() types.EndpointConfig {
			return testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL())
		}

		It("should save, list, get and delete a stored profile", func() {
			name := "citest-" + testutil.RandomString(6)

			saved, err := client.PutProfile(ctx, name, "suite profile", endpointConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Name).To(Equal(name))
			Expect(saved.Time.Updated).NotTo(BeZero())

			profiles, err := client.ListProfiles(ctx)
			Expect(err).NotTo(HaveOccurred())
			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				names = append(names, p.Name)
			}
			Expect(names).To(ContainElement(name))

			fetched, err := client.GetProfile(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Config.Endpoint).To(Equal(testServer.Endpoint.GenerateURL()))
			Expect(fetched.Description).To(Equal("suite profile"))

			Expect(client.DeleteProfile(ctx, name)).To(Succeed())

			resp, err := client.Get(ctx, "/profile/"+name)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})

		It("should reject a body name that does not match the URL", func() {
			resp, err := client.Put(ctx, "/profile/alpha", map[string]interface{}{
				"name":   "beta",
				"config": endpointConfig(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should reject a profile without an endpoint", func() {
			resp, err := client.Put(ctx, "/profile/empty", map[string]interface{}{
				"config": map[string]string{"outputKeyPath": "text"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should answer 409 when deleting a config-managed profile", func() {
			// "default" comes from the config file, not the store, so the
			// API cannot delete it.
			resp, err := client.Delete(ctx, "/profile/default")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(409))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Code).To(Equal("CONFLICT"))
		})

		It("should suggest the nearest name for an unknown profile", func() {
			resp, err := client.Get(ctx, "/profile/streming")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))

			detail, err := resp.APIError()
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Details).To(HaveKeyWithValue("suggestion", "streaming"))
		})

		It("should return 404 when deleting an unknown profile", func() {
			resp, err := client.Delete(ctx, "/profile/never-existed")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})
})

// Additional tests for edge cases and error handling
var _ = Describe("Server Error Handling", func() {
	It("should return 404 for unknown paths", func() {
		resp, err := client.Get(ctx, "/unknown/endpoint")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(404))
	})
})

// Concurrent access tests
var _ = Describe("Concurrent Access", func() {
	It("should handle multiple concurrent session creations", func() {
		const numSessions = 5
		done := make(chan *testutil.Session, numSessions)
		errs := make(chan error, numSessions)

		for i := 0; i < numSessions; i++ {
			go func() {
				session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
					BasePrompt: "Say OK",
				})
				if err != nil {
					errs <- err
					return
				}
				done <- session
			}()
		}

		var sessions []*testutil.Session
		for i := 0; i < numSessions; i++ {
			select {
			case session := <-done:
				sessions = append(sessions, session)
			case err := <-errs:
				Expect(err).NotTo(HaveOccurred())
			case <-time.After(30 * time.Second):
				Fail("Timeout waiting for concurrent session creation")
			}
		}

		Expect(len(sessions)).To(Equal(numSessions))

		// Cleanup
		for _, s := range sessions {
			client.DeleteSession(ctx, s.ID)
		}
	})
})

// Special character and unicode handling
var _ = Describe("Character Encoding", func() {
	It("should handle unicode in the base prompt", func() {
		session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
			BasePrompt: "Say hello in Japanese: こんにちは 🌍",
		})
		Expect(err).NotTo(HaveOccurred())
		defer client.DeleteSession(ctx, session.ID)

		retrieved, err := client.GetSession(ctx, session.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(retrieved.BasePrompt).To(Equal("Say hello in Japanese: こんにちは 🌍"))
	})
})
