package service_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/citest/testutil"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var _ = Describe("Profile Service", func() {
	Describe("Stored profiles", func() {
		It("should route sessions through a saved profile", func() {
			name := "citest-" + testutil.RandomString(6)
			cfg := testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL())

			_, err := client.PutProfile(ctx, name, "mock profile", cfg)
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteProfile(ctx, name)

			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Hello, world",
				Profile:    name,
				Start:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteSession(ctx, session.ID)
			Expect(session.Profile).To(Equal(name))

			final, err := client.AwaitResponse(ctx, session.ID, awaitTimeout)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.View.Data).To(Equal("Hello, World!"))
		})

		It("should update a saved profile in place", func() {
			name := "citest-" + testutil.RandomString(6)

			first, err := client.PutProfile(ctx, name, "v1", testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL()))
			Expect(err).NotTo(HaveOccurred())
			defer client.DeleteProfile(ctx, name)

			updated := types.EndpointConfig{
				Endpoint:      testServer.Endpoint.URL() + "/generate/nested",
				RequestBody:   `{"prompt":"{prompt}"}`,
				OutputKeyPath: "output.choices[0].text",
			}
			second, err := client.PutProfile(ctx, name, "v2", updated)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Time.Created).To(Equal(first.Time.Created))
			Expect(second.Time.Updated).To(BeNumerically(">=", first.Time.Updated))

			fetched, err := client.GetProfile(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Description).To(Equal("v2"))
			Expect(fetched.Config.Endpoint).To(HaveSuffix("/generate/nested"))
		})

		It("should shadow a config profile of the same name until deleted", func() {
			// "nested" comes from the config file; a stored profile under the
			// same name wins until it is removed.
			shadow := testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL())
			_, err := client.PutProfile(ctx, "nested", "shadowing", shadow)
			Expect(err).NotTo(HaveOccurred())

			fetched, err := client.GetProfile(ctx, "nested")
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Config.Endpoint).To(Equal(testServer.Endpoint.GenerateURL()))

			testServer.Endpoint.ResetRequests()
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

			last := testServer.Endpoint.LastRequest()
			Expect(last).NotTo(BeNil())
			Expect(last.Path).To(Equal("/generate"))

			// Deleting the stored profile uncovers the config one again.
			Expect(client.DeleteProfile(ctx, "nested")).To(Succeed())
			restored, err := client.GetProfile(ctx, "nested")
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Config.Endpoint).To(HaveSuffix("/generate/nested"))
		})
	})

	Describe("Profile events", func() {
		It("should publish profile.updated and profile.deleted on the bus", func() {
			sseClient := testServer.SSEClient()
			err := sseClient.Connect(ctx, "/event")
			Expect(err).NotTo(HaveOccurred())
			defer sseClient.Close()
			_, err = sseClient.WaitForEvent("server.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			name := "citest-" + testutil.RandomString(6)
			_, err = client.PutProfile(ctx, name, "", testutil.EndpointConfigFor(testServer.Endpoint.GenerateURL()))
			Expect(err).NotTo(HaveOccurred())

			updatedEvt, err := sseClient.WaitForEvent("profile.updated", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			var updated struct {
				Info *types.Profile `json:"info"`
			}
			Expect(json.Unmarshal(updatedEvt.Data, &updated)).To(Succeed())
			Expect(updated.Info).NotTo(BeNil())
			Expect(updated.Info.Name).To(Equal(name))

			Expect(client.DeleteProfile(ctx, name)).To(Succeed())

			deletedEvt, err := sseClient.WaitForEvent("profile.deleted", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			var deleted struct {
				Name string `json:"name"`
			}
			Expect(json.Unmarshal(deletedEvt.Data, &deleted)).To(Succeed())
			Expect(deleted.Name).To(Equal(name))
		})
	})
})
