package server_test

import (
	"encoding/json"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/citest/testutil"
)

var _ = Describe("HTTP Response Behavior", func() {
	Describe("Success Responses", func() {
		It("should return 200 with JSON body for GET", func() {
			resp, err := client.Get(ctx, "/session")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))
			Expect(resp.Headers.Get("Content-Type")).To(ContainSubstring("application/json"))
		})

		It("should return a JSON array for list endpoints, never null", func() {
			resp, err := client.Get(ctx, "/session")
			Expect(err).NotTo(HaveOccurred())

			body := strings.TrimSpace(resp.String())
			Expect(body).To(HavePrefix("["))

			var sessions []map[string]interface{}
			Expect(json.Unmarshal(resp.Body, &sessions)).To(Succeed())
		})

		It("should return a success body for DELETE", func() {
			session, err := client.CreateSession(ctx, testutil.CreateSessionRequest{
				BasePrompt: "Say OK",
			})
			Expect(err).NotTo(HaveOccurred())

			resp, err := client.Delete(ctx, "/session/"+session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())
			Expect(resp.String()).To(ContainSubstring(`"success":true`))
		})
	})

	Describe("Error Responses", func() {
		It("should return a structured error for 404", func() {
			resp, err := client.Get(ctx, "/session/nonexistent-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))

			var errResp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			Expect(json.Unmarshal(resp.Body, &errResp)).To(Succeed())
			Expect(errResp.Error.Code).To(Equal("NOT_FOUND"))
			Expect(errResp.Error.Message).NotTo(BeEmpty())
		})

		It("should return a structured error for 400", func() {
			resp, err := client.Post(ctx, "/session", map[string]string{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))

			var errResp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			Expect(json.Unmarshal(resp.Body, &errResp)).To(Succeed())
			Expect(errResp.Error.Code).To(Equal("INVALID_REQUEST"))
		})
	})

	Describe("CORS Headers", func() {
		It("should respond to OPTIONS request", func() {
			req, err := http.NewRequest("OPTIONS", testServer.BaseURL+"/session", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")

			httpClient := &http.Client{}
			resp, err := httpClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(200))
		})

		It("should include CORS headers in response", func() {
			req, err := http.NewRequest("GET", testServer.BaseURL+"/session", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://example.com")

			httpClient := &http.Client{}
			resp, err := httpClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).NotTo(BeEmpty())
		})

		It("should allow required methods", func() {
			req, err := http.NewRequest("OPTIONS", testServer.BaseURL+"/session", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")

			httpClient := &http.Client{}
			resp, err := httpClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			allowedMethods := resp.Header.Get("Access-Control-Allow-Methods")
			Expect(allowedMethods).To(SatisfyAny(
				ContainSubstring("POST"),
				ContainSubstring("*"),
			))
		})
	})

	Describe("Content-Type Handling", func() {
		It("should return JSON content-type for error responses", func() {
			resp, err := client.Get(ctx, "/session/nonexistent-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Headers.Get("Content-Type")).To(ContainSubstring("application/json"))
		})
	})
})
