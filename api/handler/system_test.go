package handler_test

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/blog-metadata/api/handler"
	"github.com/ddevcap/blog-metadata/backend"
	"github.com/ddevcap/blog-metadata/metadata"
)

var _ = Describe("SystemHandler", func() {
	gin.SetMode(gin.TestMode)

	var health *fakeHealth

	// router wires the system routes around h.
	router := func(h *handler.SystemHandler) *gin.Engine {
		r := gin.New()
		r.GET("/hello", h.Hello)
		r.GET("/health", h.HealthLive)
		r.GET("/ready", h.HealthReady)
		return r
	}

	BeforeEach(func() {
		health = &fakeHealth{statuses: []backend.UpstreamHealthStatus{
			{Name: "analytics", Available: true},
			{Name: "fediverse", Available: true},
			{Name: "index", Available: true},
		}}
	})

	Describe("Hello", func() {
		It("returns the greeting", func() {
			w := doGet(router(handler.NewSystemHandler(nil, nil)), "/hello")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"message":"Hello, world!"}`))
		})
	})

	Describe("HealthLive", func() {
		It("returns 200 even when upstreams are down", func() {
			health.statuses[0].Available = false
			w := doGet(router(handler.NewSystemHandler(health, nil)), "/health")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		})
	})

	Describe("HealthReady", func() {
		It("returns 200 with upstream statuses and cache stats", func() {
			cache := &fakeCache{entries: map[string]metadata.Metadata{"a": {}}}
			w := doGet(router(handler.NewSystemHandler(health, cache)), "/ready")

			Expect(w.Code).To(Equal(http.StatusOK))
			var body map[string]interface{}
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["status"]).To(Equal("ready"))
			Expect(body["upstreams"]).To(HaveLen(3))
			Expect(body["cache"]).To(HaveKeyWithValue("entries", BeNumerically("==", 1)))
		})

		It("returns 503 when an upstream is unavailable", func() {
			health.statuses[1].Available = false
			w := doGet(router(handler.NewSystemHandler(health, nil)), "/ready")

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			var body map[string]interface{}
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["status"]).To(Equal("not ready"))
			Expect(body).NotTo(HaveKey("cache"))
		})

		It("returns 200 without a health checker", func() {
			w := doGet(router(handler.NewSystemHandler(nil, nil)), "/ready")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ready"}`))
		})
	})
})
