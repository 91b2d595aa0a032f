package handler_test

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/blog-metadata/api/handler"
)

var _ = Describe("API docs", func() {
	gin.SetMode(gin.TestMode)

	var r *gin.Engine

	BeforeEach(func() {
		r = gin.New()
		r.GET("/api-doc/openapi.json", handler.OpenAPI)
		r.GET("/swagger-ui", handler.SwaggerUI)
	})

	It("serves an OpenAPI document for the read surface", func() {
		w := doGet(r, "/api-doc/openapi.json")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("application/json"))

		var doc struct {
			OpenAPI string                            `json:"openapi"`
			Paths   map[string]map[string]interface{} `json:"paths"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &doc)).To(Succeed())
		Expect(doc.OpenAPI).To(HavePrefix("3."))
		Expect(doc.Paths).To(HaveKey("/blog/metadata"))
		Expect(doc.Paths).To(HaveKey("/blog/metadata/{slug}"))
		Expect(doc.Paths).To(HaveKey("/hello"))
		Expect(doc.Paths["/blog/metadata/{slug}"]).To(HaveKey("get"))
	})

	It("serves the swagger UI page pointing at the document", func() {
		w := doGet(r, "/swagger-ui")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
		Expect(w.Body.String()).To(ContainSubstring(`url: "/api-doc/openapi.json"`))
	})
})
