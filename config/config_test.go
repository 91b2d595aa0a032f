package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/blog-metadata/config"
)

var _ = Describe("Load", func() {
	// Keys managed by these tests, saved and restored around each spec.
	var envKeys = []string{
		"HOST", "PORT", "ACCESS_CONTROL_ALLOW_ORIGIN",
		"UMAMI_URL", "UMAMI_USERNAME", "UMAMI_PASSWORD", "UMAMI_WEBSITE_ID",
		"FEDIVERSE_URL", "FEDIVERSE_USER_ID", "ZLENDY_URL",
		"CACHE_TTL", "UPSTREAM_TIMEOUT", "REQUEST_TIMEOUT", "MAX_CONCURRENT_REQUESTS",
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "HEALTH_CHECK_INTERVAL", "SHUTDOWN_TIMEOUT",
	}

	required := map[string]string{
		"UMAMI_URL":         "https://umami.example.com",
		"UMAMI_USERNAME":    "admin",
		"UMAMI_PASSWORD":    "secret",
		"UMAMI_WEBSITE_ID":  "site-1",
		"FEDIVERSE_URL":     "https://social.example.com",
		"FEDIVERSE_USER_ID": "user-1",
		"ZLENDY_URL":        "https://blog.example.com",
	}

	var saved map[string]string

	setRequired := func() {
		for k, v := range required {
			Expect(os.Setenv(k, v)).To(Succeed())
		}
	}

	BeforeEach(func() {
		saved = make(map[string]string, len(envKeys))
		for _, k := range envKeys {
			saved[k] = os.Getenv(k)
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	AfterEach(func() {
		for k, v := range saved {
			if v == "" {
				Expect(os.Unsetenv(k)).To(Succeed())
			} else {
				Expect(os.Setenv(k, v)).To(Succeed())
			}
		}
	})

	It("returns defaults when only the upstream variables are set", func() {
		setRequired()

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Host).To(Equal("0.0.0.0"))
		Expect(cfg.Port).To(Equal(3000))
		Expect(cfg.ListenAddr()).To(Equal("0.0.0.0:3000"))
		Expect(cfg.CORSOrigins).To(BeEmpty())
		Expect(cfg.CacheTTL).To(Equal(5 * time.Minute))
		Expect(cfg.UpstreamTimeout).To(Equal(10 * time.Second))
		Expect(cfg.RequestTimeout).To(Equal(30 * time.Second))
		Expect(cfg.MaxConcurrentRequests).To(Equal(64))
		Expect(cfg.RateLimitRequests).To(Equal(120))
		Expect(cfg.RateLimitWindow).To(Equal(time.Minute))
		Expect(cfg.HealthCheckInterval).To(Equal(30 * time.Second))
		Expect(cfg.ShutdownTimeout).To(Equal(15 * time.Second))
	})

	It("reads the upstream variables", func() {
		setRequired()

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.UmamiURL).To(Equal("https://umami.example.com"))
		Expect(cfg.UmamiUsername).To(Equal("admin"))
		Expect(cfg.UmamiPassword).To(Equal("secret"))
		Expect(cfg.UmamiWebsiteID).To(Equal("site-1"))
		Expect(cfg.FediverseURL).To(Equal("https://social.example.com"))
		Expect(cfg.FediverseUserID).To(Equal("user-1"))
		Expect(cfg.IndexURL).To(Equal("https://blog.example.com"))
	})

	It("returns an error when a required variable is missing", func() {
		setRequired()
		Expect(os.Unsetenv("UMAMI_PASSWORD")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("UMAMI_PASSWORD"))
	})

	It("splits the allowed origins on commas", func() {
		setRequired()
		Expect(os.Setenv("ACCESS_CONTROL_ALLOW_ORIGIN", "https://a.example,https://b.example")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CORSOrigins).To(Equal([]string{"https://a.example", "https://b.example"}))
	})

	It("reads host and port", func() {
		setRequired()
		Expect(os.Setenv("HOST", "127.0.0.1")).To(Succeed())
		Expect(os.Setenv("PORT", "8080")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ListenAddr()).To(Equal("127.0.0.1:8080"))
	})

	It("reads duration values from env vars", func() {
		setRequired()
		Expect(os.Setenv("CACHE_TTL", "1m")).To(Succeed())
		Expect(os.Setenv("REQUEST_TIMEOUT", "5s")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CacheTTL).To(Equal(time.Minute))
		Expect(cfg.RequestTimeout).To(Equal(5 * time.Second))
	})

	It("returns an error for an invalid duration", func() {
		setRequired()
		Expect(os.Setenv("CACHE_TTL", "not-a-duration")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})

	It("returns an error for an invalid int", func() {
		setRequired()
		Expect(os.Setenv("PORT", "not-a-number")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})
})
