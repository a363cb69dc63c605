package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/telemetry"
)

type capturedPost struct {
	path string
	form url.Values
}

var _ = Describe("HTTPReporter", func() {
	var (
		ctx      context.Context
		mu       sync.Mutex
		posts    []capturedPost
		response string
		status   int
		server   *httptest.Server
		reporter *telemetry.HTTPReporter
	)

	BeforeEach(func() {
		ctx = context.Background()
		posts = nil
		response = "id=42"
		status = http.StatusOK

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()

			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/x-www-form-urlencoded"))
			Expect(r.ParseForm()).To(Succeed())

			mu.Lock()
			posts = append(posts, capturedPost{path: r.URL.Path, form: r.PostForm})
			mu.Unlock()

			w.WriteHeader(status)
			_, _ = w.Write([]byte(response))
		}))
		DeferCleanup(server.Close)

		reporter = telemetry.NewHTTPReporter(server.URL+"/stats", telemetry.WithHTTPClient(server.Client()))
	})

	Describe("AssignID", func() {
		It("parses id=N", func() {
			Expect(reporter.AssignID(ctx, "v1.2")).To(Equal(42))
			Expect(posts).To(HaveLen(1))
			Expect(posts[0].path).To(Equal("/stats/get_id.php"))
			Expect(posts[0].form.Get("version")).To(Equal("v1.2"))
		})

		DescribeTable("returns NoID on anything else",
			func(body string, code int) {
				response = body
				status = code

				Expect(reporter.AssignID(ctx, "v1")).To(Equal(telemetry.NoID))
			},
			Entry("wrong key", "uid=42", http.StatusOK),
			Entry("not a number", "id=abc", http.StatusOK),
			Entry("empty body", "", http.StatusOK),
			Entry("server error", "id=42", http.StatusInternalServerError),
		)

		It("returns NoID when the backend is unreachable", func() {
			server.Close()

			Expect(reporter.AssignID(ctx, "v1")).To(Equal(telemetry.NoID))
		})
	})

	Describe("UpdateVersion", func() {
		It("posts the formatted tag and id", func() {
			reporter.UpdateVersion(ctx, 7, "1.2.10")

			Expect(posts).To(HaveLen(1))
			Expect(posts[0].path).To(Equal("/stats/update_ver.php"))
			Expect(posts[0].form.Get("version")).To(Equal("01.02.10"))
			Expect(posts[0].form.Get("id")).To(Equal("7"))
		})

		It("never panics or blocks on failure", func() {
			status = http.StatusBadGateway

			done := make(chan struct{})

			go func() {
				reporter.UpdateVersion(ctx, 7, "1.0")
				close(done)
			}()

			Eventually(done).WithTimeout(time.Second).Should(BeClosed())
		})
	})

	Describe("ReportError", func() {
		It("truncates long messages", func() {
			reporter.ReportError(ctx, 3, "v1", strings.Repeat("x", 300))

			Expect(posts).To(HaveLen(1))
			Expect(posts[0].path).To(Equal("/stats/send_error.php"))

			msg := posts[0].form.Get("error")
			Expect(msg).To(HaveLen(telemetry.MaxErrorLength))
			Expect(msg).To(HaveSuffix("..."))
			Expect(posts[0].form.Get("id")).To(Equal("3"))
			Expect(posts[0].form.Get("version")).To(Equal("v1"))
		})
	})
})

var _ = Describe("FormatVersionTag", func() {
	DescribeTable("pads single-character components",
		func(in, want string) {
			Expect(telemetry.FormatVersionTag(in)).To(Equal(want))
		},
		Entry("mixed", "1.2.10", "01.02.10"),
		Entry("already padded", "01.02.10", "01.02.10"),
		Entry("single component", "7", "07"),
		Entry("prefixed", "v1.2", "v1.02"),
		Entry("empty", "", "na"),
	)
})

var _ = Describe("Truncate", func() {
	It("leaves short strings alone", func() {
		Expect(telemetry.Truncate("short", 256)).To(Equal("short"))
	})

	It("counts runes", func() {
		got := telemetry.Truncate(strings.Repeat("é", 10), 5)
		Expect(got).To(Equal("éé..."))
	})
})

var _ = Describe("Nop", func() {
	It("never assigns an id", func() {
		var r telemetry.Reporter = telemetry.Nop{}
		Expect(r.AssignID(context.Background(), "v1")).To(Equal(telemetry.NoID))
	})
})
