// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app_test

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/net/http2"

	"rivaas.dev/mvc/app"
	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/controller"
	"rivaas.dev/mvc/logging"
)

type pagesController struct {
	controller.Base
}

func newPages() controller.Controller {
	c := &pagesController{}
	c.Action("home", func(context.Context) error {
		return c.Text(http.StatusOK, "home via "+c.URL("root"))
	})
	c.Action("about", func(context.Context) error {
		return c.Text(http.StatusOK, "about")
	})

	return c
}

const homeOnly = `
routes:
  - root: pages#home
`

const homeAndAbout = `
routes:
  - root: pages#home
  - get: /about
    to: pages#about
    as: about
`

var _ = Describe("App Integration", func() {
	var (
		routesFile string
		settings   *config.Settings
		logs       *logging.TestHelper
		cancel     context.CancelFunc
		done       chan error
		addr       string
	)

	start := func(opts ...app.Option) *app.App {
		reg := controller.NewRegistry()
		reg.MustRegister("pages", newPages)

		a, err := app.New(append([]app.Option{
			app.WithSettings(settings),
			app.WithControllers(reg),
			app.WithLogger(logs.Logger),
			app.WithOutput(io.Discard),
		}, opts...)...)
		Expect(err).NotTo(HaveOccurred())

		ready := make(chan struct{})
		a.OnReady(func() { close(ready) })

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr = ln.Addr().String()

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- a.Serve(ctx, ln) }()
		Eventually(ready).Should(BeClosed())

		return a
	}

	get := func(client *http.Client, path string) (*http.Response, string) {
		resp, err := client.Get("http://" + addr + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		return resp, string(b)
	}

	BeforeEach(func() {
		routesFile = filepath.Join(GinkgoT().TempDir(), "routes.yaml")
		Expect(os.WriteFile(routesFile, []byte(homeOnly), 0o600)).To(Succeed())

		s := config.DefaultSettings()
		s.Environment = "test"
		s.RoutesFile = routesFile
		s.Server.ShutdownTimeout = 2 * time.Second
		settings = &s
		logs = logging.NewTestHelper(GinkgoT())
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		}
		cancel = nil
	})

	Describe("Serving", func() {
		It("dispatches routes read from the routes file", func() {
			start()

			resp, body := get(http.DefaultClient, "/")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("home via /"))
		})

		It("speaks HTTP/2 over cleartext when h2c is enabled", func() {
			settings.Server.H2C = true
			start()

			client := &http.Client{Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					return (&net.Dialer{}).DialContext(ctx, network, addr)
				},
			}}
			resp, body := get(client, "/")
			Expect(resp.ProtoMajor).To(Equal(2))
			Expect(body).To(Equal("home via /"))
		})

		It("exposes Prometheus metrics next to the application", func() {
			settings.Metrics.Enabled = true
			start()

			get(http.DefaultClient, "/")
			resp, body := get(http.DefaultClient, "/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("mvc_pool_acquisitions"))
			Expect(body).To(ContainSubstring("http_server_request_duration"))
		})
	})

	Describe("Hot reload", func() {
		It("picks up routes file changes without a restart", func() {
			settings.HotReload = true
			a := start()

			reloaded := make(chan error, 4)
			a.OnReload(func(_ context.Context, err error) { reloaded <- err })

			resp, _ := get(http.DefaultClient, "/about")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			Expect(os.WriteFile(routesFile, []byte(homeAndAbout), 0o600)).To(Succeed())
			Eventually(reloaded, 3*time.Second).Should(Receive(BeNil()))

			resp, body := get(http.DefaultClient, "/about")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("about"))
			Expect(a.Router().Helpers().URL("about")).To(Equal("/about"))
		})

		It("keeps serving the previous table when the new file is broken", func() {
			settings.HotReload = true
			a := start()

			reloaded := make(chan error, 4)
			a.OnReload(func(_ context.Context, err error) { reloaded <- err })

			Expect(os.WriteFile(routesFile, []byte("routes: [{}]"), 0o600)).To(Succeed())
			Eventually(reloaded, 3*time.Second).Should(Receive(HaveOccurred()))

			resp, _ := get(http.DefaultClient, "/")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(logs.ContainsLog("reload failed")).To(BeTrue())
		})

		It("ignores changes without hot reload", func() {
			start()

			Expect(os.WriteFile(routesFile, []byte(homeAndAbout), 0o600)).To(Succeed())
			Consistently(func() int {
				resp, _ := get(http.DefaultClient, "/about")
				return resp.StatusCode
			}, 300*time.Millisecond, 50*time.Millisecond).Should(Equal(http.StatusNotFound))
		})
	})
})

func TestAppIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "App Integration Suite")
}
