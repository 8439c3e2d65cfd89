package monitoring

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/kernel"
	"github.com/sarchlab/vmsim/mem/swap"
	"github.com/sarchlab/vmsim/noff"
)

var _ = Describe("Monitor", func() {
	var (
		k      *kernel.Kernel
		m      *Monitor
		server *httptest.Server
	)

	get := func(path string) (int, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, body
	}

	BeforeEach(func() {
		cfg := config.Default()
		cfg.NumPhysPages = 4
		cfg.PageSize = 128
		cfg.UserStackSize = 128

		var err error
		k, err = kernel.MakeBuilder().
			WithConfig(cfg).
			WithLoader(kernel.MemLoader{
				"prog": noff.Build(make([]byte, 128), nil, 0),
			}).
			WithFileSystem(swap.NewMemFileSystem()).
			WithLogger(log.New(io.Discard, "", 0)).
			Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = k.StartProcess("prog")
		Expect(err).NotTo(HaveOccurred())
		Expect(k.HandlePageFault(0)).To(Succeed())

		m = NewMonitor()
		m.profileDur = 10 * time.Millisecond
		m.RegisterKernel(k)

		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
		k.Shutdown()
	})

	It("should reject low port numbers", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should serve the configuration", func() {
		code, body := get("/api/config")
		Expect(code).To(Equal(http.StatusOK))

		cfg := config.Config{}
		Expect(json.Unmarshal(body, &cfg)).To(Succeed())
		Expect(cfg).To(Equal(k.Config()))
	})

	It("should list the frames", func() {
		code, body := get("/api/frames")
		Expect(code).To(Equal(http.StatusOK))

		rsp := framesRsp{}
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.NumFree).To(Equal(3))
		Expect(rsp.Frames).To(HaveLen(4))
		Expect(rsp.Frames[0].Occupied).To(BeTrue())
		Expect(rsp.Frames[0].VirtualPage).To(Equal(0))
		Expect(rsp.Frames[1].Occupied).To(BeFalse())
	})

	It("should print the memory map", func() {
		code, body := get("/api/memmap")
		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(k.MemoryMap()))
	})

	It("should list the processes", func() {
		code, body := get("/api/processes")
		Expect(code).To(Equal(http.StatusOK))

		var infos []map[string]any
		Expect(json.Unmarshal(body, &infos)).To(Succeed())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0]["name"]).To(Equal("prog"))
		Expect(infos[0]["status"]).To(Equal("running"))
		Expect(infos[0]["resident_pages"]).To(Equal([]any{0.0}))
	})

	It("should serialize one process", func() {
		code, body := get("/api/process/1")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should report unknown processes", func() {
		code, _ := get("/api/process/42")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should not route malformed pids", func() {
		code, _ := get("/api/process/abc")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars until they complete", func() {
		bar := m.CreateProgressBar("Workload", 10)
		bar.IncrementFinished(4)

		code, body := get("/api/progress")
		Expect(code).To(Equal(http.StatusOK))

		var bars []ProgressBarInfo
		Expect(json.Unmarshal(body, &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Workload"))
		Expect(bars[0].Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)

		_, body = get("/api/progress")
		Expect(string(body)).To(Equal("[]"))
	})

	It("should report resource usage", func() {
		code, body := get("/api/resource")
		Expect(code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		code, body := get("/api/profile")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should serve the web page", func() {
		code, body := get("/")
		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(HavePrefix("<!DOCTYPE html>"))
	})
})
