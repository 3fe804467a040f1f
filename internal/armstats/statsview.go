//go:build statsview

package armstats

import (
	"expvar"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const Address = "localhost:12601"
const url = "/debug/statsview"

var stepCount int64

func init() {
	expvar.Publish("armcore_steps", expvar.Func(func() interface{} {
		return atomic.LoadInt64(&stepCount)
	}))
}

// RecordStep increments the step counter the dashboard reports.
func RecordStep() {
	atomic.AddInt64(&stepCount, 1)
}

// Launch starts the statsview server in a new goroutine.
func Launch(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(Address))
		mgr := statsview.New()
		mgr.Start()
	}()

	output.Write([]byte(fmt.Sprintf("stats server available at %s%s (step count at /debug/vars)\n", Address, url)))
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return true
}
