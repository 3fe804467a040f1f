//go:build !debug

package armlog

func init() {
	debugLog = &noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Printf(format string, a ...interface{}) {}
func (noOpLogger) Println(a ...interface{})                {}
