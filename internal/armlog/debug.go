//go:build debug

package armlog

import (
	"fmt"
	"log"
	"os"
)

type debugLoggerImpl struct {
	logger *log.Logger
}

func init() {
	debugLog = &debugLoggerImpl{
		logger: log.New(os.Stderr, "armcore: ", log.Lshortfile),
	}
}

func (d *debugLoggerImpl) Printf(format string, a ...interface{}) {
	d.logger.Output(3, fmt.Sprintf(format, a...))
}

func (d *debugLoggerImpl) Println(a ...interface{}) {
	d.logger.Output(3, fmt.Sprintln(a...))
}
