package utils

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var idSeq uint64

// GenMessageID generates a unique message ID using the current UTC
// nanosecond timestamp and an atomic sequence number.
// The format is "msg-<timestamp>-<seq>".
func GenMessageID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenRequestID returns a random request identifier used to correlate a
// digest invocation across logs and telemetry.
func GenRequestID() string {
	return uuid.NewString()
}
