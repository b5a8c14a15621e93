package serial

import (
	"time"

	"github.com/google/uuid"
)

// Request is an immutable request/response transaction unit for a
// RequestQueue. A Request with no ResponseEvaluator completes as soon
// as its bytes are written.
type Request struct {
	uuid      uuid.UUID
	data      []byte
	userInfo  any
	timeout   time.Duration
	predicate ResponseEvaluator
}

// InfiniteTimeout marks a Request as never timing out, the Go spelling
// of the original's negative timeoutInterval (original_source's
// ORSSerialRequest.h documents -1.0 as "wait forever").
const InfiniteTimeout time.Duration = -1

// NewRequest builds a Request that sends data and completes immediately
// once written, with no expected response.
func NewRequest(data []byte, userInfo any) *Request {
	return &Request{uuid: uuid.New(), data: cloneBytes(data), userInfo: userInfo, timeout: InfiniteTimeout}
}

// NewRequestExpectingResponse builds a Request whose completion is
// gated on predicate returning true against the port's buffer
// contents, or on timeout elapsing since the request went in-flight.
// A negative timeout means wait forever.
func NewRequestExpectingResponse(data []byte, userInfo any, timeout time.Duration, predicate ResponseEvaluator) *Request {
	return &Request{
		uuid:      uuid.New(),
		data:      cloneBytes(data),
		userInfo:  userInfo,
		timeout:   timeout,
		predicate: predicate,
	}
}

func (r *Request) UUID() uuid.UUID        { return r.uuid }
func (r *Request) Data() []byte           { return cloneBytes(r.data) }
func (r *Request) UserInfo() any          { return r.userInfo }
func (r *Request) Timeout() time.Duration { return r.timeout }

// expectsResponse reports whether the request must wait for a matching
// response before the queue advances.
func (r *Request) expectsResponse() bool { return r.predicate != nil }
