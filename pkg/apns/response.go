package apns

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Timestamp is the epoch-milliseconds value APNs attaches to some
// rejections, chiefly 410 Unregistered, marking the last time the device
// token was confirmed invalid for the topic.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON converts the millisecond epoch number from the wire.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("apns: bad timestamp %q: %w", data, err)
	}
	t.Time = time.Unix(ms/1000, 0)
	return nil
}

// Response is the interpreted outcome of one push request. Exactly one
// Response exists per submitted notification, regardless of how many
// requests share the connection.
type Response struct {
	// StatusCode is the HTTP status of the exchange. 200 means delivered to
	// APNs (not to the device; Apple makes no such promise).
	StatusCode int

	// ApnsID echoes the caller-supplied apns-id, or carries the id APNs
	// assigned when the caller left it unset.
	ApnsID string

	// Reason is set on rejections. Empty on success, and also empty when a
	// rejection carried an unparseable body.
	Reason Reason

	// Timestamp accompanies token-validity rejections.
	Timestamp Timestamp
}

// Sent reports whether APNs accepted the notification.
func (r *Response) Sent() bool {
	return r.StatusCode == http.StatusOK
}

// Err converts a rejection into a typed *Error, or nil if the notification
// was accepted.
func (r *Response) Err() error {
	if r.Sent() {
		return nil
	}
	return &Error{StatusCode: r.StatusCode, Reason: r.Reason, Timestamp: r.Timestamp}
}

// Error is an APNs rejection as an error value. It is only ever produced
// from a completed HTTP exchange; transport failures are *ConnectionError.
type Error struct {
	StatusCode int
	Reason     Reason
	Timestamp  Timestamp
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("apns: %s (%s)", e.Reason, e.Reason.Description())
	}
	return fmt.Sprintf("apns: request rejected with status %d", e.StatusCode)
}

// decodeResponse maps a completed HTTP exchange to the typed outcome. An
// unparseable error body still yields a usable Response with the status
// preserved; interpretation never fails.
func decodeResponse(res *http.Response) *Response {
	out := &Response{
		StatusCode: res.StatusCode,
		ApnsID:     res.Header.Get("apns-id"),
	}
	if out.Sent() {
		return out
	}
	var body struct {
		Reason    Reason    `json:"reason"`
		Timestamp Timestamp `json:"timestamp"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
		out.Reason = body.Reason
		out.Timestamp = body.Timestamp
	}
	return out
}
