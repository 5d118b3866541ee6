package apns

import (
	"encoding/json"
	"strconv"
	"time"
)

// Priority is the apns-priority header value.
type Priority int

const (
	// PriorityNormal delivers at a time that respects device power; pushes
	// may be grouped and throttled.
	PriorityNormal Priority = 5

	// PriorityHigh delivers immediately. Requires the notification to
	// trigger an alert, sound or badge; not valid for silent pushes.
	PriorityHigh Priority = 10
)

// PushType is the apns-push-type header value. Recent APNs features
// misbehave when the header is missing, so set it on every notification.
type PushType string

const (
	PushTypeAlert        PushType = "alert"
	PushTypeBackground   PushType = "background"
	PushTypeLocation     PushType = "location"
	PushTypeVOIP         PushType = "voip"
	PushTypeFileProvider PushType = "fileprovider"
	PushTypeMDM          PushType = "mdm"
	PushTypeLiveActivity PushType = "liveactivity"
	PushTypePushToTalk   PushType = "pushtotalk"
)

// EpochTime is a UNIX timestamp carried in the apns-expiration header.
type EpochTime int64

// String formats the timestamp the way the header expects it.
func (e EpochTime) String() string {
	return strconv.FormatInt(int64(e), 10)
}

// ExpireAt returns an expiration for the given wall-clock time. APNs stores
// the notification and retries delivery until then.
func ExpireAt(t time.Time) *EpochTime {
	e := EpochTime(t.UTC().Unix())
	return &e
}

// ExpireImmediately returns the explicit zero expiration: APNs attempts
// delivery once and discards the notification if the device is unreachable.
// Leaving Expiration nil instead lets the server apply its default.
func ExpireImmediately() *EpochTime {
	e := EpochTime(0)
	return &e
}

// Notification is one push request. It is immutable once submitted; build a
// fresh value per device token.
type Notification struct {
	// DeviceToken is the hex token identifying the app install, carried in
	// the request path.
	DeviceToken string

	// Topic is the bundle id of the target app. Required in token mode and
	// whenever the certificate covers multiple topics.
	Topic string

	// ApnsID is an optional canonical UUID identifying the notification.
	// When set, APNs echoes it back unchanged; when empty, the server
	// assigns one and the Response carries it.
	ApnsID string

	// CollapseID lets APNs coalesce multiple notifications into a single
	// visible one. At most 64 bytes.
	CollapseID string

	// Priority of delivery. The zero value leaves the header unset and the
	// server applies its default.
	Priority Priority

	// Expiration controls how long APNs stores an undeliverable
	// notification. See ExpireAt and ExpireImmediately.
	Expiration *EpochTime

	// PushType classifies the notification for delivery handling.
	PushType PushType

	// Payload is the request body: a *payload.Builder, a pre-serialized
	// string, []byte or json.RawMessage, or any JSON-marshalable value.
	Payload any
}

// payloadBytes serializes the payload. Pre-serialized forms pass through
// untouched.
func (n *Notification) payloadBytes() ([]byte, error) {
	switch p := n.Payload.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
