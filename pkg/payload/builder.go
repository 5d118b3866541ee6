// Package payload builds APNs notification bodies: the reserved aps
// dictionary plus any application-specific keys alongside it.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Size limits enforced before a request leaves the process. Apple drops
// oversized notifications, on some paths without a useful response body.
const (
	// MaxSize is the payload limit for every push type except VoIP.
	MaxSize = 4096
	// MaxSizeVoIP is the payload limit for the voip push type.
	MaxSizeVoIP = 5120
)

// ErrReservedKey is returned when custom data tries to occupy the aps key.
var ErrReservedKey = errors.New("payload: \"aps\" is a reserved key")

// aps is the Apple-defined dictionary at the root of every payload.
type aps struct {
	Alert            any    `json:"alert,omitempty"`
	Badge            *int   `json:"badge,omitempty"`
	Sound            string `json:"sound,omitempty"`
	ContentAvailable int    `json:"content-available,omitempty"`
	MutableContent   int    `json:"mutable-content,omitempty"`
	Category         string `json:"category,omitempty"`
	ThreadID         string `json:"thread-id,omitempty"`
}

// Alert is the rich form of the alert dictionary, used when anything beyond
// a plain body string is set.
type Alert struct {
	Title           string   `json:"title,omitempty"`
	Subtitle        string   `json:"subtitle,omitempty"`
	Body            string   `json:"body,omitempty"`
	TitleLocKey     string   `json:"title-loc-key,omitempty"`
	TitleLocArgs    []string `json:"title-loc-args,omitempty"`
	SubtitleLocKey  string   `json:"subtitle-loc-key,omitempty"`
	SubtitleLocArgs []string `json:"subtitle-loc-args,omitempty"`
	LocKey          string   `json:"loc-key,omitempty"`
	LocArgs         []string `json:"loc-args,omitempty"`
	ActionLocKey    string   `json:"action-loc-key,omitempty"`
	LaunchImage     string   `json:"launch-image,omitempty"`
}

// Builder assembles a payload through chained calls and serializes it on
// demand. The zero value is not usable; start with NewBuilder. Builders are
// not safe for concurrent mutation; build first, then share the notification.
type Builder struct {
	aps    aps
	custom map[string]any
	err    error
}

// NewBuilder returns an empty payload builder.
func NewBuilder() *Builder {
	return &Builder{custom: make(map[string]any)}
}

// Alert sets a plain-text alert. Any rich alert fields set before or after
// win over the plain form; the body string carries into the dictionary.
func (b *Builder) Alert(body string) *Builder {
	if alert, ok := b.aps.Alert.(*Alert); ok {
		alert.Body = body
		return b
	}
	b.aps.Alert = body
	return b
}

// dictAlert upgrades the alert to its dictionary form, keeping a previously
// set plain body.
func (b *Builder) dictAlert() *Alert {
	switch alert := b.aps.Alert.(type) {
	case *Alert:
		return alert
	case string:
		rich := &Alert{Body: alert}
		b.aps.Alert = rich
		return rich
	default:
		rich := &Alert{}
		b.aps.Alert = rich
		return rich
	}
}

// AlertTitle sets the alert title.
func (b *Builder) AlertTitle(title string) *Builder {
	b.dictAlert().Title = title
	return b
}

// AlertSubtitle sets the alert subtitle.
func (b *Builder) AlertSubtitle(subtitle string) *Builder {
	b.dictAlert().Subtitle = subtitle
	return b
}

// AlertBody sets the alert body.
func (b *Builder) AlertBody(body string) *Builder {
	b.dictAlert().Body = body
	return b
}

// AlertLocKey sets the localization key for the alert body.
func (b *Builder) AlertLocKey(key string) *Builder {
	b.dictAlert().LocKey = key
	return b
}

// AlertLocArgs sets the arguments substituted into the localized body.
func (b *Builder) AlertLocArgs(args ...string) *Builder {
	b.dictAlert().LocArgs = args
	return b
}

// AlertTitleLocKey sets the localization key for the alert title.
func (b *Builder) AlertTitleLocKey(key string) *Builder {
	b.dictAlert().TitleLocKey = key
	return b
}

// AlertTitleLocArgs sets the arguments substituted into the localized title.
func (b *Builder) AlertTitleLocArgs(args ...string) *Builder {
	b.dictAlert().TitleLocArgs = args
	return b
}

// AlertActionLocKey sets the localization key for the action button.
func (b *Builder) AlertActionLocKey(key string) *Builder {
	b.dictAlert().ActionLocKey = key
	return b
}

// AlertLaunchImage sets the launch image shown when the user opens the app
// from the notification.
func (b *Builder) AlertLaunchImage(image string) *Builder {
	b.dictAlert().LaunchImage = image
	return b
}

// Badge sets the number shown on the app icon.
func (b *Builder) Badge(n int) *Builder {
	b.aps.Badge = &n
	return b
}

// ZeroBadge clears the badge on the device. Distinct from leaving the badge
// unset, which keeps the current value.
func (b *Builder) ZeroBadge() *Builder {
	zero := 0
	b.aps.Badge = &zero
	return b
}

// Sound sets the sound file played on delivery.
func (b *Builder) Sound(name string) *Builder {
	b.aps.Sound = name
	return b
}

// Category names the notification category whose actions the system shows.
func (b *Builder) Category(category string) *Builder {
	b.aps.Category = category
	return b
}

// ThreadID groups related notifications in the notification center.
func (b *Builder) ThreadID(id string) *Builder {
	b.aps.ThreadID = id
	return b
}

// ContentAvailable marks the payload as a silent background update.
func (b *Builder) ContentAvailable() *Builder {
	b.aps.ContentAvailable = 1
	return b
}

// MutableContent lets a notification service extension rewrite the content
// before display.
func (b *Builder) MutableContent() *Builder {
	b.aps.MutableContent = 1
	return b
}

// Custom adds an application-specific key next to the aps dictionary. The
// aps key itself is reserved: claiming it records ErrReservedKey instead of
// silently overwriting the notification content.
func (b *Builder) Custom(key string, value any) *Builder {
	if key == "aps" {
		if b.err == nil {
			b.err = ErrReservedKey
		}
		return b
	}
	b.custom[key] = value
	return b
}

// Err reports the first build error recorded on the chain.
func (b *Builder) Err() error {
	return b.err
}

// MarshalJSON serializes the payload, surfacing any build error recorded by
// the chain.
func (b *Builder) MarshalJSON() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	root := make(map[string]any, len(b.custom)+1)
	for key, value := range b.custom {
		root[key] = value
	}
	root["aps"] = b.aps
	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("payload: failed to serialize: %w", err)
	}
	return data, nil
}
