package apns

// Reason is the rejection reason APNs returns in the body of a failed
// request. The set is open: Apple adds reasons over time, and an unrecognized
// string is carried through as-is rather than failing interpretation. Use
// Known to test membership in the documented set.
type Reason string

// Documented rejection reasons.
const (
	ReasonPayloadEmpty                Reason = "PayloadEmpty"
	ReasonPayloadTooLarge             Reason = "PayloadTooLarge"
	ReasonBadTopic                    Reason = "BadTopic"
	ReasonTopicDisallowed             Reason = "TopicDisallowed"
	ReasonBadMessageID                Reason = "BadMessageId"
	ReasonBadExpirationDate           Reason = "BadExpirationDate"
	ReasonBadPriority                 Reason = "BadPriority"
	ReasonMissingDeviceToken          Reason = "MissingDeviceToken"
	ReasonBadDeviceToken              Reason = "BadDeviceToken"
	ReasonDeviceTokenNotForTopic      Reason = "DeviceTokenNotForTopic"
	ReasonUnregistered                Reason = "Unregistered"
	ReasonDuplicateHeaders            Reason = "DuplicateHeaders"
	ReasonBadCertificateEnvironment   Reason = "BadCertificateEnvironment"
	ReasonBadCertificate              Reason = "BadCertificate"
	ReasonForbidden                   Reason = "Forbidden"
	ReasonBadPath                     Reason = "BadPath"
	ReasonMethodNotAllowed            Reason = "MethodNotAllowed"
	ReasonTooManyRequests             Reason = "TooManyRequests"
	ReasonTooManyProviderTokenUpdates Reason = "TooManyProviderTokenUpdates"
	ReasonExpiredProviderToken        Reason = "ExpiredProviderToken"
	ReasonInvalidProviderToken        Reason = "InvalidProviderToken"
	ReasonMissingProviderToken        Reason = "MissingProviderToken"
	ReasonExpiredTopic                Reason = "ExpiredTopic"
	ReasonIdleTimeout                 Reason = "IdleTimeout"
	ReasonShutdown                    Reason = "Shutdown"
	ReasonInternalServerError         Reason = "InternalServerError"
	ReasonServiceUnavailable          Reason = "ServiceUnavailable"
	ReasonMissingTopic                Reason = "MissingTopic"
	ReasonBadCollapseID               Reason = "BadCollapseId"
)

var reasonDescriptions = map[Reason]string{
	ReasonPayloadEmpty:                "the message payload was empty",
	ReasonPayloadTooLarge:             "the message payload was too large",
	ReasonBadTopic:                    "the apns-topic value was invalid",
	ReasonTopicDisallowed:             "pushing to this topic is not allowed",
	ReasonBadMessageID:                "the apns-id value was bad",
	ReasonBadExpirationDate:           "the apns-expiration value was bad",
	ReasonBadPriority:                 "the apns-priority value was bad",
	ReasonMissingDeviceToken:          "the device token was missing from the request path",
	ReasonBadDeviceToken:              "the device token was bad or does not match the environment",
	ReasonDeviceTokenNotForTopic:      "the device token does not match the specified topic",
	ReasonUnregistered:                "the device token is inactive for the specified topic",
	ReasonDuplicateHeaders:            "one or more headers were repeated",
	ReasonBadCertificateEnvironment:   "the client certificate was for the wrong environment",
	ReasonBadCertificate:              "the certificate was bad",
	ReasonForbidden:                   "the specified action is not allowed",
	ReasonBadPath:                     "the request contained a bad path value",
	ReasonMethodNotAllowed:            "the request method was not POST",
	ReasonTooManyRequests:             "too many requests were made consecutively to the same device token",
	ReasonTooManyProviderTokenUpdates: "the provider token is being updated too often",
	ReasonExpiredProviderToken:        "the provider token is stale and a new token should be generated",
	ReasonInvalidProviderToken:        "the provider token is not valid or its signature could not be verified",
	ReasonMissingProviderToken:        "no certificate was used to connect and the authorization header was missing",
	ReasonExpiredTopic:                "the topic is no longer valid for the app",
	ReasonIdleTimeout:                 "idle timeout",
	ReasonShutdown:                    "the server is shutting down",
	ReasonInternalServerError:         "an internal server error occurred",
	ReasonServiceUnavailable:          "the service is unavailable",
	ReasonMissingTopic:                "the apns-topic header was required but not specified",
	ReasonBadCollapseID:               "the apns-collapse-id value was bad",
}

// Known reports whether the reason is part of the documented set. Future
// reason strings Apple introduces report false but are otherwise usable.
func (r Reason) Known() bool {
	_, ok := reasonDescriptions[r]
	return ok
}

// Description returns the documented meaning of the reason, or the raw
// string for reasons this library does not know yet.
func (r Reason) Description() string {
	if desc, ok := reasonDescriptions[r]; ok {
		return desc
	}
	return string(r)
}

// ShouldRemoveToken reports whether the rejection means the device token is
// permanently unusable for this topic and should be dropped from storage.
func (r Reason) ShouldRemoveToken() bool {
	switch r {
	case ReasonUnregistered, ReasonBadDeviceToken, ReasonDeviceTokenNotForTopic:
		return true
	}
	return false
}

// Retryable reports whether the same notification may reasonably be
// resubmitted later. Anything else indicates a problem with the request or
// the provider configuration that a retry will not fix.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonTooManyRequests, ReasonIdleTimeout, ReasonShutdown,
		ReasonInternalServerError, ReasonServiceUnavailable,
		ReasonExpiredProviderToken:
		return true
	}
	return false
}
