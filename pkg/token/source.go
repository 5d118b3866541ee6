package token

import (
	"sync"
	"time"
)

// DefaultRefreshInterval is how long a minted token is served before it is
// replaced. APNs rejects provider tokens older than an hour with
// ExpiredProviderToken; the 5-minute margin keeps a token fetched just before
// the boundary from expiring while its request is still in flight.
const DefaultRefreshInterval = 55 * time.Minute

// TokenSigner mints a bearer token for a given issuance time. *Signer is the
// production implementation; tests substitute counting fakes.
type TokenSigner interface {
	Sign(issuedAt time.Time) (string, error)
}

// Source caches the most recently minted token and re-signs transparently
// once it passes the refresh interval. One Source is shared by every request
// a client sends; reads of a fresh token take only an RLock, and concurrent
// callers that observe a stale token coalesce into a single signing.
type Source struct {
	signer          TokenSigner
	refreshInterval time.Duration
	now             func() time.Time

	mu       sync.RWMutex
	bearer   string
	issuedAt time.Time
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithRefreshInterval overrides DefaultRefreshInterval. Keep it under Apple's
// hard one-hour limit with some margin. A zero or negative interval disables
// caching and signs every call.
func WithRefreshInterval(d time.Duration) SourceOption {
	return func(s *Source) { s.refreshInterval = d }
}

// NewSource returns a Source serving tokens minted by signer.
func NewSource(signer TokenSigner, opts ...SourceOption) *Source {
	s := &Source{
		signer:          signer,
		refreshInterval: DefaultRefreshInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bearer returns a token valid for at least the remainder of the refresh
// interval, minting a new one if the cached token is missing or stale.
func (s *Source) Bearer() (string, error) {
	s.mu.RLock()
	bearer := s.bearer
	fresh := s.isFresh()
	s.mu.RUnlock()
	if fresh {
		return bearer, nil
	}
	return s.refresh()
}

// refresh re-signs under the write lock. Callers that queued behind the first
// stale observer re-check freshness and return the token that caller minted.
func (s *Source) refresh() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isFresh() {
		return s.bearer, nil
	}
	issuedAt := s.now()
	bearer, err := s.signer.Sign(issuedAt)
	if err != nil {
		return "", err
	}
	s.bearer = bearer
	s.issuedAt = issuedAt
	return bearer, nil
}

// isFresh reports whether the cached token can still be served. Callers must
// hold at least a read lock.
func (s *Source) isFresh() bool {
	return s.bearer != "" && s.now().Sub(s.issuedAt) < s.refreshInterval
}
