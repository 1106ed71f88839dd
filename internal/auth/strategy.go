package auth

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the upstream signing scheme is HMAC-SHA1
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tripfeed/tripfeed/internal/config"
)

// Attempt is one authenticated upstream request.
type Attempt struct {
	URL    string
	Header http.Header
	// Label names how the credential is carried, e.g. the header name.
	Label string
}

// Plan is the ordered list of attempts for one fetch. The fetcher only moves
// to the second attempt when the first is rejected with 401 or 403.
type Plan struct {
	Scheme   string
	Attempts []Attempt
	// RedactedURL is the primary target with any secret removed.
	RedactedURL string
}

// Strategy prepares authenticated attempts for a target URL.
type Strategy interface {
	Name() string
	Prepare(target string) (*Plan, error)
}

// NewStrategy builds the strategy named by cfg.AuthScheme. Secrets are read
// from src each time Prepare runs.
func NewStrategy(cfg config.UpstreamConfig, src config.Source) (Strategy, error) {
	switch cfg.AuthScheme {
	case config.SchemeHeader, "":
		header := cfg.Header
		if header == "" {
			header = config.DefaultHeader
		}
		return &HeaderStrategy{
			Source:         src,
			Header:         header,
			FallbackHeader: cfg.FallbackHeader,
		}, nil
	case config.SchemeHMAC:
		return &HMACStrategy{Source: src}, nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q", cfg.AuthScheme)
	}
}

// HeaderStrategy sends the API key in a request header, with an optional
// second attempt using a fallback header name.
type HeaderStrategy struct {
	Source         config.Source
	Header         string
	FallbackHeader string
}

// Name implements Strategy.
func (s *HeaderStrategy) Name() string {
	return config.SchemeHeader
}

// Prepare implements Strategy.
func (s *HeaderStrategy) Prepare(target string) (*Plan, error) {
	key, err := lookup(s.Source, config.KeyAPIKey)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Scheme:      s.Name(),
		RedactedURL: target,
		Attempts:    []Attempt{headerAttempt(target, s.Header, key)},
	}
	if s.FallbackHeader != "" && !strings.EqualFold(s.FallbackHeader, s.Header) {
		plan.Attempts = append(plan.Attempts, headerAttempt(target, s.FallbackHeader, key))
	}
	return plan, nil
}

func headerAttempt(target, name string, key Credential) Attempt {
	h := make(http.Header)
	h.Set(name, key.Reveal())
	return Attempt{URL: target, Header: h, Label: name}
}

// HMACStrategy signs the request path and query with the developer key.
type HMACStrategy struct {
	Source config.Source
}

// Name implements Strategy.
func (s *HMACStrategy) Name() string {
	return config.SchemeHMAC
}

// Prepare implements Strategy. devid is appended as the last query parameter
// before signing, and signature is appended after it.
func (s *HMACStrategy) Prepare(target string) (*Plan, error) {
	key, err := lookup(s.Source, config.KeyAPIKey)
	if err != nil {
		return nil, err
	}
	devID, err := lookup(s.Source, config.KeyDevID)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target url: %w", err)
	}

	query := "devid=" + url.QueryEscape(devID.Reveal())
	if u.RawQuery != "" {
		query = u.RawQuery + "&" + query
	}
	canonical := u.EscapedPath() + "?" + query
	signature := Sign(key.Reveal(), canonical)

	origin := u.Scheme + "://" + u.Host
	return &Plan{
		Scheme:      s.Name(),
		RedactedURL: origin + canonical + "&signature=REDACTED",
		Attempts: []Attempt{{
			URL:    origin + canonical + "&signature=" + signature,
			Header: make(http.Header),
			Label:  "signature",
		}},
	}, nil
}

// Sign returns the lowercase hex HMAC-SHA1 of canonicalPath keyed by secret.
func Sign(secret, canonicalPath string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(canonicalPath))
	return hex.EncodeToString(mac.Sum(nil))
}
