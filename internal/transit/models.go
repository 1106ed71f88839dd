// Package transit defines transit modes, the mode-to-feed-segment mapping and
// the error taxonomy shared by the trip-updates pipeline.
package transit

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is a transit vehicle category a client can request a feed for.
type Mode string

const (
	ModeTram  Mode = "tram"
	ModeBus   Mode = "bus"
	ModeTrain Mode = "train"
)

// Modes lists every supported mode in a stable order.
var Modes = []Mode{ModeTram, ModeBus, ModeTrain}

// String returns the mode token.
func (m Mode) String() string {
	return string(m)
}

// ParseMode case-folds raw and matches it against the supported modes.
// There is no trimming, aliasing or fuzzy matching.
func ParseMode(raw string) (Mode, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: mode is required", ErrInvalidMode)
	}

	folded := Mode(strings.ToLower(raw))
	for _, m := range Modes {
		if folded == m {
			return m, nil
		}
	}

	return "", fmt.Errorf("%w: %q (use tram|bus|train)", ErrInvalidMode, raw)
}

// ResolveMode picks the mode token from the query parameter, falling back to
// the path segment, and parses it.
func ResolveMode(query, pathSegment string) (Mode, error) {
	if query != "" {
		return ParseMode(query)
	}
	return ParseMode(pathSegment)
}

// SegmentMap maps each Mode to the upstream feed segment. It is immutable
// once built.
type SegmentMap struct {
	segments map[Mode]string
}

// NewSegmentMap builds a SegmentMap. Every mode must map to a non-empty segment.
func NewSegmentMap(segments map[Mode]string) (SegmentMap, error) {
	copied := make(map[Mode]string, len(Modes))
	for _, m := range Modes {
		seg := segments[m]
		if seg == "" {
			return SegmentMap{}, fmt.Errorf("missing feed segment for mode %q", m)
		}
		copied[m] = seg
	}
	for m := range segments {
		if _, ok := copied[m]; !ok {
			return SegmentMap{}, fmt.Errorf("unknown mode %q in feed segments", m)
		}
	}
	return SegmentMap{segments: copied}, nil
}

// DefaultSegments returns the Open Data API segments. Trains are served by
// the "metro" feed.
func DefaultSegments() map[Mode]string {
	return map[Mode]string{
		ModeTram:  "tram",
		ModeBus:   "bus",
		ModeTrain: "metro",
	}
}

// RouteTypeSegments returns the timetable API route_types used by the
// HMAC-signed deployment.
func RouteTypeSegments() map[Mode]string {
	return map[Mode]string{
		ModeTrain: "0",
		ModeTram:  "1",
		ModeBus:   "2",
	}
}

// Segment returns the feed segment for m, or "" for an unknown mode.
func (s SegmentMap) Segment(m Mode) string {
	return s.segments[m]
}

// All returns a copy of the mapping.
func (s SegmentMap) All() map[Mode]string {
	out := make(map[Mode]string, len(s.segments))
	for k, v := range s.segments {
		out[k] = v
	}
	return out
}

// Pipeline errors.
var (
	ErrInvalidMode  = errors.New("invalid mode")
	ErrUpstream     = errors.New("upstream error")
	ErrTimeout      = errors.New("upstream timeout")
	ErrDecodeFailed = errors.New("decode failed")
)

// UpstreamError describes a failed upstream call. StatusCode is zero when the
// upstream never answered (network failure, timeout, open circuit).
type UpstreamError struct {
	StatusCode  int
	ContentType string
	BodyPreview string
	Hint        string
	Timeout     bool
	Err         error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("upstream timeout: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	default:
		return "upstream request failed"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches ErrUpstream for every upstream failure and ErrTimeout for timeouts.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrTimeout:
		return e.Timeout
	}
	return false
}

// DecodeError reports a body that could not be decoded as a GTFS-Realtime feed.
type DecodeError struct {
	ContentType string
	ByteLength  int
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (%d bytes, content-type %q): %v", e.ByteLength, e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches ErrDecodeFailed.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecodeFailed
}
