package gtfsrt

import (
	"errors"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/tripfeed/tripfeed/internal/transit"
)

// Decoder turns a raw feed body into a FeedMessage.
type Decoder interface {
	Decode(body []byte, contentType string) (*gtfs.FeedMessage, error)
}

// ProtoDecoder decodes the protobuf wire format.
type ProtoDecoder struct{}

var errEmptyBody = errors.New("empty body")

// Decode implements Decoder. Failures are *transit.DecodeError.
func (ProtoDecoder) Decode(body []byte, contentType string) (*gtfs.FeedMessage, error) {
	if len(body) == 0 {
		return nil, &transit.DecodeError{ContentType: contentType, Err: errEmptyBody}
	}

	var fm gtfs.FeedMessage
	if err := proto.Unmarshal(body, &fm); err != nil {
		return nil, &transit.DecodeError{ContentType: contentType, ByteLength: len(body), Err: err}
	}
	return &fm, nil
}
