// Package gtfsrttest builds GTFS-Realtime fixtures for tests.
package gtfsrttest

import (
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

// HeaderTimestamp is the header timestamp of SampleFeed.
const HeaderTimestamp = 1710460800

// SampleFeed returns a feed of two trip updates: the first has one stop-time
// update at stop 1120 with a 45s arrival delay, the second has none.
func SampleFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(HeaderTimestamp),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{
						TripId:    proto.String("02-CRB--1-T2-4104"),
						RouteId:   proto.String("aus:vic:vic-02-CRB:"),
						StartTime: proto.String("08:10:00"),
						StartDate: proto.String("20240315"),
					},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{
							StopSequence: proto.Uint32(1),
							StopId:       proto.String("1120"),
							Arrival:      &gtfs.TripUpdate_StopTimeEvent{Delay: proto.Int32(45)},
						},
					},
					Timestamp: proto.Uint64(HeaderTimestamp - 30),
				},
			},
			{
				Id: proto.String("2"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{
						TripId:  proto.String("02-CRB--1-T2-4106"),
						RouteId: proto.String("aus:vic:vic-02-CRB:"),
					},
				},
			},
		},
	}
}

// FeedWithEntities returns a valid feed of n empty trip updates.
func FeedWithEntities(n int) *gtfs.FeedMessage {
	fm := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
	}
	for i := 0; i < n; i++ {
		fm.Entity = append(fm.Entity, &gtfs.FeedEntity{
			Id:         proto.String(string(rune('a' + i%26))),
			TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{}},
		})
	}
	return fm
}

// Marshal encodes fm, failing the test on error.
func Marshal(t testing.TB, fm *gtfs.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(fm)
	require.NoError(t, err)
	return b
}
