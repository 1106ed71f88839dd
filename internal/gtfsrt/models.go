// Package gtfsrt decodes GTFS-Realtime feeds and projects them into the
// stable JSON shape served to clients.
package gtfsrt

// Feed is a normalized FeedMessage.
type Feed struct {
	Header   Header   `json:"header"`
	Entities []Entity `json:"entities"`
}

// Header is the projected FeedHeader.
type Header struct {
	GtfsRealtimeVersion string `json:"gtfsRealtimeVersion"`
	Incrementality      string `json:"incrementality"`
	Timestamp           int64  `json:"timestamp"`
}

// Entity is one normalized FeedEntity. Every field is always present in the
// JSON output; absent upstream values are null or zero.
type Entity struct {
	ID              string           `json:"id"`
	IsDeleted       bool             `json:"isDeleted"`
	Trip            Trip             `json:"trip"`
	Timestamp       int64            `json:"timestamp"`
	StopTimeUpdates []StopTimeUpdate `json:"stopTimeUpdates"`
	FirstStop       *FirstStop       `json:"firstStop"`
	Vehicle         *Vehicle         `json:"vehicle"`
	Alert           *Alert           `json:"alert"`
}

// Trip is the projected TripDescriptor.
type Trip struct {
	TripID               *string `json:"tripId"`
	RouteID              *string `json:"routeId"`
	StartTime            *string `json:"startTime"`
	StartDate            *string `json:"startDate"`
	ScheduleRelationship string  `json:"scheduleRelationship"`
	DirectionID          *uint32 `json:"directionId"`
}

// StopTimeUpdate is one projected stop-time update.
type StopTimeUpdate struct {
	StopSequence         *uint32       `json:"stopSequence"`
	StopID               *string       `json:"stopId"`
	Arrival              StopTimeEvent `json:"arrival"`
	Departure            StopTimeEvent `json:"departure"`
	ScheduleRelationship string        `json:"scheduleRelationship"`
}

// StopTimeEvent is an arrival or departure prediction.
type StopTimeEvent struct {
	Delay       int32 `json:"delay"`
	Time        int64 `json:"time"`
	Uncertainty int32 `json:"uncertainty"`
}

// FirstStop summarizes the first stop-time update of a trip.
type FirstStop struct {
	StopID         *string `json:"stopId"`
	ArrivalDelay   int32   `json:"arrivalDelay"`
	DepartureDelay int32   `json:"departureDelay"`
}

// Vehicle is the projected VehiclePosition.
type Vehicle struct {
	VehicleID           *string `json:"vehicleId"`
	Label               *string `json:"label"`
	TripID              *string `json:"tripId"`
	RouteID             *string `json:"routeId"`
	Latitude            float32 `json:"latitude"`
	Longitude           float32 `json:"longitude"`
	Bearing             float32 `json:"bearing"`
	Speed               float32 `json:"speed"`
	CurrentStopSequence *uint32 `json:"currentStopSequence"`
	StopID              *string `json:"stopId"`
	CurrentStatus       string  `json:"currentStatus"`
	Timestamp           int64   `json:"timestamp"`
}

// Alert is the projected service Alert.
type Alert struct {
	Cause            string           `json:"cause"`
	Effect           string           `json:"effect"`
	Severity         string           `json:"severity"`
	HeaderText       *string          `json:"headerText"`
	DescriptionText  *string          `json:"descriptionText"`
	URL              *string          `json:"url"`
	ActivePeriods    []ActivePeriod   `json:"activePeriods"`
	InformedEntities []InformedEntity `json:"informedEntities"`
}

// ActivePeriod is an alert time window in epoch seconds. Zero means open.
type ActivePeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// InformedEntity is one selector an alert applies to.
type InformedEntity struct {
	AgencyID *string `json:"agencyId"`
	RouteID  *string `json:"routeId"`
	StopID   *string `json:"stopId"`
	TripID   *string `json:"tripId"`
}
