package gtfsrt

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Defaults for absent enum fields.
const (
	DefaultScheduleRelationship = "SCHEDULED"
	DefaultVehicleStopStatus    = "IN_TRANSIT_TO"
	DefaultIncrementality       = "FULL_DATASET"
	DefaultCause                = "UNKNOWN_CAUSE"
	DefaultEffect               = "UNKNOWN_EFFECT"
	DefaultSeverity             = "UNKNOWN_SEVERITY"
)

// Normalize projects fm. The result has exactly one Entity per input entity,
// in order. A nil message yields an empty feed.
func Normalize(fm *gtfs.FeedMessage) Feed {
	feed := Feed{
		Header:   normalizeHeader(fm.GetHeader()),
		Entities: make([]Entity, 0, len(fm.GetEntity())),
	}
	for _, e := range fm.GetEntity() {
		feed.Entities = append(feed.Entities, NormalizeEntity(e))
	}
	return feed
}

// NormalizeEntity projects a single entity. Missing substructure yields
// defaulted fields; it never fails.
func NormalizeEntity(e *gtfs.FeedEntity) Entity {
	tu := e.GetTripUpdate()

	out := Entity{
		ID:              e.GetId(),
		IsDeleted:       e.GetIsDeleted(),
		Trip:            normalizeTrip(tu.GetTrip()),
		Timestamp:       int64(tu.GetTimestamp()),
		StopTimeUpdates: make([]StopTimeUpdate, 0, len(tu.GetStopTimeUpdate())),
		Vehicle:         normalizeVehicle(e.GetVehicle()),
		Alert:           normalizeAlert(e.GetAlert()),
	}

	for _, stu := range tu.GetStopTimeUpdate() {
		out.StopTimeUpdates = append(out.StopTimeUpdates, normalizeStopTimeUpdate(stu))
	}
	if len(out.StopTimeUpdates) > 0 {
		first := out.StopTimeUpdates[0]
		out.FirstStop = &FirstStop{
			StopID:         first.StopID,
			ArrivalDelay:   first.Arrival.Delay,
			DepartureDelay: first.Departure.Delay,
		}
	}

	return out
}

func normalizeHeader(h *gtfs.FeedHeader) Header {
	if h == nil {
		return Header{Incrementality: DefaultIncrementality}
	}
	return Header{
		GtfsRealtimeVersion: h.GetGtfsRealtimeVersion(),
		Incrementality:      enumOr(h.Incrementality, DefaultIncrementality),
		Timestamp:           int64(h.GetTimestamp()),
	}
}

func normalizeTrip(t *gtfs.TripDescriptor) Trip {
	if t == nil {
		return Trip{ScheduleRelationship: DefaultScheduleRelationship}
	}
	return Trip{
		TripID:               str(t.GetTripId()),
		RouteID:              str(t.GetRouteId()),
		StartTime:            str(t.GetStartTime()),
		StartDate:            str(t.GetStartDate()),
		ScheduleRelationship: enumOr(t.ScheduleRelationship, DefaultScheduleRelationship),
		DirectionID:          copyPtr(t.DirectionId),
	}
}

func normalizeStopTimeUpdate(stu *gtfs.TripUpdate_StopTimeUpdate) StopTimeUpdate {
	if stu == nil {
		return StopTimeUpdate{ScheduleRelationship: DefaultScheduleRelationship}
	}
	return StopTimeUpdate{
		StopSequence:         copyPtr(stu.StopSequence),
		StopID:               str(stu.GetStopId()),
		Arrival:              normalizeEvent(stu.GetArrival()),
		Departure:            normalizeEvent(stu.GetDeparture()),
		ScheduleRelationship: enumOr(stu.ScheduleRelationship, DefaultScheduleRelationship),
	}
}

func normalizeEvent(ev *gtfs.TripUpdate_StopTimeEvent) StopTimeEvent {
	return StopTimeEvent{
		Delay:       ev.GetDelay(),
		Time:        ev.GetTime(),
		Uncertainty: ev.GetUncertainty(),
	}
}

func normalizeVehicle(v *gtfs.VehiclePosition) *Vehicle {
	if v == nil {
		return nil
	}
	pos := v.GetPosition()
	trip := v.GetTrip()
	desc := v.GetVehicle()

	return &Vehicle{
		VehicleID:           str(desc.GetId()),
		Label:               str(desc.GetLabel()),
		TripID:              str(trip.GetTripId()),
		RouteID:             str(trip.GetRouteId()),
		Latitude:            pos.GetLatitude(),
		Longitude:           pos.GetLongitude(),
		Bearing:             pos.GetBearing(),
		Speed:               pos.GetSpeed(),
		CurrentStopSequence: copyPtr(v.CurrentStopSequence),
		StopID:              str(v.GetStopId()),
		CurrentStatus:       enumOr(v.CurrentStatus, DefaultVehicleStopStatus),
		Timestamp:           int64(v.GetTimestamp()),
	}
}

func normalizeAlert(a *gtfs.Alert) *Alert {
	if a == nil {
		return nil
	}

	out := &Alert{
		Cause:            enumOr(a.Cause, DefaultCause),
		Effect:           enumOr(a.Effect, DefaultEffect),
		Severity:         enumOr(a.SeverityLevel, DefaultSeverity),
		HeaderText:       translated(a.GetHeaderText()),
		DescriptionText:  translated(a.GetDescriptionText()),
		URL:              translated(a.GetUrl()),
		ActivePeriods:    make([]ActivePeriod, 0, len(a.GetActivePeriod())),
		InformedEntities: make([]InformedEntity, 0, len(a.GetInformedEntity())),
	}
	for _, p := range a.GetActivePeriod() {
		out.ActivePeriods = append(out.ActivePeriods, ActivePeriod{
			Start: int64(p.GetStart()),
			End:   int64(p.GetEnd()),
		})
	}
	for _, ie := range a.GetInformedEntity() {
		out.InformedEntities = append(out.InformedEntities, InformedEntity{
			AgencyID: str(ie.GetAgencyId()),
			RouteID:  str(ie.GetRouteId()),
			StopID:   str(ie.GetStopId()),
			TripID:   str(ie.GetTrip().GetTripId()),
		})
	}
	return out
}

// translated picks the untagged translation, or the first one.
func translated(ts *gtfs.TranslatedString) *string {
	var pick *gtfs.TranslatedString_Translation
	for _, t := range ts.GetTranslation() {
		if t == nil {
			continue
		}
		if pick == nil {
			pick = t
		}
		if t.GetLanguage() == "" {
			pick = t
			break
		}
	}
	return str(pick.GetText())
}

type enum interface {
	~int32
	String() string
}

func enumOr[E enum](v *E, def string) string {
	if v == nil {
		return def
	}
	return (*v).String()
}

// str maps the empty string to null.
func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
