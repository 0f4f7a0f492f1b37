package domain

// EventType tags which registration types an event accepts
type EventType string

const (
	EventTypeSolo EventType = "solo"
	EventTypeTeam EventType = "team"
	EventTypeBoth EventType = "both"
)

type Event struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type EventType `json:"type"`
}

// Accepts reports whether the event takes registrations of type t
func (e Event) Accepts(t RegistrationType) bool {
	switch e.Type {
	case EventTypeBoth:
		return t == RegistrationTypeSolo || t == RegistrationTypeTeam
	case EventTypeSolo:
		return t == RegistrationTypeSolo
	case EventTypeTeam:
		return t == RegistrationTypeTeam
	}
	return false
}

// Events is the festival catalog. Registrations reference events by Name.
var Events = []Event{
	{ID: "westwood", Name: "Westwood - Western Solo Singing", Type: EventTypeSolo},
	{ID: "raagify", Name: "Raagify - Eastern Solo Singing", Type: EventTypeSolo},
	{ID: "voxbox", Name: "Voxbox - Solo Beatbox Battle", Type: EventTypeSolo},
	{ID: "illusion-jam", Name: "Illusion Jam - Battle of Bands", Type: EventTypeTeam},
	{ID: "eastern-euphoria", Name: "Eastern Euphoria (Solo/Duo/Group)", Type: EventTypeBoth},
	{ID: "step-up", Name: "Step Up (Solo, Duo, Team)", Type: EventTypeBoth},
	{ID: "stepistan", Name: "Stepistan (Solo Street Dance Battle)", Type: EventTypeSolo},
	{ID: "halla-bol", Name: "Halla Bol - Team", Type: EventTypeTeam},
	{ID: "shrutirawngo", Name: "Shrutirawngo (Team)", Type: EventTypeTeam},
	{ID: "futsal", Name: "Futsal (Team)", Type: EventTypeTeam},
	{ID: "table-tennis", Name: "Table Tennis (Solo/Duo)", Type: EventTypeBoth},
	{ID: "chess", Name: "Mind Over Moves - Chess (Solo)", Type: EventTypeSolo},
	{ID: "bgmi", Name: "BGMI - Team", Type: EventTypeTeam},
	{ID: "freefire", Name: "FreeFire - Team", Type: EventTypeTeam},
	{ID: "efootball", Name: "EFootball - Solo", Type: EventTypeSolo},
	{ID: "8ball", Name: "8 Ball Pool (Solo)", Type: EventTypeSolo},
	{ID: "quizzard", Name: "Quizzard (Solo/Team)", Type: EventTypeBoth},
}

// EventsFor returns the catalog entries open to registration type t, in catalog order
func EventsFor(t RegistrationType) []Event {
	var out []Event
	for _, e := range Events {
		if e.Accepts(t) {
			out = append(out, e)
		}
	}
	return out
}

// FindEvent looks an event up by its display name or by its id
func FindEvent(nameOrID string) (Event, bool) {
	for _, e := range Events {
		if e.Name == nameOrID || e.ID == nameOrID {
			return e, true
		}
	}
	return Event{}, false
}

// EventEligible reports whether name is a known event that accepts type t
func EventEligible(name string, t RegistrationType) bool {
	for _, e := range Events {
		if e.Name == name {
			return e.Accepts(t)
		}
	}
	return false
}
