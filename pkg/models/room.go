// Package models holds the validated record types loaded into the store.
package models

// Room is a validated room record.
type Room struct {
	ID   int64
	Name string
}

// RoomColumns is the column order of Room.Tuple.
var RoomColumns = []string{"id", "name"}

// Tuple returns the room as an insert row in RoomColumns order.
func (r Room) Tuple() []any {
	return []any{r.ID, r.Name}
}
