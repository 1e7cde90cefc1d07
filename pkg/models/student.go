package models

import (
	"fmt"

	"github.com/golang-sql/civil"
)

// Sex is the closed set of values accepted for Student.Sex.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// ParseSex returns the Sex for s. Matching is exact: no trimming, no case folding.
func ParseSex(s string) (Sex, error) {
	switch Sex(s) {
	case Male, Female:
		return Sex(s), nil
	default:
		return "", fmt.Errorf("invalid sex %q (expected M/F)", s)
	}
}

// Student is a validated student record. RoomID references Room.ID but is not
// checked against the rooms that were loaded.
type Student struct {
	ID       int64
	Name     string
	Sex      Sex
	Birthday civil.Date
	RoomID   int64
}

// StudentColumns is the column order of Student.Tuple.
var StudentColumns = []string{"id", "name", "sex", "birthday", "room_id"}

// Tuple returns the student as an insert row in StudentColumns order.
// Birthday stays a civil.Date; the database adapter binds it per dialect.
func (s Student) Tuple() []any {
	return []any{s.ID, s.Name, string(s.Sex), s.Birthday, s.RoomID}
}
