// Package report runs the fixed aggregation queries over loaded rooms and
// students.
package report

import (
	"fmt"

	"github.com/BartekS5/roomstat/pkg/database"
)

// Report names, in the order they run and are exported.
const (
	Occupancy       = "occupancy"
	YoungestAverage = "youngest_average"
	WidestAgeSpread = "widest_age_spread"
	MixedOccupancy  = "mixed_occupancy"
)

// TopN bounds the ranked reports.
const TopN = 5

// Query is one aggregation. When DatedArg is set the evaluation date is
// bound as the first parameter.
type Query struct {
	Name     string
	SQL      string
	DatedArg bool
}

// Queries returns the reports written for dialect d.
func Queries(d database.Dialect) []Query {
	// ages has one row per student with its age in whole years.
	ages := fmt.Sprintf("(SELECT s.room_id, CAST(%s AS INTEGER) AS age FROM students s)",
		d.AgeYears("s.birthday", d.Placeholder(1)))

	return []Query{
		{
			Name: Occupancy,
			SQL:  `SELECT r.id, r.name, COUNT(s.id) AS student_count
FROM rooms r
LEFT JOIN students s ON s.room_id = r.id
GROUP BY r.id, r.name
ORDER BY r.id`,
		},
		{
			Name: YoungestAverage,
			SQL:  fmt.Sprintf(`SELECT r.id, r.name, ROUND(CAST(AVG(CAST(a.age AS FLOAT)) AS NUMERIC(10, 2)), 0) AS avg_age
FROM rooms r
JOIN %s a ON a.room_id = r.id
GROUP BY r.id, r.name
ORDER BY avg_age ASC, r.id ASC
%s`, ages, d.Limit(TopN)),
			DatedArg: true,
		},
		{
			Name: WidestAgeSpread,
			SQL:  fmt.Sprintf(`SELECT r.id, r.name, MAX(a.age) - MIN(a.age) AS age_spread
FROM rooms r
JOIN %s a ON a.room_id = r.id
GROUP BY r.id, r.name
ORDER BY age_spread DESC, r.id ASC
%s`, ages, d.Limit(TopN)),
			DatedArg: true,
		},
		{
			Name: MixedOccupancy,
			SQL:  `SELECT r.id, r.name
FROM rooms r
JOIN students s ON s.room_id = r.id
GROUP BY r.id, r.name
HAVING COUNT(DISTINCT s.sex) >= 2
ORDER BY r.id`,
		},
	}
}
