package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingsIn drops every ordering whose field is not one of `allowed`.
// Orderings end up in raw SQL, so repositories must only use the returned slice.
func OrderingsIn(orderings []DBOrdering, allowed ...string) []DBOrdering {
	if len(orderings) == 0 {
		return nil
	}
	res := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, fld := range allowed {
			if ord.Field == fld {
				res = append(res, ord)
				break
			}
		}
	}
	return res
}

// JoinOrderings renders orderings as an ORDER BY list.
func JoinOrderings(orderings []DBOrdering) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
