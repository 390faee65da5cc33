// Package inmemdb implements the repositories on process memory. Used by tests & the `inmem` engine.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/fee"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

// DB holds every table behind one lock, so operations spanning tables stay atomic.
// Tables keep insertion order.
type DB struct {
	mu sync.RWMutex

	users         []*user.User
	preferences   map[string]user.Preferences
	resetCodes    []*user.ResetCode
	notifications []*notification.Notification
	classes       []*class.Class
	students      []*student.Student
	attendance    []*attendance.Record
	fees          []*fee.Fee
}

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = nil
	db.preferences = make(map[string]user.Preferences)
	db.resetCodes = nil
	db.notifications = nil
	db.classes = nil
	db.students = nil
	db.attendance = nil
	db.fees = nil
}

// compareFunc compares the field of rows i & j: <0, 0 or >0.
type compareFunc func(i, j int, field string) int

// sortByOrderings stable-sorts slice by orderings. Unknown fields compare equal.
func sortByOrderings(slice interface{}, orderings []core.DBOrdering, cmp compareFunc) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range orderings {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inStrings(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
