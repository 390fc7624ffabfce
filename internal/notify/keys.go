package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names one of the two job slots a reminder can own.
type Kind string

const (
	KindOnTime Kind = "ontime"
	KindEarly  Kind = "early"
)

// Kinds lists both slots; CancelReminder walks it.
var Kinds = []Kind{KindOnTime, KindEarly}

func (k Kind) Valid() bool {
	switch k {
	case KindOnTime, KindEarly:
		return true
	}
	return false
}

// JobKey is the queue key of the (reminderID, kind) slot.
func JobKey(reminderID uint64, kind Kind) string {
	return fmt.Sprintf("reminder_%d_%s", reminderID, kind)
}

// ParseJobKey reverses JobKey.
func ParseJobKey(key string) (uint64, Kind, bool) {
	rest, ok := strings.CutPrefix(key, "reminder_")
	if !ok {
		return 0, "", false
	}
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(rest[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	k := Kind(rest[i+1:])
	if !k.Valid() {
		return 0, "", false
	}
	return id, k, true
}
