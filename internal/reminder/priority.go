package reminder

import (
	"fmt"
	"time"
)

// Priority is derived at read time from the distance to the due instant.
type Priority int

const (
	PriorityUrgent Priority = iota
	PrioritySoon
	PriorityUpcoming
)

const (
	urgentWindow = 24 * time.Hour
	soonWindow   = 72 * time.Hour
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PrioritySoon:
		return "soon"
	case PriorityUpcoming:
		return "upcoming"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Classify maps due relative to now onto a tier. Overdue items are urgent.
// Boundaries belong to the lower tier: exactly 24h is urgent, exactly 72h soon.
func Classify(due, now time.Time) Priority {
	diff := due.Sub(now)
	switch {
	case diff <= urgentWindow:
		return PriorityUrgent
	case diff <= soonWindow:
		return PrioritySoon
	default:
		return PriorityUpcoming
	}
}

// FormatTimeRemaining renders a countdown label for the user.
func FormatTimeRemaining(diff time.Duration) string {
	if diff < 0 {
		return "Vencido"
	}
	hours := int64(diff / time.Hour)
	days := int64(diff / Day)
	switch {
	case hours < 1:
		return "¡Menos de 1 hora!"
	case hours < 24:
		if hours == 1 {
			return "Faltan 1 hora"
		}
		return fmt.Sprintf("Faltan %d horas", hours)
	case days == 1:
		return "Mañana"
	default:
		return fmt.Sprintf("Faltan %d días", days)
	}
}
