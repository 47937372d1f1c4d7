package timeslot

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid time slot")

// Slot is a validated 24h start time.
type Slot struct {
	Hour   int
	Minute int
}

// Parse accepts exactly four ASCII digits, HHMM.
func Parse(token string) (Slot, error) {
	if len(token) != 4 {
		return Slot{}, fmt.Errorf("%w: want 4 digits, got %q", ErrInvalid, token)
	}
	var digits [4]int
	for i := 0; i < 4; i++ {
		c := token[i]
		if c < '0' || c > '9' {
			return Slot{}, fmt.Errorf("%w: non-digit in %q", ErrInvalid, token)
		}
		digits[i] = int(c - '0')
	}

	s := Slot{Hour: digits[0]*10 + digits[1], Minute: digits[2]*10 + digits[3]}
	if s.Hour > 23 || s.Minute > 59 {
		return Slot{}, fmt.Errorf("%w: %q out of range", ErrInvalid, token)
	}
	return s, nil
}

// Token is the normalized HHMM form.
func (s Slot) Token() string { return fmt.Sprintf("%02d%02d", s.Hour, s.Minute) }

func (s Slot) String() string { return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute) }
