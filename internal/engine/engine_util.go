package engine

func NewEmptyState() State {
	return State{
		Players:   []Member{},
		Observers: []Member{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// IndexOf returns the position of id in members, or -1.
func IndexOf(members []Member, id ActorID) int {
	for i, m := range members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Batches splits ids into consecutive groups of at most size.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end:end])
	}
	return out
}
