package entities

// AddonRequestList is the work queue of requested add-on names.
// Duplicates are dropped on construction so each name is taken at most once.
type AddonRequestList struct {
	names []string
}

// NewAddonRequestList builds the queue, preserving first-seen order
func NewAddonRequestList(names []string) *AddonRequestList {
	seen := make(map[string]bool, len(names))
	list := &AddonRequestList{}
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		list.names = append(list.names, n)
	}
	return list
}

// Empty reports whether nothing was requested (or everything was taken)
func (l *AddonRequestList) Empty() bool {
	return l == nil || len(l.names) == 0
}

// Contains reports whether the name is still queued
func (l *AddonRequestList) Contains(name string) bool {
	if l == nil {
		return false
	}
	for _, n := range l.names {
		if n == name {
			return true
		}
	}
	return false
}

// Take removes the name from the queue and reports whether it was there
func (l *AddonRequestList) Take(name string) bool {
	if l == nil {
		return false
	}
	for i, n := range l.names {
		if n == name {
			l.names = append(l.names[:i], l.names[i+1:]...)
			return true
		}
	}
	return false
}

// Remaining returns a copy of the names not yet taken
func (l *AddonRequestList) Remaining() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}
