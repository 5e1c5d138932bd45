// Package readhistory keeps each user's list of recently viewed posts.
package readhistory

import (
	"time"

	"unitoku/internal/models"
)

// DefaultCapacity is the number of entries a ledger keeps when none is configured.
const DefaultCapacity = 100

// Ledger is an ordered, capped list of read entries, newest first.
// A post appears at most once.
type Ledger struct {
	Cap     int
	entries []models.ReadHistoryEntry
}

// NewLedger returns an empty ledger. A non-positive capacity uses DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{Cap: capacity}
}

// FromEntries rebuilds a ledger from stored entries, dropping duplicates and
// anything beyond capacity.
func FromEntries(capacity int, entries []models.ReadHistoryEntry) *Ledger {
	l := NewLedger(capacity)
	seen := make(map[uint]struct{}, len(entries))
	for _, e := range entries {
		if len(l.entries) == l.Cap {
			break
		}
		if _, dup := seen[e.PostID]; dup {
			continue
		}
		seen[e.PostID] = struct{}{}
		l.entries = append(l.entries, e)
	}
	return l
}

// MarkAsRead puts entry at the front with ReadAt set to now. An existing entry
// for the same post is moved rather than duplicated. It reports whether the
// oldest entry was evicted to stay within capacity.
func (l *Ledger) MarkAsRead(entry models.ReadHistoryEntry, now time.Time) bool {
	entry.ReadAt = now
	if i := l.indexOf(entry.PostID); i >= 0 {
		copy(l.entries[1:i+1], l.entries[:i])
		l.entries[0] = entry
		return false
	}

	l.entries = append(l.entries, models.ReadHistoryEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	if len(l.entries) > l.Cap {
		l.entries = l.entries[:l.Cap]
		return true
	}
	return false
}

// Contains reports whether the post is in the ledger.
func (l *Ledger) Contains(postID uint) bool {
	return l.indexOf(postID) >= 0
}

// Delete removes the entry for postID and reports whether it existed.
func (l *Ledger) Delete(postID uint) bool {
	i := l.indexOf(postID)
	if i < 0 {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

func (l *Ledger) Clear() {
	l.entries = nil
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries, newest first.
func (l *Ledger) Entries() []models.ReadHistoryEntry {
	out := make([]models.ReadHistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) indexOf(postID uint) int {
	for i, e := range l.entries {
		if e.PostID == postID {
			return i
		}
	}
	return -1
}
