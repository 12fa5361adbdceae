package models

// EntryStatus is the lifecycle state of a queue entry.
type EntryStatus string

const (
	StatusWaiting    EntryStatus = "waiting"
	StatusInProgress EntryStatus = "in-progress"
	StatusCompleted  EntryStatus = "completed"
	StatusCancelled  EntryStatus = "cancelled"
)

// IsActive reports whether the entry still occupies a place in the queue.
func (s EntryStatus) IsActive() bool {
	return s == StatusWaiting || s == StatusInProgress
}

// IsTerminal reports whether the entry has left the queue.
func (s EntryStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s EntryStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

type QueueEntry struct {
	UserID            string      `json:"userId"`
	ServiceID         string      `json:"serviceId"`
	Timestamp         int64       `json:"timestamp"` // enqueue time, epoch ms
	EstimatedWaitTime float64     `json:"estimatedWaitTime"`
	Status            EntryStatus `json:"status"`
	CompletedAt       int64       `json:"completedAt,omitempty"` // epoch ms, 0 when unknown
}

// QueueSnapshot is a point-in-time view of one shop's queue.
//
// CurrentQueueSize is a counter maintained alongside Entries, it is never
// recomputed from them.
type QueueSnapshot struct {
	CurrentQueueSize int                   `json:"currentQueueSize"`
	AverageWaitTime  float64               `json:"averageWaitTime"`
	Entries          map[string]QueueEntry `json:"entries"`
	LastUpdated      int64                 `json:"lastUpdated"`
}

// ActiveEntries returns the waiting and in-progress entries.
func (q *QueueSnapshot) ActiveEntries() []QueueEntry {
	if q == nil {
		return nil
	}

	active := make([]QueueEntry, 0, len(q.Entries))
	for _, entry := range q.Entries {
		if entry.Status.IsActive() {
			active = append(active, entry)
		}
	}
	return active
}

// QueueTicket is handed back to a user who just joined a queue.
type QueueTicket struct {
	EntryKey  string     `json:"entryKey"`
	Entry     QueueEntry `json:"entry"`
	QueueSize int        `json:"queueSize"`
}

// QueueSummary is one row of the admin queue dashboard.
type QueueSummary struct {
	ShopID          string  `json:"shopId"`
	QueueSize       int     `json:"queueSize"`
	ActiveEntries   int     `json:"activeEntries"`
	AverageWaitTime float64 `json:"averageWaitTime"`
	LastUpdated     int64   `json:"lastUpdated"`
}
