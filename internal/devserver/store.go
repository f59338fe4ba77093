package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

type historyRecord struct {
	ID             int64           `json:"id"`
	JobDescription string          `json:"job_description"`
	Content        json.RawMessage `json:"content"`
	CreatedAt      string          `json:"created_at"`
}

// dataStore keeps per-user base resumes and history in memory.
type dataStore struct {
	mu      sync.RWMutex
	bases   map[string]*domain.Resume
	history map[string][]historyRecord
	nextID  int64
	now     func() time.Time
}

func newDataStore() *dataStore {
	return &dataStore{
		bases:   make(map[string]*domain.Resume),
		history: make(map[string][]historyRecord),
		now:     time.Now,
	}
}

func (d *dataStore) base(user string) *domain.Resume {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bases[user].Clone()
}

func (d *dataStore) setBase(user string, doc *domain.Resume) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bases[user] = doc.Clone()
}

func (d *dataStore) addHistory(user, jd string, content json.RawMessage) historyRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	rec := historyRecord{
		ID:             d.nextID,
		JobDescription: jd,
		Content:        append(json.RawMessage(nil), content...),
		// Naive local ISO time, as the original service stores it.
		CreatedAt: d.now().Format("2006-01-02T15:04:05.000000"),
	}
	d.history[user] = append(d.history[user], rec)
	return rec
}

// listHistory returns the user's entries oldest-first.
func (d *dataStore) listHistory(user string) []historyRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]historyRecord{}, d.history[user]...)
}

func (d *dataStore) historyItem(user string, id int64) (historyRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rec := range d.history[user] {
		if rec.ID == id {
			return rec, true
		}
	}
	return historyRecord{}, false
}
