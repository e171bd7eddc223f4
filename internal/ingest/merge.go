package ingest

import (
	"fmt"

	"github.com/nesiel/class-bank/internal/models"
)

// Policy selects how a batch is folded into the student store.
type Policy string

const (
	// PolicyBehavior adds totals and appends logs.
	PolicyBehavior Policy = "behavior"
	// PolicyContacts overwrites contact fields that the batch carries.
	PolicyContacts Policy = "contacts"
	// PolicySemester replaces the semester snapshot.
	PolicySemester Policy = "semester"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyBehavior, PolicyContacts, PolicySemester:
		return true
	}
	return false
}

// MergeResult lists the students a merge touched.
type MergeResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
}

// Merge folds batch into db under policy and returns a new store. db is not
// modified.
func Merge(db models.Database, batch *Batch, policy Policy) (models.Database, MergeResult, error) {
	if !policy.Valid() {
		return nil, MergeResult{}, fmt.Errorf("unknown merge policy %q", policy)
	}
	out := db.Clone()
	if out == nil {
		out = models.Database{}
	}
	result := MergeResult{Created: []string{}, Updated: []string{}}

	for _, update := range batch.Updates() {
		existing, ok := out[update.Name]
		if !ok {
			out[update.Name] = newRecord(update, policy)
			result.Created = append(result.Created, update.Name)
			continue
		}
		switch policy {
		case PolicyBehavior:
			existing.Total += update.Total
			existing.Logs = concatLogs(existing.Logs, update.Logs)
		case PolicyContacts:
			existing.ContactInfo = existing.ContactInfo.Overlay(update.Contact)
		case PolicySemester:
			score := update.Total
			existing.SemesterScore = &score
			existing.SemesterLogs = concatLogs(nil, update.Logs)
		}
		fillIdentity(&existing, update.Class)
		out[update.Name] = existing
		result.Updated = append(result.Updated, update.Name)
	}
	return out, result, nil
}

// MergeGrades replaces the grades of every student in the batch, creating
// students that do not exist yet.
func MergeGrades(db models.Database, grades *GradeBatch) (models.Database, MergeResult) {
	out := db.Clone()
	if out == nil {
		out = models.Database{}
	}
	result := MergeResult{Created: []string{}, Updated: []string{}}
	for _, name := range grades.Names() {
		entries, _ := grades.Get(name)
		existing, ok := out[name]
		if !ok {
			existing = models.Student{Name: name, Logs: []models.LogEntry{}, IdentityKey: models.IdentityKey(name, "")}
			result.Created = append(result.Created, name)
		} else {
			result.Updated = append(result.Updated, name)
		}
		existing.Grades = entries
		out[name] = existing
	}
	return out, result
}

func newRecord(update StudentUpdate, policy Policy) models.Student {
	record := models.Student{
		Name:        update.Name,
		Class:       update.Class,
		Total:       update.Total,
		Logs:        concatLogs(nil, update.Logs),
		ContactInfo: update.Contact,
		IdentityKey: models.IdentityKey(update.Name, update.Class),
	}
	if policy == PolicySemester {
		score := update.Total
		record.Total = 0
		record.Logs = []models.LogEntry{}
		record.SemesterScore = &score
		record.SemesterLogs = concatLogs(nil, update.Logs)
	}
	return record
}

func fillIdentity(record *models.Student, class string) {
	if record.Class == "" && class != "" {
		record.Class = class
	}
	if record.IdentityKey == "" {
		record.IdentityKey = models.IdentityKey(record.Name, record.Class)
	}
}

func concatLogs(a, b []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
