package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// LogEntry is one scored behaviour event.
type LogEntry struct {
	Subject string  `json:"sub"`
	Teacher string  `json:"teach"`
	Action  string  `json:"k"`
	Count   float64 `json:"c"`
	Score   float64 `json:"s"`
	Date    string  `json:"d,omitempty"`
}

// GradeEntry is a (subject, score) pair from a grades sheet.
type GradeEntry struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// RequestStatus tracks the approval state of a student request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Purchase records an item bought from the class store.
type Purchase struct {
	ID        string  `json:"id"`
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Cost      float64 `json:"cost"`
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
}

// PurchaseRequest is a pending store purchase awaiting approval.
type PurchaseRequest struct {
	ID        string        `json:"id"`
	ItemID    string        `json:"itemId"`
	ItemName  string        `json:"itemName"`
	ItemPrice float64       `json:"itemPrice"`
	Date      string        `json:"date"`
	Timestamp int64         `json:"timestamp"`
	Status    RequestStatus `json:"status"`
}

// ChallengeRequest is a claimed challenge completion.
type ChallengeRequest struct {
	ID             string        `json:"id"`
	ChallengeID    string        `json:"challengeId"`
	ChallengeTitle string        `json:"challengeTitle"`
	Reward         float64       `json:"reward"`
	Date           string        `json:"date"`
	Timestamp      int64         `json:"timestamp"`
	Status         RequestStatus `json:"status"`
}

// ContactInfo groups the roster fields imported from contact sheets.
type ContactInfo struct {
	StudentCell  string `json:"studentCell,omitempty"`
	StudentEmail string `json:"studentEmail,omitempty"`
	HomePhone    string `json:"homePhone,omitempty"`
	MotherName   string `json:"nameMother,omitempty"`
	MotherPhone  string `json:"phoneMother,omitempty"`
	MotherEmail  string `json:"emailMother,omitempty"`
	FatherName   string `json:"nameFather,omitempty"`
	FatherPhone  string `json:"phoneFather,omitempty"`
	FatherEmail  string `json:"emailFather,omitempty"`
}

// Overlay returns c with every non-empty field of other applied on top.
func (c ContactInfo) Overlay(other ContactInfo) ContactInfo {
	pick := func(current, next string) string {
		if next != "" {
			return next
		}
		return current
	}
	return ContactInfo{
		StudentCell:  pick(c.StudentCell, other.StudentCell),
		StudentEmail: pick(c.StudentEmail, other.StudentEmail),
		HomePhone:    pick(c.HomePhone, other.HomePhone),
		MotherName:   pick(c.MotherName, other.MotherName),
		MotherPhone:  pick(c.MotherPhone, other.MotherPhone),
		MotherEmail:  pick(c.MotherEmail, other.MotherEmail),
		FatherName:   pick(c.FatherName, other.FatherName),
		FatherPhone:  pick(c.FatherPhone, other.FatherPhone),
		FatherEmail:  pick(c.FatherEmail, other.FatherEmail),
	}
}

// IsZero reports whether no contact field is set.
func (c ContactInfo) IsZero() bool {
	return c == ContactInfo{}
}

// Student is the durable record keyed by display name.
type Student struct {
	Name              string             `json:"name"`
	Total             float64            `json:"total"`
	Logs              []LogEntry         `json:"logs"`
	Purchases         []Purchase         `json:"purchases,omitempty"`
	Requests          []PurchaseRequest  `json:"requests,omitempty"`
	ChallengeRequests []ChallengeRequest `json:"challengeRequests,omitempty"`
	LastNachatDate    string             `json:"lastNachatDate,omitempty"`

	SemesterScore *float64   `json:"semesterScore,omitempty"`
	SemesterLogs  []LogEntry `json:"semesterLogs,omitempty"`

	Password string `json:"password,omitempty"`

	ContactInfo

	Class              string       `json:"class,omitempty"`
	IdentityKey        string       `json:"identityKey,omitempty"`
	HiddenFromPodium   bool         `json:"isHiddenFromPodium,omitempty"`
	Grades             []GradeEntry `json:"grades,omitempty"`
	Reinforcement      string       `json:"academicReinforcement,omitempty"`
	CertificateComment string       `json:"certificateComment,omitempty"`
	AcademicGoal       string       `json:"academicGoal,omitempty"`
	SeatID             string       `json:"seatId,omitempty"`
}

// Clone deep-copies the slices owned by the record.
func (s Student) Clone() Student {
	out := s
	out.Logs = cloneSlice(s.Logs)
	out.SemesterLogs = cloneSlice(s.SemesterLogs)
	out.Grades = cloneSlice(s.Grades)
	out.Purchases = cloneSlice(s.Purchases)
	out.Requests = cloneSlice(s.Requests)
	out.ChallengeRequests = cloneSlice(s.ChallengeRequests)
	if s.SemesterScore != nil {
		v := *s.SemesterScore
		out.SemesterScore = &v
	}
	return out
}

// LogTotal sums the signed scores of the behaviour log.
func (s Student) LogTotal() float64 {
	var sum float64
	for _, entry := range s.Logs {
		sum += entry.Score
	}
	return sum
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// IdentityKey derives a stable identifier from a display name and class.
func IdentityKey(name, class string) string {
	seed := strings.TrimSpace(name) + "\x00" + strings.TrimSpace(class)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// Database is the keyed student store.
type Database map[string]Student

// Clone returns a deep copy of the store.
func (db Database) Clone() Database {
	out := make(Database, len(db))
	for name, student := range db {
		out[name] = student.Clone()
	}
	return out
}

// Names returns the student keys in sorted order.
func (db Database) Names() []string {
	names := make([]string, 0, len(db))
	for name := range db {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeDatabase parses a persisted student store. Only a JSON object is
// accepted at the top level; null decodes to an empty store and entries that
// are not objects are dropped and counted.
func DecodeDatabase(data []byte) (Database, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Database{}, 0, nil
	}
	if trimmed[0] != '{' {
		return nil, 0, fmt.Errorf("student store must be a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode student store: %w", err)
	}

	db := make(Database, len(raw))
	dropped := 0
	for name, payload := range raw {
		entry := bytes.TrimSpace(payload)
		if len(entry) == 0 || entry[0] != '{' {
			dropped++
			continue
		}
		var student Student
		if err := json.Unmarshal(entry, &student); err != nil {
			dropped++
			continue
		}
		if student.Name == "" {
			student.Name = name
		}
		if student.Logs == nil {
			student.Logs = []LogEntry{}
		}
		db[name] = student
	}
	return db, dropped, nil
}
