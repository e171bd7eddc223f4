package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// StoreItem is a reward that students can buy with points.
type StoreItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Emoji string  `json:"emoji"`
	Image string  `json:"image,omitempty"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Challenge is a teacher-approved or student-suggested goal.
type Challenge struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Reward      float64 `json:"reward"`
	Approved    bool    `json:"approved"`
	SuggestedBy string  `json:"suggestedBy,omitempty"`
}

// LearningResource is an entry of the class learning centre.
type LearningResource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Subject   string `json:"subject"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	DateAdded string `json:"dateAdded"`
}

// AppConfig is the class-wide configuration blob.
type AppConfig struct {
	Slogan            string             `json:"slogan"`
	Logo              string             `json:"logo"`
	TeacherCell       string             `json:"teacherCell"`
	TeacherPin        string             `json:"teacherPin"`
	PastWinners       []string           `json:"pastWinners"`
	ActionScores      map[string]float64 `json:"actionScores"`
	StoreItems        []StoreItem        `json:"storeItems"`
	Challenges        []Challenge        `json:"challenges"`
	LearningSubjects  []string           `json:"learningSubjects"`
	LearningResources []LearningResource `json:"learningResources"`
	SystemLocked      bool               `json:"isSystemLocked"`
	Rules             string             `json:"rules"`
	Theme             string             `json:"theme"`
	SyncURL           string             `json:"googleAppsScriptUrl,omitempty"`

	// Extra keeps keys this service does not model so they survive a round trip.
	Extra map[string]json.RawMessage `json:"-"`
}

// DefaultActionScores is the built-in behaviour vocabulary. Callers receive a fresh copy.
func DefaultActionScores() map[string]float64 {
	return map[string]float64{
		"מילה טובה":         1,
		"הצטיינות":          1,
		"שיתוף פעולה":       1,
		"שותף במהלך השיעור": 1,
		"עזרה לחבר":         1,
		"יוזמה":             1,
		"הגעה בזמן":         1,
		"השתתפות":           1,
		"שיעורי בית":        1,
		"תפילה":             1,
		"תפילת מנחה":        1,

		"איחור":             -1,
		"חיסור":             -1,
		"אי הבאת ציוד":      -1,
		"הפרעה":             -1,
		"הפרעה במהלך שיעור": -1,
		"פטפוט":             -1,
		"שוטטות":            -1,
		"אי השתתפות":        -1,
		"חוצפה":             -1,
		"סרבנות":            -1,
		"חוצפה/סרבנות":      -1,
	}
}

// DefaultAppConfig returns a freshly allocated default configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Slogan:       "יישר כוח!",
		TeacherPin:   "1234",
		PastWinners:  []string{},
		ActionScores: DefaultActionScores(),
		StoreItems: []StoreItem{
			{ID: "1", Name: "עיפרון חודים", Emoji: "✏️", Price: 50, Stock: 20},
			{ID: "2", Name: "מחק ריחני", Emoji: "🧼", Price: 30, Stock: 15},
			{ID: "3", Name: "פטור משיעורים", Emoji: "📜", Price: 100, Stock: 5},
			{ID: "4", Name: "החלפת מקום ליום", Emoji: "🪑", Price: 80, Stock: 10},
			{ID: "5", Name: "כדור גומי", Emoji: "🎾", Price: 60, Stock: 8},
		},
		Challenges: []Challenge{
			{ID: "1", Title: "שבוע תפילה בזמן", Reward: 50, Approved: true},
			{ID: "2", Title: "שבוע ללא איחורים", Reward: 40, Approved: true},
			{ID: "3", Title: "עזרה לחבר בלימודים", Reward: 20, Approved: true},
			{ID: "4", Title: "סיום מסכת משניות", Reward: 100, Approved: true},
			{ID: "5", Title: "שבוע תפילת מנחה", Reward: 30, Approved: true},
		},
		LearningSubjects:  []string{"משנה", "גמרא", "חומש", "הלכה", "כללי"},
		LearningResources: []LearningResource{},
		Rules:             "תקנון הכיתה:\n1. יש להגיע בזמן לשיעורים.\n2. יש להביא ציוד לימודי מלא.\n3. מדברים בכבוד אחד לשני.\n4. שומרים על רכוש בית הספר.",
		Theme:             "current",
	}
}

var appConfigKeys = map[string]struct{}{
	"slogan": {}, "logo": {}, "teacherCell": {}, "teacherPin": {}, "pastWinners": {},
	"actionScores": {}, "storeItems": {}, "challenges": {}, "learningSubjects": {},
	"learningResources": {}, "isSystemLocked": {}, "rules": {}, "theme": {}, "googleAppsScriptUrl": {},
}

type appConfigAlias AppConfig

// MarshalJSON writes modelled fields and any preserved extras.
func (c AppConfig) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(appConfigAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(c.Extra)+len(appConfigKeys))
	for key, value := range c.Extra {
		merged[key] = value
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for key, value := range fields {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// DecodeAppConfig overlays a persisted configuration onto the defaults. Each
// known key is decoded independently; a key with the wrong shape keeps its
// default. null or an empty payload yields the defaults, any other
// non-object top level is rejected.
func DecodeAppConfig(data []byte) (AppConfig, error) {
	cfg := DefaultAppConfig()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cfg, nil
	}
	if trimmed[0] != '{' {
		return cfg, fmt.Errorf("configuration must be a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return cfg, fmt.Errorf("decode configuration: %w", err)
	}

	for key, value := range raw {
		if _, known := appConfigKeys[key]; !known {
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]json.RawMessage)
			}
			cfg.Extra[key] = value
			continue
		}
		decodeConfigField(&cfg, key, value)
	}
	return cfg, nil
}

func decodeConfigField(cfg *AppConfig, key string, value json.RawMessage) {
	var target interface{}
	switch key {
	case "slogan":
		target = &cfg.Slogan
	case "logo":
		target = &cfg.Logo
	case "teacherCell":
		target = &cfg.TeacherCell
	case "teacherPin":
		target = &cfg.TeacherPin
	case "pastWinners":
		target = &cfg.PastWinners
	case "actionScores":
		scores, ok := decodeActionScores(value)
		if ok {
			cfg.ActionScores = scores
		}
		return
	case "storeItems":
		target = &cfg.StoreItems
	case "challenges":
		target = &cfg.Challenges
	case "learningSubjects":
		target = &cfg.LearningSubjects
	case "learningResources":
		target = &cfg.LearningResources
	case "isSystemLocked":
		target = &cfg.SystemLocked
	case "rules":
		target = &cfg.Rules
	case "theme":
		target = &cfg.Theme
	case "googleAppsScriptUrl":
		target = &cfg.SyncURL
	default:
		return
	}
	trimmed := bytes.TrimSpace(value)
	if bytes.Equal(trimmed, []byte("null")) {
		return
	}
	snapshot, _ := json.Marshal(target)
	if err := json.Unmarshal(trimmed, target); err != nil {
		_ = json.Unmarshal(snapshot, target)
	}
}

// decodeActionScores accepts only an object of finite numbers. Non-numeric
// entries are dropped.
func decodeActionScores(value json.RawMessage) (map[string]float64, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, false
	}
	scores := make(map[string]float64, len(raw))
	for name, rawScore := range raw {
		var score float64
		if err := json.Unmarshal(rawScore, &score); err != nil {
			continue
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		scores[name] = score
	}
	return scores, true
}
