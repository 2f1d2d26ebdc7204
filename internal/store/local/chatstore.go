package local

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// nowMillis is the clock used for every stamp in this package.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// LoadSessions reads the persisted collection. It never fails: a missing,
// unreadable or malformed blob yields an empty slice, and individual records
// are repaired or dropped by Decode.
func LoadSessions(st Storage) []chat.Session {
	if st == nil {
		return []chat.Session{}
	}
	raw, ok, err := st.GetItem(chat.StorageKey)
	if err != nil || !ok {
		return []chat.Session{}
	}
	return Decode([]byte(raw), nowMillis())
}

// SaveSessions overwrites the persisted blob with the full collection.
// There is no merge with whatever another writer stored meanwhile.
func SaveSessions(st Storage, sessions []chat.Session) error {
	if st == nil {
		return nil
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return st.SetItem(chat.StorageKey, string(data))
}

// ClearSessions removes the persisted blob.
func ClearSessions(st Storage) error {
	if st == nil {
		return nil
	}
	return st.RemoveItem(chat.StorageKey)
}

// NewSession builds an empty session stamped with the current time.
func NewSession(title string) chat.Session {
	if title == "" {
		title = chat.DefaultTitle
	}
	now := nowMillis()
	return chat.Session{
		ID:        NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []chat.Message{},
	}
}

// AddMessage returns a new collection where the session matching id has msg
// appended with a fresh timestamp, and its UpdatedAt bumped to that stamp.
// An unknown id returns sessions unchanged: no error, no copy.
func AddMessage(sessions []chat.Session, id string, msg chat.Message) []chat.Session {
	idx := indexOf(sessions, id)
	if idx < 0 {
		return sessions
	}
	now := nowMillis()
	msg.Timestamp = now
	msg.Sources = cloneStrings(msg.Sources)

	out := make([]chat.Session, len(sessions))
	copy(out, sessions)

	touched := out[idx]
	messages := make([]chat.Message, len(touched.Messages), len(touched.Messages)+1)
	copy(messages, touched.Messages)
	touched.Messages = append(messages, msg)
	touched.UpdatedAt = now
	out[idx] = touched
	return out
}

// SetTitle returns a new collection with the matching session renamed and
// its UpdatedAt bumped. An unknown id returns sessions unchanged.
func SetTitle(sessions []chat.Session, id, title string) []chat.Session {
	idx := indexOf(sessions, id)
	if idx < 0 {
		return sessions
	}
	out := make([]chat.Session, len(sessions))
	copy(out, sessions)
	out[idx].Title = title
	out[idx].UpdatedAt = nowMillis()
	return out
}

// RemoveSession returns a new collection without the matching session.
func RemoveSession(sessions []chat.Session, id string) []chat.Session {
	idx := indexOf(sessions, id)
	if idx < 0 {
		return sessions
	}
	out := make([]chat.Session, 0, len(sessions)-1)
	out = append(out, sessions[:idx]...)
	return append(out, sessions[idx+1:]...)
}

// Contains reports whether a session with id exists in sessions.
func Contains(sessions []chat.Session, id string) bool {
	return indexOf(sessions, id) >= 0
}

// Find returns the session matching id.
func Find(sessions []chat.Session, id string) (chat.Session, bool) {
	idx := indexOf(sessions, id)
	if idx < 0 {
		return chat.Session{}, false
	}
	return sessions[idx], true
}

func indexOf(sessions []chat.Session, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// Decode is the read-repair step for the persisted blob. Every field is
// optional with a default; records without a usable id are dropped. The
// result is sorted by UpdatedAt descending, ties keep their stored order.
func Decode(raw []byte, now int64) []chat.Session {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []chat.Session{}
	}

	sessions := make([]chat.Session, 0, len(entries))
	for _, entry := range entries {
		if s, ok := decodeSession(entry, now); ok {
			sessions = append(sessions, s)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
	return sessions
}

func decodeSession(raw json.RawMessage, now int64) (chat.Session, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return chat.Session{}, false
	}

	id, ok := stringField(fields, "id")
	if !ok || id == "" {
		return chat.Session{}, false
	}

	title, ok := stringField(fields, "title")
	if !ok {
		title = chat.UntitledTitle
	}

	createdAt, ok := millisField(fields, "createdAt")
	if !ok {
		createdAt = now
	}
	updatedAt, ok := millisField(fields, "updatedAt")
	if !ok {
		updatedAt = now
	}
	if updatedAt < createdAt {
		updatedAt = createdAt
	}

	return chat.Session{
		ID:        id,
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Messages:  decodeMessages(fields["messages"]),
	}, true
}

func decodeMessages(raw json.RawMessage) []chat.Message {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []chat.Message{}
	}

	messages := make([]chat.Message, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}
		role, _ := stringField(fields, "role")
		if !chat.Role(role).Valid() {
			continue
		}
		content, ok := stringField(fields, "content")
		if !ok {
			continue
		}
		msg := chat.Message{
			Role:    chat.Role(role),
			Content: content,
			Sources: stringsField(fields, "sources"),
		}
		if ts, ok := millisField(fields, "ts"); ok {
			msg.Timestamp = ts
		}
		messages = append(messages, msg)
	}
	return messages
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func millisField(fields map[string]json.RawMessage, key string) (int64, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// stringsField keeps the string entries of an array field; a missing or
// non-array field yields nil.
func stringsField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if isNull(item) {
			continue
		}
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// isNull reports a JSON null, which json.Unmarshal would silently accept
// into a string or number.
func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
