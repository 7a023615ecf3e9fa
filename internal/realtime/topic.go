// Package realtime fans feature events out to live consumers. Services
// publish through the Notifier interface; SSE and websocket handlers
// subscribe through the in-process Broker, optionally bridged across
// instances with Redis pub/sub.
package realtime

import (
	"fmt"
	"strings"
)

// TopicKind names a feature channel.
type TopicKind string

const (
	KindAnnouncements TopicKind = "announcements"
	KindEvents        TopicKind = "events"
	KindSchedules     TopicKind = "schedules"
	KindChat          TopicKind = "chat"
	KindAsk           TopicKind = "ask"
)

// ValidKind reports whether k is one of the known feature channels.
func ValidKind(k TopicKind) bool {
	switch k {
	case KindAnnouncements, KindEvents, KindSchedules, KindChat, KindAsk:
		return true
	}
	return false
}

// Topic identifies one audience. Department, Semester and Shift narrow the
// audience where the feature is partitioned; global feeds such as
// announcements leave all three empty. Two topics address the same audience
// exactly when all four fields are equal.
type Topic struct {
	Kind       TopicKind
	Department string
	Semester   string
	Shift      string
}

// String renders the fixed four-segment wire form, e.g.
// "chat/CST/3rd/Morning" or "announcements///".
func (t Topic) String() string {
	return strings.Join([]string{string(t.Kind), t.Department, t.Semester, t.Shift}, "/")
}

// Scope renders the store partition path for the topic, dropping empty
// trailing segments.
func (t Topic) Scope() string {
	parts := []string{}
	for _, p := range []string{t.Department, t.Semester, t.Shift} {
		if p == "" {
			break
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}

// ParseTopic parses the wire form produced by String.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return Topic{}, fmt.Errorf("malformed topic %q", s)
	}
	t := Topic{
		Kind:       TopicKind(parts[0]),
		Department: parts[1],
		Semester:   parts[2],
		Shift:      parts[3],
	}
	if !ValidKind(t.Kind) {
		return Topic{}, fmt.Errorf("unknown topic kind %q", parts[0])
	}
	return t, nil
}
