package natsbus

import (
	"github.com/pkg/errors"
	"strings"
)

const DefaultPrefix = "protoplot"

// Subject maps a slash separated topic name ("/robot/pose") onto a NATS
// subject below prefix ("protoplot.topic.robot.pose").
func Subject(prefix, topic string) (string, error) {
	trimmed := strings.Trim(topic, "/")
	if trimmed == "" {
		return "", errors.Errorf("invalid topic %q", topic)
	}

	tokens := strings.Split(trimmed, "/")
	for _, tok := range tokens {
		if tok == "" || strings.ContainsAny(tok, " \t\r\n.*>") {
			return "", errors.Errorf("invalid topic %q", topic)
		}
	}

	return prefix + ".topic." + strings.Join(tokens, "."), nil
}

func advertiseSubject(prefix string) string {
	return prefix + ".advertise"
}

func discoverSubject(prefix string) string {
	return prefix + ".discover"
}
