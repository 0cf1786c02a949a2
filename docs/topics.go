// Package docs holds the help topics printed by 'pcs topic'.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// Readme is the topic listing every other topic.
const Readme = "readme"

// GetTopic returns the markdown content of topic.
func GetTopic(topic string) (string, error) {
	content, err := docs.ReadFile(strings.ToLower(topic) + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, run 'pcs topic' for the list: %w", topic, err)
	}
	return string(content), nil
}

// GetTopics returns the content of topics, one after the other. The "*"
// topic stands for all topics.
func GetTopics(topics ...string) (string, error) {
	var b strings.Builder
	for _, topic := range topics {
		names := []string{topic}
		if topic == "*" {
			names = AllTopics()
		}
		for _, name := range names {
			content, err := GetTopic(name)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// AllTopics returns the sorted topic names, readme excluded.
func AllTopics() []string {
	var topics []string
	// the embedded tree is flat, WalkDir cannot fail
	_ = fs.WalkDir(docs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if base != Readme {
			topics = append(topics, base)
		}
		return nil
	})
	slices.Sort(topics)
	return topics
}
