package tags

import (
	"errors"
	"time"
)

const (
	StorageKey = "v2a_memory_tags"
	MaxTags    = 2
	minNameLen = 2
)

var (
	ErrLimitReached = errors.New("tag limit reached")
	ErrNameTooShort = errors.New("tag name too short")
)

// Tag is a user-named location passed to narration as context.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func Names(list []Tag) []string {
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	return names
}

// Message is the spoken result of an Add call.
func Message(tag *Tag, err error) string {
	switch {
	case err == nil && tag != nil:
		return "Remembered " + tag.Name + "."
	case errors.Is(err, ErrLimitReached):
		return "Tag limit reached."
	case errors.Is(err, ErrNameTooShort):
		return "Tag name too short."
	default:
		return "Could not save tag."
	}
}
