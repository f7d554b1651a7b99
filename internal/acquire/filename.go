// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// maxStemRunes caps the filename stem length.
const maxStemRunes = 100

var invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)

// SanitizeFilename turns a paper title into a filesystem-safe stem.
// Reserved characters become underscores, whitespace is collapsed and the
// result is capped at 100 characters.
func SanitizeFilename(title string) string {
	s := invalidChars.ReplaceAllString(title, "_")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, ". ")

	if utf8.RuneCountInString(s) > maxStemRunes {
		s = strings.TrimRight(string([]rune(s)[:maxStemRunes]), ". ")
	}
	if s == "" {
		s = "unnamed"
	}
	return s
}

// namer hands out unique stems within one run and avoids stems marked as
// already on disk. Keys are compared case-insensitively so case-folding
// filesystems do not collide either.
type namer struct {
	mu   sync.Mutex
	used map[string]bool
}

func (n *namer) reserve(stem string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.used == nil {
		n.used = make(map[string]bool)
	}

	name := stem
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s (%d)", stem, i)
	}
	n.used[strings.ToLower(name)] = true
	return name
}

// mark records name as taken without handing it out.
func (n *namer) mark(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.used == nil {
		n.used = make(map[string]bool)
	}
	n.used[strings.ToLower(name)] = true
}

func (n *namer) release(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.used, strings.ToLower(name))
}
