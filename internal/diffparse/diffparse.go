package diffparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HeaderPrefix marks the first line of every file section in git's
// extended unified diff format.
const HeaderPrefix = "diff --git"

var (
	errNoPostImage = errors.New("no b/ path in header")
	errEmptyPath   = errors.New("empty post-image path")
)

// FileChange is one file's portion of a diff.
type FileChange struct {
	// Path is the post-image path, without the "b/" prefix.
	Path string
	// Header is the "diff --git" line that opened the section.
	Header string
	// Body holds every line after the header up to the next header,
	// joined with "\n", without a trailing newline.
	Body string
}

// Warning describes a section that was dropped.
type Warning struct {
	Line   int
	Header string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s (%q)", w.Line, w.Reason, w.Header)
}

// Segmentation is the result of [Segment].
type Segmentation struct {
	Changes  []FileChange
	Warnings []Warning
}

// Paths returns the file paths in diff order.
func (s Segmentation) Paths() []string {
	paths := make([]string, 0, len(s.Changes))
	for _, c := range s.Changes {
		paths = append(paths, c.Path)
	}
	return paths
}

// Segment splits diff text into file changes in order of appearance.
// It never fails: malformed headers drop their section with a warning and
// unrecognised lines are kept verbatim in the current section.
func Segment(diff string) Segmentation {
	var seg Segmentation
	if diff == "" {
		return seg
	}

	lines := strings.Split(diff, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var (
		current *FileChange
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.Join(body, "\n")
		seg.Changes = append(seg.Changes, *current)
		current = nil
		body = nil
	}

	for i, line := range lines {
		if strings.HasPrefix(line, HeaderPrefix) {
			flush()
			path, err := PostImagePath(line)
			if err != nil {
				// Lines up to the next header are dropped along with it.
				seg.Warnings = append(seg.Warnings, Warning{
					Line:   i + 1,
					Header: line,
					Reason: err.Error(),
				})
				continue
			}
			current = &FileChange{Path: path, Header: line}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return seg
}

// Reassemble rebuilds diff text from changes.
func Reassemble(changes []FileChange) string {
	var b strings.Builder
	for _, c := range changes {
		b.WriteString(c.Header)
		b.WriteString("\n")
		if c.Body != "" {
			b.WriteString(c.Body)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PostImagePath extracts the "b/" path from a "diff --git" header line.
// Paths that git quotes (non-ASCII or special characters) are unquoted.
func PostImagePath(header string) (string, error) {
	rest := strings.TrimSuffix(header, "\r")
	if !strings.HasPrefix(rest, HeaderPrefix) {
		return "", fmt.Errorf("not a %s header", HeaderPrefix)
	}
	rest = strings.TrimPrefix(rest, HeaderPrefix)

	if strings.HasSuffix(rest, `"`) {
		i := strings.LastIndex(rest, ` "b/`)
		if i < 0 {
			return "", errNoPostImage
		}
		unquoted, err := strconv.Unquote(rest[i+1:])
		if err != nil {
			return "", fmt.Errorf("unquoting post-image path: %w", err)
		}
		path := strings.TrimPrefix(unquoted, "b/")
		if path == "" {
			return "", errEmptyPath
		}
		return path, nil
	}

	i := strings.LastIndex(rest, " b/")
	if i < 0 {
		return "", errNoPostImage
	}
	path := rest[i+len(" b/"):]
	if strings.TrimSpace(path) == "" {
		return "", errEmptyPath
	}
	return path, nil
}
