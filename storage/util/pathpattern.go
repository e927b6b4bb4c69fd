package util

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// PathPattern represents a configurable pattern for naming stored uploads.
// It supports placeholders that get replaced with actual values:
//   - {kind}      - the media kind (e.g., "image")
//   - {timestamp} - Unix milliseconds at upload time
//   - {random}    - a random numeric suffix
//   - {ext}       - file extension (with leading dot, e.g., ".png")
//   - {year}      - 4-digit year (e.g., "2026")
//   - {month}     - 2-digit month (e.g., "01")
//
// Example patterns:
//   - "{kind}-{timestamp}-{random}{ext}" → "image-1767225600000-48213977.png"
//   - "videos/{kind}-{timestamp}-{random}{ext}" → "videos/video-1767225600000-120394.mp4"
type PathPattern struct {
	pattern string
}

// NewPathPattern creates a new PathPattern from a template string.
func NewPathPattern(pattern string) *PathPattern {
	return &PathPattern{pattern: pattern}
}

// String returns the raw template.
func (p *PathPattern) String() string {
	return p.pattern
}

// Generate produces a slash-separated relative path by replacing placeholders.
func (p *PathPattern) Generate(kind string, timestamp time.Time, random string, ext string) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("kind cannot be empty")
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	result := p.pattern
	result = strings.ReplaceAll(result, "{year}", fmt.Sprintf("%04d", timestamp.Year()))
	result = strings.ReplaceAll(result, "{month}", fmt.Sprintf("%02d", timestamp.Month()))
	result = strings.ReplaceAll(result, "{timestamp}", fmt.Sprintf("%d", timestamp.UnixMilli()))
	result = strings.ReplaceAll(result, "{kind}", kind)
	result = strings.ReplaceAll(result, "{random}", random)
	result = strings.ReplaceAll(result, "{ext}", ext)

	result = path.Clean(result)
	if !IsSafe(result) || path.IsAbs(result) {
		return "", fmt.Errorf("pattern %q produced unsafe path %q", p.pattern, result)
	}

	return result, nil
}

// requiredPlaceholders keep generated names unique per upload and apart per kind.
var requiredPlaceholders = []string{"{kind}", "{timestamp}", "{random}", "{ext}"}

// Validate reports a pattern that cannot produce distinct, kind-separated names.
func (p *PathPattern) Validate() error {
	var missing []string
	for _, ph := range requiredPlaceholders {
		if !strings.Contains(p.pattern, ph) {
			missing = append(missing, ph)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("pattern %q is missing %s", p.pattern, strings.Join(missing, ", "))
	}
	return nil
}

// DefaultImagePattern stores images directly in the upload root.
func DefaultImagePattern() *PathPattern {
	return NewPathPattern("{kind}-{timestamp}-{random}{ext}")
}

// DefaultVideoPattern stores videos in a videos/ subdirectory.
func DefaultVideoPattern() *PathPattern {
	return NewPathPattern("videos/{kind}-{timestamp}-{random}{ext}")
}
