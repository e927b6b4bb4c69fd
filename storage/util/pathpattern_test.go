package util

import (
	"regexp"
	"testing"
	"time"
)

func TestPathPattern_Generate(t *testing.T) {
	ts := time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern string
		kind    string
		random  string
		ext     string
		want    string
	}{
		{
			name:    "default image pattern",
			pattern: DefaultImagePattern().String(),
			kind:    "image",
			random:  "42",
			ext:     ".png",
			want:    "image-1768473000000-42.png",
		},
		{
			name:    "default video pattern",
			pattern: DefaultVideoPattern().String(),
			kind:    "video",
			random:  "7",
			ext:     ".mp4",
			want:    "videos/video-1768473000000-7.mp4",
		},
		{
			name:    "extension without dot",
			pattern: "{kind}{ext}",
			kind:    "image",
			ext:     "jpg",
			want:    "image.jpg",
		},
		{
			name:    "date directories",
			pattern: "{year}/{month}/{kind}-{random}{ext}",
			kind:    "image",
			random:  "1",
			ext:     ".gif",
			want:    "2026/01/image-1.gif",
		},
		{
			name:    "double slashes are cleaned",
			pattern: "videos//{kind}{ext}",
			kind:    "video",
			ext:     ".mov",
			want:    "videos/video.mov",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewPathPattern(tc.pattern).Generate(tc.kind, ts, tc.random, tc.ext)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tc.want {
				t.Errorf("Generate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPathPattern_GenerateRejectsEmptyKind(t *testing.T) {
	if _, err := DefaultImagePattern().Generate("", time.Now(), "1", ".jpg"); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestPathPattern_GenerateRejectsUnsafeOutput(t *testing.T) {
	if _, err := NewPathPattern("../{kind}{ext}").Generate("image", time.Now(), "1", ".jpg"); err == nil {
		t.Fatal("expected error for traversal output")
	}
	if _, err := NewPathPattern("/{kind}{ext}").Generate("image", time.Now(), "1", ".jpg"); err == nil {
		t.Fatal("expected error for absolute output")
	}
}

func TestDefaultImagePatternShape(t *testing.T) {
	got, err := DefaultImagePattern().Generate("image", time.Now(), "123456", ".png")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !regexp.MustCompile(`^image-\d+-\d+\.png$`).MatchString(got) {
		t.Fatalf("unexpected shape %q", got)
	}
}

func TestPathPattern_Validate(t *testing.T) {
	valid := []string{
		DefaultImagePattern().String(),
		DefaultVideoPattern().String(),
		"{year}/{month}/{kind}-{timestamp}-{random}{ext}",
	}
	for _, pattern := range valid {
		if err := NewPathPattern(pattern).Validate(); err != nil {
			t.Errorf("expected %q to validate, got %v", pattern, err)
		}
	}

	invalid := []string{
		"{kind}{ext}",
		"{kind}-{timestamp}{ext}",
		"{kind}-{random}{ext}",
		"{timestamp}-{random}{ext}",
		"{kind}-{timestamp}-{random}",
	}
	for _, pattern := range invalid {
		if err := NewPathPattern(pattern).Validate(); err == nil {
			t.Errorf("expected %q to be rejected", pattern)
		}
	}
}
