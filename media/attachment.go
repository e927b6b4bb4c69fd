package media

import (
	"errors"
	"net/url"
	"strings"
)

// ErrVideoWithoutImage is returned when a video is attached without a poster image.
var ErrVideoWithoutImage = errors.New("a video requires an image")

// Attachment is the media carried by an entity. It is one of NoMedia, ImageOnly or
// ImageWithVideo.
type Attachment interface {
	ImageURL() string
	VideoURL() string
	isAttachment()
}

type NoMedia struct{}

type ImageOnly struct {
	Image string
}

type ImageWithVideo struct {
	Image string
	Video string
}

func (NoMedia) ImageURL() string { return "" }
func (NoMedia) VideoURL() string { return "" }
func (NoMedia) isAttachment()    {}

func (a ImageOnly) ImageURL() string { return a.Image }
func (ImageOnly) VideoURL() string   { return "" }
func (ImageOnly) isAttachment()      {}

func (a ImageWithVideo) ImageURL() string { return a.Image }
func (a ImageWithVideo) VideoURL() string { return a.Video }
func (ImageWithVideo) isAttachment()      {}

// NewAttachment builds the variant matching the given URLs. Blank strings count as
// absent.
func NewAttachment(image, video string) (Attachment, error) {
	image = strings.TrimSpace(image)
	video = strings.TrimSpace(video)

	switch {
	case image == "" && video == "":
		return NoMedia{}, nil
	case image == "":
		return nil, ErrVideoWithoutImage
	case video == "":
		return ImageOnly{Image: image}, nil
	default:
		return ImageWithVideo{Image: image, Video: video}, nil
	}
}

// URLs lists the non-empty URLs of a.
func URLs(a Attachment) []string {
	if a == nil {
		return nil
	}

	var out []string
	for _, u := range []string{a.ImageURL(), a.VideoURL()} {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ValidMediaURL accepts root-relative paths produced by the local store and
// absolute URLs from a remote host.
func ValidMediaURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//")
	}

	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
