package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/tonelab/venue/media"
)

// document is implemented by every stored entity type.
type document interface {
	key() string
	created() time.Time
	stamp(id string, created, updated time.Time)
	prepare()
	check(v *validator.Validate) error
	sortKey() string
}

var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventDate accepts full RFC 3339 timestamps as well as the date and datetime-local
// forms sent by HTML inputs. Values without a zone are read as UTC.
type EventDate struct {
	time.Time
}

func ParseEventDate(s string) (EventDate, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return EventDate{Time: t.UTC()}, nil
		}
	}

	return EventDate{}, fmt.Errorf("invalid date format %q", s)
}

func (d EventDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func (d *EventDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	parsed, err := ParseEventDate(s)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Event is a show on the venue calendar. Its media is encoded as flat imageUrl and
// videoUrl fields.
type Event struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Title       string           `json:"title" validate:"required,max=100"`
	Description string           `json:"description" validate:"required,max=1000"`
	Date        EventDate        `json:"date"`
	TicketURL   string           `json:"ticketUrl,omitempty" validate:"omitempty,url"`
	TicketPrice float64          `json:"ticketPrice" validate:"min=0"`
	Media       media.Attachment `json:"-"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type eventAlias Event

func (e Event) MarshalJSON() ([]byte, error) {
	out := struct {
		eventAlias
		ImageURL string `json:"imageUrl"`
		VideoURL string `json:"videoUrl,omitempty"`
	}{eventAlias: eventAlias(e)}

	if e.Media != nil {
		out.ImageURL = e.Media.ImageURL()
		out.VideoURL = e.Media.VideoURL()
	}

	return json.Marshal(out)
}

// UnmarshalJSON overlays the fields present in b onto e, so decoding a partial body
// into an existing event only changes what the body names.
func (e *Event) UnmarshalJSON(b []byte) error {
	aux := struct {
		*eventAlias
		ImageURL *string `json:"imageUrl"`
		VideoURL *string `json:"videoUrl"`
	}{eventAlias: (*eventAlias)(e)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	var image, video string
	if e.Media != nil {
		image, video = e.Media.ImageURL(), e.Media.VideoURL()
	}
	if aux.ImageURL != nil {
		image = *aux.ImageURL
	}
	if aux.VideoURL != nil {
		video = *aux.VideoURL
	}

	attachment, err := media.NewAttachment(image, video)
	if err != nil {
		return err
	}
	e.Media = attachment

	return nil
}

func (e *Event) key() string        { return e.ID }
func (e *Event) created() time.Time { return e.CreatedAt }

func (e *Event) stamp(id string, created, updated time.Time) {
	e.ID, e.CreatedAt, e.UpdatedAt = id, created, updated
}

func (e *Event) prepare() {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	e.TicketURL = strings.TrimSpace(e.TicketURL)
	e.Slug = slug.Make(e.Title)
	if e.Media == nil {
		e.Media = media.NoMedia{}
	}
}

func (e *Event) check(v *validator.Validate) error {
	if err := v.Struct(e); err != nil {
		return invalid(err)
	}

	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}

	if e.Media.ImageURL() == "" {
		return fmt.Errorf("%w: imageUrl is required", ErrInvalid)
	}

	for _, u := range media.URLs(e.Media) {
		if !media.ValidMediaURL(u) {
			return fmt.Errorf("%w: invalid URL or path %q", ErrInvalid, u)
		}
	}

	return nil
}

// Events are listed by date, earliest first.
func (e *Event) sortKey() string {
	return e.Date.UTC().Format("20060102T150405.000000000")
}

// GalleryPhoto is an image shown in the venue gallery.
type GalleryPhoto struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"imageUrl" validate:"required,mediaurl"`
	Description string    `json:"description" validate:"max=200"`
	Order       int       `json:"order" validate:"min=0,max=999999999"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *GalleryPhoto) key() string        { return p.ID }
func (p *GalleryPhoto) created() time.Time { return p.CreatedAt }

func (p *GalleryPhoto) stamp(id string, created, updated time.Time) {
	p.ID, p.CreatedAt, p.UpdatedAt = id, created, updated
}

func (p *GalleryPhoto) prepare() {
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	p.Description = strings.TrimSpace(p.Description)
}

func (p *GalleryPhoto) check(v *validator.Validate) error {
	if err := v.Struct(p); err != nil {
		return invalid(err)
	}
	return nil
}

func (p *GalleryPhoto) sortKey() string { return orderKey(p.Order, p.CreatedAt) }

// GalleryVideo is a YouTube video shown in the venue gallery.
type GalleryVideo struct {
	ID         string    `json:"id"`
	YouTubeURL string    `json:"youtubeUrl" validate:"required,youtube"`
	Title      string    `json:"title" validate:"max=100"`
	Order      int       `json:"order" validate:"min=0,max=999999999"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (g *GalleryVideo) key() string        { return g.ID }
func (g *GalleryVideo) created() time.Time { return g.CreatedAt }

func (g *GalleryVideo) stamp(id string, created, updated time.Time) {
	g.ID, g.CreatedAt, g.UpdatedAt = id, created, updated
}

func (g *GalleryVideo) prepare() {
	g.YouTubeURL = strings.TrimSpace(g.YouTubeURL)
	g.Title = strings.TrimSpace(g.Title)
}

func (g *GalleryVideo) check(v *validator.Validate) error {
	if err := v.Struct(g); err != nil {
		return invalid(err)
	}
	return nil
}

func (g *GalleryVideo) sortKey() string { return orderKey(g.Order, g.CreatedAt) }

// orderKey sorts by ascending order, then newest first.
func orderKey(order int, created time.Time) string {
	return fmt.Sprintf("%010d-%019d", order, math.MaxInt64-created.UnixNano())
}
