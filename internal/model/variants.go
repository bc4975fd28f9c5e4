package model

import "time"

// Episode 对应 <episodedetails>。
type Episode struct {
	Title     *string    `json:"title,omitempty"`
	Episode   *int       `json:"episode,omitempty"`
	Aired     *time.Time `json:"aired,omitempty"`
	MPAA      *string    `json:"mpaa,omitempty"`
	Plot      *string    `json:"plot,omitempty"`
	Directors []string   `json:"directors"`
	Writers   []string   `json:"writers"`
	Rating    *float64   `json:"rating,omitempty"`
}

// NewEpisode 返回所有标量缺失、列表为空的 Episode。
func NewEpisode() *Episode {
	return &Episode{Directors: []string{}, Writers: []string{}}
}

func (e *Episode) RootTag() string { return TagEpisode }

func (e *Episode) fields() []field {
	return []field{
		{"title", "title", &e.Title},
		{"episode", "episode", &e.Episode},
		{"aired", "aired", &e.Aired},
		{"mpaa", "mpaa", &e.MPAA},
		{"plot", "plot", &e.Plot},
		{"directors", "director", &e.Directors},
		{"writers", "writer", &e.Writers},
		{"rating", "rating", &e.Rating},
	}
}

var episodeOrder = []string{"title", "episode", "aired", "mpaa", "plot", "director", "writer", "rating"}

func (e *Episode) order() []string { return episodeOrder }

// Actor 对应 <actor>，既可作为独立文件的根，也嵌套在 Show/Movie 中。
type Actor struct {
	Name  *string `json:"name,omitempty"`
	Role  *string `json:"role,omitempty"`
	Thumb *string `json:"thumb,omitempty"`
}

func NewActor() *Actor { return &Actor{} }

func (a *Actor) RootTag() string { return TagActor }

func (a *Actor) fields() []field {
	return []field{
		{"name", "name", &a.Name},
		{"role", "role", &a.Role},
		{"thumb", "thumb", &a.Thumb},
	}
}

var actorOrder = []string{"name", "role", "thumb"}

func (a *Actor) order() []string { return actorOrder }

// Show 对应 <tvshow>。
type Show struct {
	Title         *string    `json:"title,omitempty"`
	OriginalTitle *string    `json:"original_title,omitempty"`
	SortTitle     *string    `json:"sort_title,omitempty"`
	Sets          []string   `json:"sets"`
	MPAA          *string    `json:"mpaa,omitempty"`
	Plot          *string    `json:"plot,omitempty"`
	TagLine       *string    `json:"tag_line,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	Premiered     *time.Time `json:"premiered,omitempty"`
	Studio        *string    `json:"studio,omitempty"`
	Genres        []string   `json:"genres"`
	Actors        []Actor    `json:"actors"`
}

func NewShow() *Show {
	return &Show{Sets: []string{}, Genres: []string{}, Actors: []Actor{}}
}

func (s *Show) RootTag() string { return TagShow }

func (s *Show) fields() []field {
	return []field{
		{"title", "title", &s.Title},
		{"original_title", "originaltitle", &s.OriginalTitle},
		{"sort_title", "sorttitle", &s.SortTitle},
		{"sets", "set", &s.Sets},
		{"mpaa", "mpaa", &s.MPAA},
		{"plot", "plot", &s.Plot},
		{"tag_line", "tagline", &s.TagLine},
		{"rating", "rating", &s.Rating},
		{"premiered", "premiered", &s.Premiered},
		{"studio", "studio", &s.Studio},
		{"genres", "genre", &s.Genres},
		{"actors", "actor", &s.Actors},
	}
}

var showOrder = []string{
	"title", "originaltitle", "sorttitle", "set", "mpaa", "plot", "tagline", "rating",
	"premiered", "studio", "genre", "actor",
}

func (s *Show) order() []string { return showOrder }

// Movie 对应 <movie>。
type Movie struct {
	Title         *string    `json:"title,omitempty"`
	OriginalTitle *string    `json:"original_title,omitempty"`
	SortTitle     *string    `json:"sort_title,omitempty"`
	Sets          []string   `json:"sets"`
	MPAA          *string    `json:"mpaa,omitempty"`
	Plot          *string    `json:"plot,omitempty"`
	TagLine       *string    `json:"tag_line,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	ReleaseDate   *time.Time `json:"release_date,omitempty"`
	Studio        *string    `json:"studio,omitempty"`
	Directors     []string   `json:"directors"`
	Writers       []string   `json:"writers"`
	Genres        []string   `json:"genres"`
	Actors        []Actor    `json:"actors"`
}

func NewMovie() *Movie {
	return &Movie{
		Sets:      []string{},
		Directors: []string{},
		Writers:   []string{},
		Genres:    []string{},
		Actors:    []Actor{},
	}
}

func (m *Movie) RootTag() string { return TagMovie }

func (m *Movie) fields() []field {
	return []field{
		{"title", "title", &m.Title},
		{"original_title", "originaltitle", &m.OriginalTitle},
		{"sort_title", "sorttitle", &m.SortTitle},
		{"sets", "set", &m.Sets},
		{"mpaa", "mpaa", &m.MPAA},
		{"plot", "plot", &m.Plot},
		{"tag_line", "tagline", &m.TagLine},
		{"rating", "rating", &m.Rating},
		{"release_date", "releasedate", &m.ReleaseDate},
		{"studio", "studio", &m.Studio},
		{"directors", "director", &m.Directors},
		{"writers", "writer", &m.Writers},
		{"genres", "genre", &m.Genres},
		{"actors", "actor", &m.Actors},
	}
}

var movieOrder = []string{
	"title", "originaltitle", "sorttitle", "set", "mpaa", "plot", "tagline", "rating",
	"releasedate", "studio", "director", "writer", "genre", "actor",
}

func (m *Movie) order() []string { return movieOrder }

// newByRootTag 按根标签构造空记录；未知标签返回 nil。
func newByRootTag(tag string) Record {
	switch tag {
	case TagEpisode:
		return NewEpisode()
	case TagShow:
		return NewShow()
	case TagMovie:
		return NewMovie()
	case TagActor:
		return NewActor()
	default:
		return nil
	}
}
