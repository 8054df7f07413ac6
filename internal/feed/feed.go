// Package feed shapes posts into article cards for list pages.
package feed

import (
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const (
	excerptLen     = 160
	wordsPerMinute = 200
	dateLayout     = "Jan 2, 2006"
	avatarBaseURL  = "https://api.dicebear.com/7.x/initials/svg?seed="
)

// Author is the byline of an article card.
type Author struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// Article is a post prepared for list display.
type Article struct {
	ID       uint     `json:"id"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Author   Author   `json:"author"`
	Date     string   `json:"date"`
	ReadTime int      `json:"readTime"`
	Views    int64    `json:"views"`
	Likes    int64    `json:"likes"`
	Comments int64    `json:"comments"`
}

// Preset is a named list query. Own presets list the signed-in viewer's
// posts of every status and require authentication.
type Preset struct {
	Name   string
	Filter repository.PostFilter
	Own    bool
}

// Presets are the list pages served under /feed/:preset.
var Presets = map[string]Preset{
	"popular":     {Name: "popular", Filter: repository.PostFilter{SortBy: "likes", SortOrder: "desc"}},
	"latest":      {Name: "latest", Filter: repository.PostFilter{SortBy: "createdAt", SortOrder: "desc"}},
	"most-viewed": {Name: "most-viewed", Filter: repository.PostFilter{SortBy: "views", SortOrder: "desc"}},
	"technology": {Name: "technology", Filter: repository.PostFilter{
		Category: models.CategoryTechnology, SortBy: "createdAt", SortOrder: "desc",
	}},
	"my-posts": {Name: "my-posts", Own: true, Filter: repository.PostFilter{SortBy: "createdAt", SortOrder: "desc"}},
}

// Lookup returns the named preset.
func Lookup(name string) (Preset, bool) {
	p, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ToArticle shapes a post for list display.
func ToArticle(p *models.Post) Article {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return Article{
		ID:       p.ID,
		Title:    p.Title,
		Excerpt:  Excerpt(p.Content, excerptLen),
		ImageURL: p.ImageURL,
		Category: p.Category,
		Tags:     tags,
		Author:   authorOf(&p.Author),
		Date:     p.CreatedAt.Format(dateLayout),
		ReadTime: ReadTime(p.Content),
		Views:    p.Views,
		Likes:    p.LikesCount,
		Comments: p.CommentsCount,
	}
}

// ToArticles shapes every post.
func ToArticles(posts []*models.Post) []Article {
	out := make([]Article, 0, len(posts))
	for _, p := range posts {
		out = append(out, ToArticle(p))
	}
	return out
}

// Excerpt collapses whitespace and cuts content to at most n runes,
// appending an ellipsis when truncated.
func Excerpt(content string, n int) string {
	text := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// ReadTime estimates reading minutes, never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	return max(1, int(math.Ceil(float64(words)/wordsPerMinute)))
}

// Filter keeps articles whose title, excerpt, author name or tags contain
// text, ignoring case. An empty text keeps everything.
func Filter(articles []Article, text string) []Article {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return articles
	}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if matches(a, needle) {
			out = append(out, a)
		}
	}
	return out
}

func matches(a Article, needle string) bool {
	for _, field := range []string{a.Title, a.Excerpt, a.Author.Name} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func authorOf(u *models.User) Author {
	name := u.FullName()
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	avatar := u.Avatar
	if avatar == "" {
		avatar = AvatarURL(name)
	}
	return Author{ID: u.ID, Name: name, AvatarURL: avatar}
}

// AvatarURL returns a generated initials avatar for name.
func AvatarURL(name string) string {
	return avatarBaseURL + url.QueryEscape(name)
}
