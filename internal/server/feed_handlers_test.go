package server

import (
	"net/http"
	"testing"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeed(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.register("author@example.com")
	reader, _ := env.register("reader@example.com")

	env.createPost(author, "Quiet post", models.PostStatusPublished)
	loud := env.createPost(author, "Loud post", models.PostStatusPublished)
	env.createPost(author, "Unfinished", models.PostStatusDraft)

	resp := env.do(http.MethodPost, path("/api/posts/%d/like", loud), reader, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = env.do(http.MethodGet, "/api/feed/popular", "", nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "popular", resp.Body["preset"])
	articles := resp.Body["articles"].([]any)
	require.Len(t, articles, 2)
	first := articles[0].(map[string]any)
	assert.Equal(t, "Loud post", first["title"])
	assert.Equal(t, float64(1), first["likes"])
	assert.Equal(t, "Test User", first["author"].(map[string]any)["name"])

	resp = env.do(http.MethodGet, "/api/feed/technology?search=quiet", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Len(t, resp.Body["articles"], 1)

	resp = env.do(http.MethodGet, "/api/feed/LATEST?limit=1", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.Body["articles"], 1)

	resp = env.do(http.MethodGet, "/api/feed/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestGetFeed_MyPosts(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.register("author@example.com")
	other, _ := env.register("other@example.com")

	env.createPost(author, "Published piece", models.PostStatusPublished)
	env.createPost(author, "Work in progress", models.PostStatusDraft)
	env.createPost(other, "Someone else", models.PostStatusPublished)

	resp := env.do(http.MethodGet, "/api/feed/my-posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.do(http.MethodGet, "/api/feed/my-posts", author, nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "my-posts", resp.Body["preset"])
	articles := resp.Body["articles"].([]any)
	require.Len(t, articles, 2)
	titles := []any{articles[0].(map[string]any)["title"], articles[1].(map[string]any)["title"]}
	assert.ElementsMatch(t, []any{"Published piece", "Work in progress"}, titles)

	resp = env.do(http.MethodGet, "/api/feed/my-posts?search=progress", author, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.Body["articles"], 1)
}

func TestFeatureFlags_GateFeedAndSuggestionComments(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("ada@example.com")
	id := env.createSuggestion(token, "Dark mode please")

	resp := env.do(http.MethodGet, "/api/features", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	features := resp.Body["features"].(map[string]any)
	assert.Equal(t, true, features[featureflags.Feed])
	assert.Equal(t, true, features[featureflags.SuggestionComments])

	env.srv.flags = featureflags.NewManager("feed=off,suggestion_comments=off")

	resp = env.do(http.MethodGet, "/api/feed/latest", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = env.do(http.MethodPost, path("/api/suggestions/%d/comments", id), token, map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = env.do(http.MethodGet, "/api/features", token, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, false, resp.Body["features"].(map[string]any)[featureflags.Feed])
}
