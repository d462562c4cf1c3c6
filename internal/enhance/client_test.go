package enhance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	alsrt "github.com/alecthomas/assert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"models": []map[string]string{{"name": "llama3.2:latest"}, {"name": "mistral:latest"}},
			})
		case "/api/chat":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			require.NotEmpty(t, req.Messages)
			assert.Equal(t, "system", req.Messages[0].Role)
			json.NewEncoder(w).Encode(chatResponse{
				Message: chatMessage{Role: "assistant", Content: reply},
				Done:    true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEnhanceReturnsModelOutput(t *testing.T) {
	srv := chatServer(t, "a kestrel in flight, golden hour, cinematic, 8k")
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	enhanced, ok := c.Enhance(context.Background(), "a kestrel", "cinematic")

	assert.True(t, ok)
	assert.Equal(t, "a kestrel in flight, golden hour, cinematic, 8k", enhanced)
}

func TestEnhanceFallsBackWhenUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", "llama3.2:latest")

	enhanced, ok := c.Enhance(context.Background(), "a kestrel", "")
	assert.False(t, ok)
	assert.Equal(t, "a kestrel", enhanced)
}

func TestEnhanceFallsBackOnEmptyResponse(t *testing.T) {
	srv := chatServer(t, "   ")
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	enhanced, ok := c.Enhance(context.Background(), "a kestrel", "")

	assert.False(t, ok)
	assert.Equal(t, "a kestrel", enhanced)
}

func TestEnhanceFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	enhanced, ok := c.Enhance(context.Background(), "a kestrel", "")

	assert.False(t, ok)
	assert.Equal(t, "a kestrel", enhanced)
}

func TestEnhanceTruncatesOverlongOutput(t *testing.T) {
	// 300 chars of comma-separated phrases, with the last comma before the
	// budget landing inside the tail region.
	reply := strings.Repeat("golden hour light, ", 20) // 380 chars
	srv := chatServer(t, reply)
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	enhanced, ok := c.Enhance(context.Background(), "a kestrel", "")

	assert.True(t, ok)
	assert.LessOrEqual(t, len(enhanced), MaxPromptChars)
	assert.False(t, strings.HasSuffix(enhanced, ","))
	assert.False(t, strings.HasSuffix(enhanced, " "))
	// The cut must land on a phrase boundary, not mid-word.
	assert.True(t, strings.HasSuffix(enhanced, "light"), "got %q", enhanced)
}

func TestTruncatePromptBreaksAtTailComma(t *testing.T) {
	// No break points except one comma at index 200: the cut lands exactly
	// there with the separator stripped.
	s := strings.Repeat("a", 200) + "," + strings.Repeat("b", 99)
	require.Equal(t, 300, len(s))

	got := truncatePrompt(s)
	alsrt.Equal(t, strings.Repeat("a", 200), got)
}

func TestTruncatePromptRawCutWhenBreakTooEarly(t *testing.T) {
	// Only break point is before the threshold, so the cut stays at the
	// raw budget boundary.
	s := strings.Repeat("a", 100) + " " + strings.Repeat("b", 250)

	got := truncatePrompt(s)
	alsrt.Equal(t, MaxPromptChars, len(got))
}

func TestListModels(t *testing.T) {
	srv := chatServer(t, "")
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	alsrt.Equal(t, []string{"llama3.2:latest", "mistral:latest"}, models)
}

func TestAvailable(t *testing.T) {
	srv := chatServer(t, "")
	c := New(srv.URL, "llama3.2:latest")
	assert.True(t, c.Available(context.Background()))

	srv.Close()
	assert.False(t, c.Available(context.Background()))
}

func TestGeneratePromptsParsesNumberedList(t *testing.T) {
	reply := "Here are your prompts:\n1. a kestrel hovering over a wheat field\n2) a kestrel perched on a fence post\n3. a kestrel diving at dusk\n"
	srv := chatServer(t, reply)
	defer srv.Close()

	c := New(srv.URL, "llama3.2:latest")
	prompts := c.GeneratePrompts(context.Background(), "kestrels", 2, "")

	require.Len(t, prompts, 2)
	assert.Equal(t, "a kestrel hovering over a wheat field", prompts[0])
	assert.Equal(t, "a kestrel perched on a fence post", prompts[1])
}

func TestGeneratePromptsEmptyOnFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", "llama3.2:latest")
	assert.Empty(t, c.GeneratePrompts(context.Background(), "kestrels", 3, ""))
}
