package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseListingResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantErr  bool
		validate func(*testing.T, *ListingSuggestion)
	}{
		{
			name:    "plain json",
			content: `{"title":"Levi's 501 jeans","description":"Classic fit.","category":"Jeans","tags":["#Denim","levis","denim",""]}`,
			validate: func(t *testing.T, s *ListingSuggestion) {
				if s.Title != "Levi's 501 jeans" {
					t.Errorf("Title = %q", s.Title)
				}
				if s.Category != "jeans" {
					t.Errorf("Category = %q, want lowercase", s.Category)
				}
				if strings.Join(s.Tags, ",") != "denim,levis" {
					t.Errorf("Tags = %v", s.Tags)
				}
			},
		},
		{
			name:    "json wrapped in prose",
			content: "Here you go:\n```json\n{\"title\":\"Silk scarf\",\"tags\":[]}\n```",
			validate: func(t *testing.T, s *ListingSuggestion) {
				if s.Title != "Silk scarf" {
					t.Errorf("Title = %q", s.Title)
				}
			},
		},
		{
			name:    "long title is truncated",
			content: `{"title":"` + strings.Repeat("a", 120) + `"}`,
			validate: func(t *testing.T, s *ListingSuggestion) {
				if len([]rune(s.Title)) != maxTitleLength {
					t.Errorf("title length = %d, want %d", len([]rune(s.Title)), maxTitleLength)
				}
			},
		},
		{name: "missing title", content: `{"description":"x"}`, wantErr: true},
		{name: "not json", content: "I cannot see the image", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := parseListingResponse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseListingResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.validate != nil {
				tt.validate(t, s)
			}
		})
	}
}

func TestNormalizeTags_Limit(t *testing.T) {
	t.Parallel()
	tags := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		tags = append(tags, strings.Repeat("x", i+1))
	}
	if got := normalizeTags(tags); len(got) != maxTags {
		t.Errorf("normalizeTags() kept %d tags, want %d", len(got), maxTags)
	}
}

func TestBuildListingPrompt(t *testing.T) {
	t.Parallel()
	prompt := buildListingPrompt(ListingInput{Brand: "Barbour", Size: "", Notes: "small mark on\x00 cuff"})
	if !strings.Contains(prompt, "Brand: Barbour") {
		t.Error("expected brand in prompt")
	}
	if strings.Contains(prompt, "Size:") {
		t.Error("empty fields should be omitted")
	}
	if strings.Contains(prompt, "\x00") {
		t.Error("control characters should be stripped")
	}
}

func TestOpenAIProvider_SuggestListing(t *testing.T) {
	t.Parallel()

	requests := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)
		requests <- decoded

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1760000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"title\":\"Wool peacoat\",\"description\":\"Navy, double breasted.\",\"category\":\"Coats\",\"tags\":[\"wool\",\"navy\"]}"}
			}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "", nil, true)
	s, err := p.SuggestListing(context.Background(), ListingInput{ImageURL: "https://cdn.example.com/coat.jpg", Brand: "Crombie"})
	if err != nil {
		t.Fatalf("SuggestListing() error = %v", err)
	}
	if s.Title != "Wool peacoat" || s.Category != "coats" || len(s.Tags) != 2 {
		t.Errorf("unexpected suggestion %+v", s)
	}

	req := <-requests
	if req["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v", req["model"])
	}
	raw, _ := json.Marshal(req["messages"])
	if !strings.Contains(string(raw), "https://cdn.example.com/coat.jpg") {
		t.Error("expected image URL in request messages")
	}
}

func TestOpenAIProvider_QuotaError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "", nil, false)
	_, err := p.SuggestListing(context.Background(), ListingInput{ImageURL: "https://cdn.example.com/coat.jpg"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsQuotaError(err) {
		t.Errorf("IsQuotaError(%v) = false", err)
	}
	if IsRateLimitError(err) {
		t.Error("quota errors are not temporary rate limits")
	}
	if UserMessage(err) != "The AI provider account has run out of credit" {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
}

func TestSanitizeStringForLogging(t *testing.T) {
	t.Parallel()
	got := sanitizeStringForLogging("abc\x07def", 4)
	if got != "abcd..." {
		t.Errorf("sanitizeStringForLogging() = %q", got)
	}
	if ExtractRequestID(WithRequestID(context.Background(), "req-1")) != "req-1" {
		t.Error("request id round trip failed")
	}
	if ExtractItemID(context.Background()) != "" {
		t.Error("missing item id should be empty")
	}
}
