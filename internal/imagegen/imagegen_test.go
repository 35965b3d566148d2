package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionClient_Generate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{"hosted url", http.StatusOK, `{"imageUrl":"https://cdn.example/img.png"}`, "https://cdn.example/img.png", ""},
		{"raw base64", http.StatusOK, `{"image":"aGk=","mimeType":"image/jpeg"}`, "data:image/jpeg;base64,aGk=", ""},
		{"data url passthrough", http.StatusOK, `{"image":"data:image/png;base64,aGk="}`, "data:image/png;base64,aGk=", ""},
		{"empty", http.StatusOK, `{}`, "", "returned no image"},
		{"function error", http.StatusOK, `{"error":"quota"}`, "", "image function error: quota"},
		{"http failure", http.StatusBadGateway, `upstream down`, "", "status 502"},
		{"bad json", http.StatusOK, `not json`, "", "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPrompt string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "secret", r.Header.Get("apikey"))

				var req functionRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				gotPrompt = req.Prompt

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewFunctionClient(server.URL, "secret")
			got, err := client.Generate(context.Background(), "a lighthouse at dusk")
			assert.Equal(t, "a lighthouse at dusk", gotPrompt)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", DataURL("", []byte("hi")))
	assert.Equal(t, "data:image/webp;base64,aGk=", DataURL("image/webp", []byte("hi")))
}
