package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8081", "test-key", "test-model")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:8081", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_Chat(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
	}{
		{
			name:    "successful chat",
			message: "What is the trench depth?",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				resp := ChatResponse{
					ID:     "test-id",
					Object: "chat.completion",
					Choices: []ChatChoice{
						{
							Index: 0,
							Message: Message{
								Role:    "assistant",
								Content: "1.2 meters [Source: spec.pdf]",
							},
							FinishReason: "stop",
						},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantReply: "1.2 meters [Source: spec.pdf]",
			wantErr:   false,
		},
		{
			name:    "no choices returned",
			message: "Hello",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				resp := ChatResponse{
					ID:      "test-id",
					Object:  "chat.completion",
					Choices: []ChatChoice{},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantErr: true,
		},
		{
			name:    "server error",
			message: "Hello",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			reply, err := client.Chat(context.Background(), tt.message)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Chat() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Chat() unexpected error: %v", err)
				return
			}

			if reply != tt.wantReply {
				t.Errorf("Chat() reply = %v, want %v", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test

		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Model != "custom-model" {
			t.Errorf("expected model custom-model, got %s", req.Model)
		}
		if req.MaxTokens != 100 {
			t.Errorf("expected max_tokens 100, got %d", req.MaxTokens)
		}
		if req.Temperature != 0 {
			t.Errorf("expected temperature 0, got %v", req.Temperature)
		}

		resp := ChatResponse{
			ID:     "test-id",
			Object: "chat.completion",
			Choices: []ChatChoice{
				{
					Index: 0,
					Message: Message{
						Role:    "assistant",
						Content: "Response",
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	messages := []Message{
		{Role: "system", Content: "Answer only from the provided context"},
		{Role: "user", Content: "Hello"},
	}

	params := ChatParams{
		Model:       "custom-model",
		MaxTokens:   100,
		Temperature: 0,
	}

	reply, err := client.ChatWithMessages(context.Background(), messages, params)
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}

	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}

func TestClient_ChatWithMessages_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test

		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}

		resp := ChatResponse{
			ID:     "test-id",
			Object: "chat.completion",
			Choices: []ChatChoice{
				{
					Index: 0,
					Message: Message{
						Content: "Response",
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	messages := []Message{
		{Role: "user", Content: "Hello"},
	}

	params := ChatParams{} // Empty model should use client default

	reply, err := client.ChatWithMessages(context.Background(), messages, params)
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}

	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}
