package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want %q", r.Method, http.MethodPost)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "test-api-key" {
			t.Errorf("Authorization = %q, want test-api-key", r.Header.Get("Authorization"))
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body["to"] != "1234567890" {
			t.Errorf("to = %v, want 1234567890", body["to"])
		}
		if body["from"] != "SOCIAL" {
			t.Errorf("from = %v, want SOCIAL", body["from"])
		}
		if body["message"] != "Your code is 123456" {
			t.Errorf("message = %v, want code text", body["message"])
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := NewHTTPSMSClient("test-api-key", server.URL, "SOCIAL")
	if err := client.Send("1234567890", "Your code is 123456"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSend_MissingConfig(t *testing.T) {
	client := NewHTTPSMSClient("", "https://gateway.example", "")
	if err := client.Send("1234567890", "hi"); err == nil || !strings.Contains(err.Error(), "API key not configured") {
		t.Errorf("missing key: got %v", err)
	}

	client = NewHTTPSMSClient("key", "", "")
	if err := client.Send("1234567890", "hi"); err == nil || !strings.Contains(err.Error(), "gateway URL not configured") {
		t.Errorf("missing URL: got %v", err)
	}
}

func TestSend_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid request"}`))
	}))
	defer server.Close()

	client := NewHTTPSMSClient("api-key", server.URL, "")
	err := client.Send("1234567890", "hi")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Errorf("error message = %q, want to contain 'status=400'", err.Error())
	}
	if !strings.Contains(err.Error(), "invalid request") {
		t.Errorf("error message = %q, want to contain response body", err.Error())
	}
}
