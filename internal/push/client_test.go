package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Send(t *testing.T) {
	var gotAuth string
	var gotBody fcmRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		w.Write([]byte(`{"name":"projects/proj/messages/0:1"}`))
	}))
	defer srv.Close()

	client := NewClient("proj", WithSendURL(srv.URL))

	msg := Message{
		Token: "device-token-1",
		Title: "New recipe from Ana",
		Body:  "Tarta",
		Data: map[string]string{
			"type":      "new_recipe",
			"recipe_id": "9",
			"author_id": "1",
		},
	}

	if err := client.Send(context.Background(), "access-tok", msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer access-tok" {
		t.Errorf("Authorization = %q, want bearer access token", gotAuth)
	}
	if gotBody.Message.Token != "device-token-1" {
		t.Errorf("message.token = %q", gotBody.Message.Token)
	}
	if gotBody.Message.Notification.Title != "New recipe from Ana" {
		t.Errorf("notification.title = %q", gotBody.Message.Notification.Title)
	}
	if gotBody.Message.Notification.Body != "Tarta" {
		t.Errorf("notification.body = %q", gotBody.Message.Notification.Body)
	}
	if gotBody.Message.Data["type"] != "new_recipe" {
		t.Errorf("data.type = %q, want new_recipe", gotBody.Message.Data["type"])
	}
	if gotBody.Message.Android == nil || gotBody.Message.Android.Priority != "high" {
		t.Error("android.priority should be high")
	}
}

func TestClient_SendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"UNREGISTERED"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("proj", WithSendURL(srv.URL))

	err := client.Send(context.Background(), "access-tok", Message{Token: "dead-token"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
