package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spotgram/spotgram/internal/shared"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	client := &Client{baseURL: ts.URL, httpClient: ts.Client()}
	return client, ts
}

func TestGetUpdates(t *testing.T) {
	t.Run("Parses Updates", func(t *testing.T) {
		client, ts := testClient(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("offset") != "7" {
				t.Errorf("expected offset=7, got %q", q.Get("offset"))
			}
			if q.Get("timeout") == "" {
				t.Error("expected long-poll timeout parameter")
			}
			fmt.Fprint(w, `{"ok":true,"result":[
				{"update_id":8,"message":{"message_id":1,"from":{"id":42,"first_name":"Ann"},"chat":{"id":42},"text":"hi"}}
			]}`)
		})
		defer ts.Close()

		updates, err := client.GetUpdates(context.Background(), 7)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(updates) != 1 || updates[0].UpdateID != 8 || updates[0].Message.Text != "hi" {
			t.Errorf("unexpected updates %+v", updates)
		}
	})

	t.Run("API Error", func(t *testing.T) {
		client, ts := testClient(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ok":false,"description":"Unauthorized"}`)
		})
		defer ts.Close()

		_, err := client.GetUpdates(context.Background(), 0)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSendMessage(t *testing.T) {
	var got Outgoing
	client, ts := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})
	defer ts.Close()

	msg := Outgoing{ChatID: "42", Text: "hello", ParseMode: "HTML"}
	if err := client.SendMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ChatID != "42" || got.Text != "hello" || got.ParseMode != "HTML" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendPhoto(t *testing.T) {
	var got OutgoingPhoto
	client, ts := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})
	defer ts.Close()

	photo := OutgoingPhoto{ChatID: "42", Photo: "http://img", Caption: "caption"}
	if err := client.SendPhoto(context.Background(), photo); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Photo != "http://img" || got.Caption != "caption" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestMessageIdentity(t *testing.T) {
	t.Run("From Sender", func(t *testing.T) {
		m := &Message{From: &User{ID: 42}, Chat: Chat{ID: 99}}
		if m.Identity() != "42" {
			t.Errorf("expected sender id, got %q", m.Identity())
		}
	})

	t.Run("Falls Back To Chat", func(t *testing.T) {
		m := &Message{Chat: Chat{ID: 99}}
		if m.Identity() != "99" {
			t.Errorf("expected chat id, got %q", m.Identity())
		}
	})
}
