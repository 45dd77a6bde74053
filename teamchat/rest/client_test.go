package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenworld/teamchat-sdk/teamchat-sdk-go/teamchat"
)

func TestGetTeamMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/5/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"messageId":"m-1","teamId":5,"senderId":9,"senderName":"Jamie","messageText":"first","messageType":"TEXT","createdAt":"2025-08-01T12:00:00","isDeleted":false},
			{"messageId":"m-2","teamId":5,"senderId":9,"senderName":"Jamie","messageText":"gone","messageType":"TEXT","createdAt":"2025-08-01T12:00:01","isDeleted":true},
			{"messageId":"m-3","teamId":5,"senderId":11,"senderName":"Sasha","messageText":"second","messageType":"TEXT","createdAt":"not-a-timestamp","isDeleted":false}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("test-token"))
	messages, err := c.GetTeamMessages(context.Background(), "5")
	require.NoError(t, err)

	// the soft-deleted row is filtered out
	require.Len(t, messages, 2)

	want := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "m-1", messages[0].ID)
	assert.Equal(t, "5", messages[0].TeamID)
	assert.Equal(t, "9", messages[0].SenderID)
	assert.Equal(t, "Jamie", messages[0].SenderName)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, want, messages[0].CreatedAt)

	// unparseable timestamps are kept with a zero CreatedAt
	assert.Equal(t, "m-3", messages[1].ID)
	assert.Zero(t, messages[1].CreatedAt)
}

func TestGetTeamMessagesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("t"))
	messages, err := c.GetTeamMessages(context.Background(), "5")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetMyTeam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/my-team", r.URL.Path)
		_, _ = w.Write([]byte(`{"teamId":5,"teamName":"Green Sprinters","memberCount":4}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("t"))
	team, err := c.GetMyTeam(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), team.ID)
	assert.Equal(t, "Green Sprinters", team.Name)
	assert.Equal(t, 4, team.MemberCount)
}

func TestGetMyTeamNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no team"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("t"))
	_, err := c.GetMyTeam(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTeams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/list", r.URL.Path)
		_, _ = w.Write([]byte(`[{"teamId":1,"teamName":"A","memberCount":2},{"teamId":2,"teamName":"B","memberCount":3}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("t"))
	teams, err := c.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "A", teams[0].Name)
	assert.Equal(t, int64(2), teams[1].ID)
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, teamchat.StaticToken("t"))
	_, err := c.ListTeams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.Contains(t, err.Error(), "500")
}

func TestMissingTokenOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.ListTeams(context.Background())
	require.NoError(t, err)
}
