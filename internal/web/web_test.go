package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	authservice "github.com/goserg/eventserver/auth/service"
	authmem "github.com/goserg/eventserver/auth/storage/mem"
	"github.com/goserg/eventserver/internal/config"
	"github.com/goserg/eventserver/internal/notify"
	"github.com/goserg/eventserver/internal/service"
	"github.com/goserg/eventserver/internal/storage/mem"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type webSuite struct {
	suite.Suite

	server     *Server
	dispatcher *notify.Dispatcher
	auth       string
	userID     int64
}

func TestWeb(t *testing.T) {
	suite.Run(t, new(webSuite))
}

func (s *webSuite) SetupTest() {
	l := logrus.New()
	l.SetOutput(io.Discard)

	authService, err := authservice.New(context.Background(), authservice.Config{TokenSecret: "secret"}, authmem.New(), l)
	s.Require().NoError(err)
	user, err := authService.SignUp(context.Background(), "alice", "secret")
	s.Require().NoError(err)

	s.dispatcher = notify.New(4, nil, l)
	events := service.New(mem.New(), s.dispatcher, service.Config{}, nil, l)
	s.server = New(events, authService, s.dispatcher, config.Server{}, nil, l)
	s.auth = "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))
	s.userID = user.ID
}

func (s *webSuite) do(method, target string, body any, auth string) (int, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.server.App().Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, raw
}

func (s *webSuite) schedule(title, location, date string, participants int) int64 {
	status, raw := s.do(http.MethodPost, "/events", map[string]any{
		"title":        title,
		"location":     location,
		"date":         date,
		"participants": participants,
	}, s.auth)
	s.Require().Equal(http.StatusOK, status, string(raw))
	var resp messageResponse
	s.Require().NoError(json.Unmarshal(raw, &resp))
	s.Require().Equal("Event scheduled successfully", resp.Message)
	return resp.ID
}

func (s *webSuite) listTitles(target string) []string {
	status, raw := s.do(http.MethodGet, target, nil, s.auth)
	s.Require().Equal(http.StatusOK, status, string(raw))
	var events []eventResponse
	s.Require().NoError(json.Unmarshal(raw, &events))
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	return titles
}

func (s *webSuite) TestHealth() {
	status, raw := s.do(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, status)
	s.JSONEq(`{"status":"ok"}`, string(raw))
}

func (s *webSuite) TestUnauthorized() {
	wrong := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:wrong"))
	for _, auth := range []string{"", wrong, "Basic ###", "Bearer nope"} {
		status, raw := s.do(http.MethodGet, "/events", nil, auth)
		s.Equal(http.StatusUnauthorized, status)
		s.JSONEq(`{"error":"Unauthorized"}`, string(raw))
	}
}

func (s *webSuite) TestEventLifecycle() {
	id := s.schedule("Launch", "HQ", "2023-12-01T12:00:00", 10)
	s.Equal(int64(1), id)

	status, raw := s.do(http.MethodGet, "/events/1", nil, s.auth)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`{"id":1,"title":"Launch","location":"HQ","date":"2023-12-01T12:00:00Z","participants":10}`, string(raw))

	status, raw = s.do(http.MethodPut, "/events/1", map[string]any{
		"title":        "Launch v2",
		"location":     "HQ2",
		"date":         "2023-12-02T14:00:00Z",
		"participants": 15,
	}, s.auth)
	s.Equal(http.StatusOK, status, string(raw))
	s.JSONEq(`{"message":"Event updated successfully"}`, string(raw))

	status, raw = s.do(http.MethodGet, "/events/1", nil, s.auth)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`{"id":1,"title":"Launch v2","location":"HQ2","date":"2023-12-02T14:00:00Z","participants":15}`, string(raw))

	status, _ = s.do(http.MethodDelete, "/events/1", nil, s.auth)
	s.Equal(http.StatusOK, status)

	status, raw = s.do(http.MethodGet, "/events/1", nil, s.auth)
	s.Equal(http.StatusNotFound, status)
	s.Contains(string(raw), `"error"`)

	status, _ = s.do(http.MethodDelete, "/events/1", nil, s.auth)
	s.Equal(http.StatusNotFound, status)
}

func (s *webSuite) TestSchedule_validation() {
	status, raw := s.do(http.MethodPost, "/events", map[string]any{
		"title":    "Launch",
		"location": "HQ",
	}, s.auth)
	s.Equal(http.StatusBadRequest, status)

	var resp errorResponse
	s.Require().NoError(json.Unmarshal(raw, &resp))
	s.Empty(resp.Details)
	s.Contains(resp.Error, "participants")

	status, _ = s.do(http.MethodGet, "/events/abc", nil, s.auth)
	s.Equal(http.StatusBadRequest, status)
}

func (s *webSuite) TestSchedule_form() {
	form := url.Values{
		"title":        {"Launch"},
		"location":     {"HQ"},
		"date":         {"2023-12-01T12:00:00Z"},
		"participants": {"3"},
	}
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", s.auth)
	resp, err := s.server.App().Test(req, -1)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Equal([]string{"Launch"}, s.listTitles("/events"))
}

func (s *webSuite) TestListByLocationAndSort() {
	s.schedule("a", "Lab", "2024-01-03T00:00:00Z", 5)
	s.schedule("b", "Office", "2024-01-01T00:00:00Z", 50)
	s.schedule("c", "Lab", "2024-01-02T00:00:00Z", 20)
	s.schedule("d", "Main Hall", "2024-01-04T00:00:00Z", 1)

	s.Equal([]string{"a", "c"}, s.listTitles("/events/location/Lab"))
	s.Equal([]string{"b"}, s.listTitles("/events/location/Office"))
	s.Equal([]string{"d"}, s.listTitles("/events/location/Main%20Hall"))
	s.Equal([]string{}, s.listTitles("/events/location/Nowhere"))

	s.Equal([]string{"b", "c", "a", "d"}, s.listTitles("/events/sort/date"))
	s.Equal([]string{"b", "c", "a", "d"}, s.listTitles("/events/sort/popularity"))
	s.Equal([]string{"a", "b", "c", "d"}, s.listTitles("/events/sort/creationTime"))

	status, raw := s.do(http.MethodGet, "/events/sort/alphabet", nil, s.auth)
	s.Equal(http.StatusBadRequest, status)
	s.Contains(string(raw), "invalid sort criteria")
}

func (s *webSuite) TestBatch() {
	event := map[string]any{"title": "a", "location": "HQ", "date": "2024-01-01T00:00:00Z", "participants": 1}
	second := map[string]any{"title": "b", "location": "HQ", "date": "2024-01-01T00:00:00Z", "participants": 1}

	status, raw := s.do(http.MethodPost, "/events/batch", map[string]any{"events": []any{event, second}}, s.auth)
	s.Equal(http.StatusOK, status, string(raw))
	s.JSONEq(`{"message":"Events scheduled successfully","count":2}`, string(raw))
	s.Equal([]string{"a", "b"}, s.listTitles("/events/sort/creationTime"))

	invalid := map[string]any{"title": "", "location": "HQ", "date": "2024-01-01T00:00:00Z", "participants": 1}
	status, _ = s.do(http.MethodPost, "/events/batch", map[string]any{"events": []any{event, invalid}}, s.auth)
	s.Equal(http.StatusBadRequest, status)
	s.Len(s.listTitles("/events"), 2)

	status, _ = s.do(http.MethodPost, "/events/batch", map[string]any{"events": []any{}}, s.auth)
	s.Equal(http.StatusBadRequest, status)
}

func (s *webSuite) TestSubscribeAndNotify() {
	status, _ := s.do(http.MethodPost, "/events/subscribe/42", nil, s.auth)
	s.Equal(http.StatusNotFound, status)

	id := s.schedule("Launch", "HQ", "2023-12-01T12:00:00Z", 10)
	status, raw := s.do(http.MethodPost, "/events/subscribe/1", nil, s.auth)
	s.Equal(http.StatusOK, status, string(raw))
	var first messageResponse
	s.Require().NoError(json.Unmarshal(raw, &first))

	_, raw = s.do(http.MethodPost, "/events/subscribe/1", nil, s.auth)
	var again messageResponse
	s.Require().NoError(json.Unmarshal(raw, &again))
	s.Equal(first.ID, again.ID)

	status, raw = s.do(http.MethodGet, "/events/1/subscriptions", nil, s.auth)
	s.Equal(http.StatusOK, status)
	var subs []subscriptionResponse
	s.Require().NoError(json.Unmarshal(raw, &subs))
	s.Require().Len(subs, 1)
	s.Equal(s.userID, subs[0].UserID)

	listener := s.dispatcher.Register(s.userID)
	defer s.dispatcher.Unregister(listener)

	status, raw = s.do(http.MethodPost, "/events/notify/1", nil, s.auth)
	s.Equal(http.StatusOK, status, string(raw))
	msg := <-listener.Outbox()
	s.Equal(notify.Message{
		Type:    notify.TypeEventNotification,
		EventID: id,
		Message: service.DefaultMessage,
	}, msg)

	status, _ = s.do(http.MethodPost, "/events/notify/1", map[string]any{"message": "moved"}, s.auth)
	s.Equal(http.StatusOK, status)
	s.Equal("moved", (<-listener.Outbox()).Message)

	status, _ = s.do(http.MethodPost, "/events/notify/2", nil, s.auth)
	s.Equal(http.StatusNotFound, status)
}

func (s *webSuite) TestUsersAndSignIn() {
	status, raw := s.do(http.MethodPost, "/users", map[string]any{"username": "bob", "password": "pw"}, "")
	s.Equal(http.StatusCreated, status, string(raw))
	s.Contains(string(raw), "User created successfully")

	status, _ = s.do(http.MethodPost, "/users", map[string]any{"username": "bob", "password": "other"}, "")
	s.Equal(http.StatusConflict, status)

	status, _ = s.do(http.MethodPost, "/users", map[string]any{"username": "", "password": "pw"}, "")
	s.Equal(http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/signin", map[string]any{"username": "bob", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, status)

	status, raw = s.do(http.MethodPost, "/signin", map[string]any{"username": "bob", "password": "pw"}, "")
	s.Require().Equal(http.StatusOK, status)
	var signin struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	s.Require().NoError(json.Unmarshal(raw, &signin))
	s.NotEmpty(signin.Token)

	status, _ = s.do(http.MethodGet, "/events", nil, "Bearer "+signin.Token)
	s.Equal(http.StatusOK, status)
}

func (s *webSuite) TestStream_requiresUpgrade() {
	status, _ := s.do(http.MethodGet, "/ws", nil, s.auth)
	s.Equal(http.StatusUpgradeRequired, status)

	status, _ = s.do(http.MethodGet, "/ws", nil, "")
	s.Equal(http.StatusUnauthorized, status)
}

func Test_newErrorResponse(t *testing.T) {
	_, err := batchRequest{Events: []eventRequest{{}, {}}}.convertToDomainSpecs()
	require.Error(t, err)

	resp := newErrorResponse(err)
	assert.Greater(t, len(resp.Details), 1)
	assert.Contains(t, resp.Error, "event 0")
	assert.Contains(t, resp.Error, "event 1")
}
