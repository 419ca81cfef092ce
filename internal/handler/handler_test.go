package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard/internal/capabilities"
	"storyboard/internal/config"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: title required", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{&domain.ConflictError{Message: "taken", ResourceType: "user"}, http.StatusConflict},
		{&domain.UpstreamError{Provider: "kimi", Status: 500, Err: errors.New("down")}, http.StatusBadGateway},
		{httputil.ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("pool closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	rec := httptest.NewRecorder()
	handleError(rec, errors.New("secret connection string"))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func projectMux(svc *fakeProjectService) http.Handler {
	h := NewProjectHandler(svc, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}/permanent", h.PermanentlyDeleteProject)
	return withUser(mux)
}

func TestProjectHandler(t *testing.T) {
	svc := &fakeProjectService{project: &models.Project{ID: projectID, UserID: testUser, Title: "Night Market"}}
	h := projectMux(svc)

	t.Run("create", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/api/projects", `{"title":"Film"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, testUser, svc.lastCreate.UserID)

		var p models.Project
		decode(t, rec, &p)
		assert.Equal(t, "Film", p.Title)
		assert.Equal(t, "1328*1328", p.ImageSize)
	})

	t.Run("create rejects bad json and blank title", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/projects", `{"title":`).Code)
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/projects", `{"title":""}`).Code)
	})

	t.Run("get", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/api/projects/"+projectID, "").Code)
		assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/api/projects/"+missingUUID, "").Code)
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/api/projects/not-a-uuid", "").Code)
	})

	t.Run("patch null description clears it", func(t *testing.T) {
		rec := serve(t, h, http.MethodPatch, "/api/projects/"+projectID, `{"description":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.lastUpdate.Description)
		assert.Equal(t, "", *svc.lastUpdate.Description)
		assert.Nil(t, svc.lastUpdate.Title)

		rec = serve(t, h, http.MethodPatch, "/api/projects/"+projectID, `{"title":"Renamed"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, svc.lastUpdate.Description)
		assert.Equal(t, "Renamed", *svc.lastUpdate.Title)
	})

	t.Run("permanent delete", func(t *testing.T) {
		rec := serve(t, h, http.MethodDelete, "/api/projects/"+projectID+"/permanent", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{projectID}, svc.deletedHard)
	})

	t.Run("foreign project", func(t *testing.T) {
		svc.project.UserID = "someone-else"
		defer func() { svc.project.UserID = testUser }()
		assert.Equal(t, http.StatusForbidden, serve(t, h, http.MethodGet, "/api/projects/"+projectID, "").Code)
	})
}

func sceneMux(svc *fakeSceneService) http.Handler {
	h := NewSceneHandler(svc, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects/{id}/scenes", h.CreateScene)
	mux.HandleFunc("PUT /api/projects/{id}/scenes/order", h.ReorderScenes)
	mux.HandleFunc("PATCH /api/scenes/{id}", h.UpdateScene)
	mux.HandleFunc("DELETE /api/scenes/{id}", h.DeleteScene)
	return withUser(mux)
}

func TestSceneHandler(t *testing.T) {
	svc := &fakeSceneService{}
	h := sceneMux(svc)

	t.Run("create uses path project", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/api/projects/"+projectID+"/scenes", `{"order_index":3,"project_id":"ignored"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, projectID, svc.lastCreate.ProjectID)
		assert.Equal(t, 3, svc.lastCreate.OrderIndex)
	})

	t.Run("patch merges nulls and values", func(t *testing.T) {
		body := `{"content":"Wide shot","shot_type":null,"duration_seconds":null,"frame":"low angle"}`
		rec := serve(t, h, http.MethodPatch, "/api/scenes/"+sceneID, body)
		require.Equal(t, http.StatusOK, rec.Code)

		u := svc.lastUpdate
		assert.Equal(t, "Wide shot", *u.Content)
		assert.Equal(t, "", *u.ShotType)
		assert.Equal(t, 0, *u.DurationSeconds)
		assert.Equal(t, "low angle", *u.Frame)
		assert.Nil(t, u.Notes)
		assert.Nil(t, u.ImageURL)
		assert.Nil(t, u.OrderIndex)
	})

	t.Run("patch rejects wrong types", func(t *testing.T) {
		rec := serve(t, h, http.MethodPatch, "/api/scenes/"+sceneID, `{"duration_seconds":"5"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("patch unknown scene", func(t *testing.T) {
		rec := serve(t, h, http.MethodPatch, "/api/scenes/"+missingUUID, `{"content":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reorder", func(t *testing.T) {
		rec := serve(t, h, http.MethodPut, "/api/projects/"+projectID+"/scenes/order", `{"scene_ids":["b","a"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"b", "a"}, svc.lastReorder)

		var scenes []models.Scene
		decode(t, rec, &scenes)
		require.Len(t, scenes, 2)
		assert.Equal(t, 1, scenes[1].OrderIndex)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(t, h, http.MethodDelete, "/api/scenes/"+sceneID, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{sceneID}, svc.deleted)
	})
}

func TestAuthHandler(t *testing.T) {
	users := &fakeAuthService{users: map[string]*models.User{
		"a@b.c": {ID: testUser, Email: "a@b.c"},
	}}
	sessions := &fakeSessions{}
	h := NewAuthHandler(users, sessions, discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("POST /api/auth/refresh", withUser(http.HandlerFunc(h.Refresh)))
	mux.Handle("GET /api/auth/me", withUser(http.HandlerFunc(h.Me)))
	mux.HandleFunc("POST /api/auth/refresh-anon", h.Refresh)

	t.Run("signup issues a session", func(t *testing.T) {
		rec := serve(t, mux, http.MethodPost, "/api/auth/signup", `{"email":"new@b.c","password":"secret1"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SessionResponse
		decode(t, rec, &resp)
		assert.Equal(t, "token-user-new", resp.Token)
		assert.Equal(t, "new@b.c", resp.User.Email)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "token-user-new", cookies[0].Value)
	})

	t.Run("duplicate signup", func(t *testing.T) {
		rec := serve(t, mux, http.MethodPost, "/api/auth/signup", `{"email":"a@b.c","password":"secret1"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := serve(t, mux, http.MethodPost, "/api/auth/login", `{"email":"a@b.c","password":"secret1"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = serve(t, mux, http.MethodPost, "/api/auth/login", `{"email":"a@b.c","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("logout", func(t *testing.T) {
		rec := serve(t, mux, http.MethodPost, "/api/auth/logout", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, sessions.cleared)
	})

	t.Run("refresh and me", func(t *testing.T) {
		rec := serve(t, mux, http.MethodPost, "/api/auth/refresh", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp SessionResponse
		decode(t, rec, &resp)
		assert.Equal(t, "token-"+testUser, resp.Token)

		assert.Equal(t, http.StatusUnauthorized, serve(t, mux, http.MethodPost, "/api/auth/refresh-anon", "").Code)

		rec = serve(t, mux, http.MethodGet, "/api/auth/me", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func TestChatHandler(t *testing.T) {
	body := `{"projectId":"` + projectID + `","messages":[{"role":"user","content":"add a scene"}]}`

	t.Run("streams events and done marker", func(t *testing.T) {
		svc := &fakeChatService{events: []services.ChatEvent{
			{Type: services.ChatEventTextDelta, Delta: "On it"},
			{Type: services.ChatEventFinish, Reason: "stop"},
		}}
		h := withUser(http.HandlerFunc(NewChatHandler(svc, 0, discardLogger()).StreamChat))

		rec := serve(t, h, http.MethodPost, "/api/chat", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, testUser, svc.got.UserID)
		assert.Equal(t, projectID, svc.got.ProjectID)
		assert.Equal(t,
			"data: {\"type\":\"text-delta\",\"delta\":\"On it\"}\n\n"+
				"data: {\"type\":\"finish\",\"finishReason\":\"stop\"}\n\n"+
				"data: [DONE]\n\n",
			rec.Body.String())
	})

	t.Run("errors before streaming become problem responses", func(t *testing.T) {
		svc := &fakeChatService{err: domain.ErrNotFound}
		h := withUser(http.HandlerFunc(NewChatHandler(svc, 0, discardLogger()).StreamChat))

		rec := serve(t, h, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("errors after streaming end the stream", func(t *testing.T) {
		svc := &fakeChatService{
			events: []services.ChatEvent{{Type: services.ChatEventError, Error: "provider failed"}},
			err:    &domain.UpstreamError{Provider: "kimi", Err: errors.New("eof")},
		}
		h := withUser(http.HandlerFunc(NewChatHandler(svc, 0, discardLogger()).StreamChat))

		rec := serve(t, h, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "provider failed")
		assert.NotContains(t, rec.Body.String(), "[DONE]")
	})

	t.Run("bad body", func(t *testing.T) {
		h := withUser(http.HandlerFunc(NewChatHandler(&fakeChatService{}, 0, discardLogger()).StreamChat))
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/chat", "nope").Code)
	})
}

func TestExportHandler(t *testing.T) {
	body := `{"project":{"title":"Night Market"},"scenes":[{"content":"Lanterns"}]}`

	t.Run("attachment with archive link", func(t *testing.T) {
		archive := &fakeArchive{stored: map[string][]byte{}}
		h := withUser(http.HandlerFunc(NewExportHandler(&fakeExportService{}, archive, discardLogger()).Export))

		rec := serve(t, h, http.MethodPost, "/api/export", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename*=UTF-8''Night%20Market_Storyboard.xlsx", rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "https://archive.local/Night Market_Storyboard.xlsx", rec.Header().Get(ArchiveURLHeader))
		assert.Equal(t, "PK-workbook", rec.Body.String())
		assert.Equal(t, []byte("PK-workbook"), archive.stored[testUser+"/Night Market_Storyboard.xlsx"])
	})

	t.Run("archive failure does not fail the export", func(t *testing.T) {
		archive := &fakeArchive{err: errors.New("bucket gone")}
		h := withUser(http.HandlerFunc(NewExportHandler(&fakeExportService{}, archive, discardLogger()).Export))

		rec := serve(t, h, http.MethodPost, "/api/export", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(ArchiveURLHeader))
	})

	t.Run("invalid data", func(t *testing.T) {
		h := withUser(http.HandlerFunc(NewExportHandler(&fakeExportService{}, nil, discardLogger()).Export))
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/export", `{"scenes":[]}`).Code)
		assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/api/export", `[`).Code)
	})
}

func TestModelsHandler(t *testing.T) {
	registry, err := capabilities.NewRegistry()
	require.NoError(t, err)

	cfg := &config.Config{QwenAPIKey: "k", DefaultModel: "qwen-plus"}
	h := NewModelsHandler(cfg, discardLogger(), registry)

	rec := serve(t, http.HandlerFunc(h.ListModels), http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ModelsResponse
	decode(t, rec, &resp)
	assert.Equal(t, "qwen-plus", resp.DefaultModel)
	require.Len(t, resp.Providers, 1)
	assert.Equal(t, "qwen", resp.Providers[0].ID)

	var ids []string
	for _, m := range resp.Providers[0].Models {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"qwen-plus", "qwen-max"}, ids)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	rec := serve(t, http.HandlerFunc(NewHealthHandler(stubPinger{}).HealthCheck), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.HandlerFunc(NewHealthHandler(stubPinger{err: errors.New("down")}).HealthCheck), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
