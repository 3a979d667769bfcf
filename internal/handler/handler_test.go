package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/handler"
	"github.com/GruborIvan/taskmanager/internal/handler/dto"
	"github.com/GruborIvan/taskmanager/internal/middleware"
	"github.com/GruborIvan/taskmanager/internal/repository/memory"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HandlerTestSuite struct {
	suite.Suite
	store *memory.TaskStore
	mux   *http.ServeMux
	now   time.Time
}

func (s *HandlerTestSuite) SetupTest() {
	s.store = memory.New()
	s.mux = http.NewServeMux()
	handler.New(s.store, nil).RegisterRoutes(s.mux)
	s.now = time.Now().UTC().Add(-time.Hour)
}

func (s *HandlerTestSuite) createTask(status, assignee string, relations ...domain.NewRelation) *domain.Task {
	data := `{"amount":12}`
	params := domain.NewTaskParams{
		TaskType:  "Approval",
		Subject:   "Invoice",
		Source:    domain.Source{ID: "erp", Name: "ERP"},
		Status:    status,
		Data:      &data,
		Comment:   &domain.NewComment{Text: "created"},
		Relations: relations,
		CreatedBy: "alice",
	}
	if assignee != "" {
		params.Assignment = &domain.Assignment{AssignedToEntityID: assignee, Type: "User"}
	}
	task := domain.NewTask(params, s.now)
	s.Require().NoError(s.store.Create(context.Background(), task))
	return task
}

func (s *HandlerTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *HandlerTestSuite) TestHealthz() {
	s.Equal(http.StatusOK, s.get("/healthz").Code)

	mux := http.NewServeMux()
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	handler.New(s.store, nil, down).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerTestSuite) TestAPIMd() {
	rec := s.get("/api.md")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/markdown")
	s.Contains(rec.Body.String(), "/api/v1/tasks")
}

func (s *HandlerTestSuite) TestGetTask() {
	task := s.createTask("Open", "bob", domain.NewRelation{EntityID: "ORD-1", EntityType: "Order"})

	rec := s.get("/api/v1/tasks/" + task.ID.String())
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp dto.TaskDetailResponse
	s.decode(rec, &resp)
	s.Equal(task.ID.String(), resp.Task.ID)
	s.Equal("Open", resp.Task.Status)
	s.Equal(int64(1), resp.Task.Version)
	s.Require().NotNil(resp.Task.Assignment)
	s.Equal("bob", resp.Task.Assignment.AssignedToEntityID)
	s.JSONEq(`{"amount":12}`, string(resp.Task.Data))
	s.Len(resp.Comments, 1)
	s.Require().Len(resp.Relations, 1)
	s.Equal("ORD-1", resp.Relations[0].EntityID)
}

func (s *HandlerTestSuite) TestGetTask_Errors() {
	rec := s.get("/api/v1/tasks/not-a-uuid")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.get("/api/v1/tasks/" + uuid.NewString())
	s.Equal(http.StatusNotFound, rec.Code)

	var resp dto.ErrorResponse
	s.decode(rec, &resp)
	s.Equal(domain.CodeTaskNotFound, resp.Error.Code)
}

func (s *HandlerTestSuite) TestTaskChildren() {
	task := s.createTask("Open", "", domain.NewRelation{EntityID: "C-1", EntityType: "Contract"})

	rec := s.get("/api/v1/tasks/" + task.ID.String() + "/comments")
	s.Require().Equal(http.StatusOK, rec.Code)
	var comments []dto.CommentResponse
	s.decode(rec, &comments)
	s.Require().Len(comments, 1)
	s.Equal("created", comments[0].Text)

	rec = s.get("/api/v1/tasks/" + task.ID.String() + "/relations")
	s.Require().Equal(http.StatusOK, rec.Code)
	var relations []dto.RelationResponse
	s.decode(rec, &relations)
	s.Require().Len(relations, 1)
	s.Equal("Contract", relations[0].EntityType)
}

func (s *HandlerTestSuite) TestListTasks_Filters() {
	s.createTask("Open", "bob")
	s.createTask("Open", "carol")
	s.createTask("Closed", "bob")

	rec := s.get("/api/v1/tasks?status=Open&assigned_to=bob")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp dto.TasksListResponse
	s.decode(rec, &resp)
	s.Equal(1, resp.Total)
	s.Len(resp.Tasks, 1)
	s.Equal(dto.DefaultLimit, resp.Limit)

	rec = s.get("/api/v1/tasks?limit=2&offset=0")
	s.Require().Equal(http.StatusOK, rec.Code)
	resp = dto.TasksListResponse{}
	s.decode(rec, &resp)
	s.Equal(3, resp.Total)
	s.Len(resp.Tasks, 2)
}

func (s *HandlerTestSuite) TestListTasks_InvalidParams() {
	for _, q := range []string{"limit=0", "limit=201", "offset=-1", "final=maybe"} {
		rec := s.get("/api/v1/tasks?" + q)
		s.Equal(http.StatusUnprocessableEntity, rec.Code, q)
	}
}

func (s *HandlerTestSuite) TestRelationsByEntity() {
	entity := uuid.NewString()
	first := s.createTask("Open", "", domain.NewRelation{EntityID: entity, EntityType: "Invoice"})
	s.createTask("Open", "", domain.NewRelation{EntityID: "other", EntityType: "Invoice"})

	rec := s.get("/api/v1/relations?entity_id=" + entity)
	s.Require().Equal(http.StatusOK, rec.Code)
	var relations []dto.RelationResponse
	s.decode(rec, &relations)
	s.Require().Len(relations, 1)
	s.Equal(first.ID.String(), relations[0].TaskID)

	s.Equal(http.StatusBadRequest, s.get("/api/v1/relations").Code)
}

func (s *HandlerTestSuite) TestActivity() {
	task := s.createTask("Open", "", domain.NewRelation{EntityID: "E", EntityType: "T"})
	s.createTask("Open", "")

	loaded, err := s.store.GetByID(context.Background(), task.ID)
	s.Require().NoError(err)
	change, err := loaded.Finalize("Done", false, "alice", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(context.Background(), loaded, change))

	rec := s.get("/api/v1/activity?period=day")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp dto.ActivityResponse
	s.decode(rec, &resp)
	s.Equal("day", resp.Period)
	s.Equal(2, resp.TasksChanged)
	s.Equal(1, resp.TasksFinalized)
	s.Equal(1, resp.TasksByStatus["Done"])
	s.Equal(2, resp.CommentsStored)
	s.Equal(1, resp.RelationsCreated)

	s.Equal(http.StatusBadRequest, s.get("/api/v1/activity?period=year").Code)
}

func (s *HandlerTestSuite) TestAuthentication() {
	mux := http.NewServeMux()
	handler.New(s.store, middleware.NewAuthMiddleware([]string{"secret"})).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusOK, rec.Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
