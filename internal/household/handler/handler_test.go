package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hcm/internal/household/handler/mocks"
	"hcm/internal/household/models"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/platform/middleware/auth"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/requestcontext"
	"hcm/pkg/testutil"
	"hcm/pkg/validation"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service HouseholdStore
type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	service    *mocks.MockService
	households *mocks.MockHouseholdStore
	router     chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.households = mocks.NewMockHouseholdStore(s.ctrl)
	s.router = s.newRouter()
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) newRouter(opts ...Option) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithHouseholdAdmin(s.households, "admin-secret")}, opts...)
	r := chi.NewRouter()
	New(s.service, logger, opts...).Register(r)
	return r
}

func (s *HandlerSuite) post(router http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	return testutil.DoRequest(router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, body, headers...))
}

func decodeBody[T any](s *HandlerSuite, w *httptest.ResponseRecorder) T {
	return testutil.UnmarshalResponse[T](s.T(), w)
}

var member = models.HouseholdMember{ClientReferenceID: "c1", TenantID: "pb", HouseholdID: "h1", IndividualID: "i1"}

func (s *HandlerSuite) TestSingleCreate() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any(), false).DoAndReturn(
		func(ctx context.Context, req models.BulkRequest, _ bool) (*models.BulkResult, error) {
			s.Equal("/household/member/v1/_create", req.RequestInfo.APIID)
			s.Require().Len(req.HouseholdMembers, 1)
			s.Equal("req-42", requestcontext.RequestID(ctx))
			created := req.HouseholdMembers[0]
			created.ID = "m1"
			return &models.BulkResult{Members: []models.HouseholdMember{created}}, nil
		})

	w := s.post(s.router, "/household/member/v1/_create",
		models.Request{RequestInfo: models.RequestInfo{MsgID: "msg-1"}, HouseholdMember: member},
		"X-Request-ID", "req-42")

	s.Equal(http.StatusAccepted, w.Code)
	s.Equal("req-42", w.Header().Get("X-Request-ID"))
	resp := decodeBody[models.Response](s, w)
	s.Equal("m1", resp.HouseholdMember.ID)
	s.Equal(models.StatusSuccessful, resp.ResponseInfo.Status)
	s.Equal("msg-1", resp.ResponseInfo.MsgID)
	s.Equal("req-42", resp.ResponseInfo.ResMsgID)
}

func (s *HandlerSuite) TestSingleValidationFailure() {
	s.service.EXPECT().Update(gomock.Any(), gomock.Any(), false).
		Return(nil, dErrors.New(dErrors.CodeValidation, "ROW_VERSION_MISMATCH: Row version mismatch"))

	w := s.post(s.router, "/household/member/v1/_update", models.Request{HouseholdMember: member})

	s.Equal(http.StatusBadRequest, w.Code)
	body := decodeBody[map[string]string](s, w)
	s.Equal("validation_error", body["error"])
	s.Equal("ROW_VERSION_MISMATCH: Row version mismatch", body["error_description"])
}

func (s *HandlerSuite) TestBulkMultiStatus() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any(), true).Return(&models.BulkResult{
		Members: []models.HouseholdMember{{ID: "m1", ClientReferenceID: "c1"}},
		Errors: []models.EntityErrors{{
			Index:  1,
			Member: models.HouseholdMember{ClientReferenceID: "c2"},
			Errors: []*validation.Error{validation.NonExistentRelatedEntity([]string{"hX"})},
		}},
	}, nil)

	w := s.post(s.router, "/household/member/v1/bulk/_create",
		models.BulkRequest{HouseholdMembers: []models.HouseholdMember{member, member}})

	s.Equal(http.StatusAccepted, w.Code)
	resp := decodeBody[models.BulkResponse](s, w)
	s.Equal(models.StatusFailed, resp.ResponseInfo.Status)
	s.Len(resp.HouseholdMembers, 1)
	s.Require().Len(resp.Errors, 1)
	s.Equal(1, resp.Errors[0].Index)
	s.Equal(validation.CodeNonExistentRelatedEntity, resp.Errors[0].Errors[0].Code)
}

func (s *HandlerSuite) TestBulkRequestFailure() {
	s.service.EXPECT().Delete(gomock.Any(), gomock.Any(), true).
		Return(nil, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "individual search failed"))

	w := s.post(s.router, "/household/member/v1/bulk/_delete", models.BulkRequest{HouseholdMembers: []models.HouseholdMember{member}})

	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlerSuite) TestInternalErrorHidesDetail() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any(), true).
		Return(nil, errors.New("pq: relation does not exist"))

	w := s.post(s.router, "/household/member/v1/bulk/_create", models.BulkRequest{HouseholdMembers: []models.HouseholdMember{member}})

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "relation")
}

func (s *HandlerSuite) TestInvalidBody() {
	w := s.post(s.router, "/household/member/v1/_create", "{not json")
	testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestUnsupportedContentType() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/household/member/v1/_create", "x", "Content-Type", "text/plain")
	w := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusUnsupportedMediaType, w.Code)
}

func (s *HandlerSuite) TestSearch() {
	s.Run("passes query parameters", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.SearchRequest) (*models.SearchResult, error) {
				s.Equal("pb", req.TenantID)
				s.Equal(10, req.Limit)
				s.Equal(20, req.Offset)
				s.Equal(int64(1700000000000), req.LastChangedSince)
				s.True(req.IncludeDeleted)
				s.Equal([]string{"h1"}, req.HouseholdMember.HouseholdID)
				return &models.SearchResult{Members: []models.HouseholdMember{{ID: "m1"}}, TotalCount: 31}, nil
			})

		w := s.post(s.router, "/household/member/v1/_search?tenantId=pb&limit=10&offset=20&lastChangedSince=1700000000000&includeDeleted=true",
			models.SearchRequest{HouseholdMember: models.Search{HouseholdID: []string{"h1"}}})

		s.Equal(http.StatusOK, w.Code)
		resp := decodeBody[models.SearchResponse](s, w)
		s.Equal(31, resp.TotalCount)
		s.Len(resp.HouseholdMembers, 1)
	})

	for _, query := range []string{"limit=ten", "limit=1001", "offset=-1", "lastChangedSince=yesterday", "includeDeleted=maybe"} {
		s.Run("rejects "+query, func() {
			w := s.post(s.router, "/household/member/v1/_search?tenantId=pb&"+query, models.SearchRequest{})
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}

	s.Run("missing tenant is the service's call", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeBadRequest, "tenantId is required"))
		w := s.post(s.router, "/household/member/v1/_search", models.SearchRequest{})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("tenantId is required", decodeBody[map[string]string](s, w)["error_description"])
	})
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	if token == "good" {
		return &auth.JWTClaims{UserID: "u-token"}, nil
	}
	return nil, errors.New("bad token")
}

func (s *HandlerSuite) TestAuth() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := s.newRouter(WithAuth(auth.RequireAuth(stubValidator{}, logger)))

	s.Run("missing token", func() {
		w := s.post(router, "/household/member/v1/_create", models.Request{HouseholdMember: member})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("token user reaches the service", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any(), false).DoAndReturn(
			func(ctx context.Context, req models.BulkRequest, _ bool) (*models.BulkResult, error) {
				s.Equal("u-token", requestcontext.UserID(ctx))
				return &models.BulkResult{Members: req.HouseholdMembers}, nil
			})
		w := s.post(router, "/household/member/v1/_create", models.Request{HouseholdMember: member}, "Authorization", "Bearer good")
		s.Equal(http.StatusAccepted, w.Code)
	})
}

func (s *HandlerSuite) TestUpsertHouseholds() {
	body := models.HouseholdRequest{Households: []models.Household{{ID: "h1", ClientReferenceID: "hc1", TenantID: "pb"}}}

	s.Run("requires admin token", func() {
		w := s.post(s.router, "/household/v1/_admin/upsert", body)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("saves every household", func() {
		s.households.EXPECT().Save(gomock.Any(), body.Households[0]).Return(nil)
		w := s.post(s.router, "/household/v1/_admin/upsert", body, "X-Admin-Token", "admin-secret")
		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("conflict", func() {
		s.households.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		w := s.post(s.router, "/household/v1/_admin/upsert", body, "X-Admin-Token", "admin-secret")
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("rejects households without id", func() {
		w := s.post(s.router, "/household/v1/_admin/upsert",
			models.HouseholdRequest{Households: []models.Household{{TenantID: "pb"}}}, "X-Admin-Token", "admin-secret")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
