package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"loancore/internal/audit"
	"loancore/internal/lifecycle"
	"loancore/internal/lifecycle/service"
	"loancore/pkg/domain"
	txpkg "loancore/pkg/platform/tx"
	"loancore/pkg/testutil"
)

// =============================================================================
// Lifecycle Handler Test Suite
// =============================================================================
// Handlers run against the real engine with in-memory stores so request
// decoding, status mapping, and response shapes are exercised end to end.

type LifecycleHandlerSuite struct {
	suite.Suite
	ctx      context.Context
	router   chi.Router
	service  *service.Service
	customer domain.Actor
	loan     domain.Actor
	admin    domain.Actor
}

func TestLifecycleHandlerSuite(t *testing.T) {
	suite.Run(t, new(LifecycleHandlerSuite))
}

func (s *LifecycleHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := audit.NewService(audit.NewInMemoryStore(), logger)

	var err error
	s.service, err = service.New(lifecycle.NewInMemoryStore(), ledger, txpkg.NewMemoryRunner(0), logger)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)

	s.customer = domain.Actor{ID: domain.NewActorID(), Role: domain.RoleCustomer}
	s.loan = domain.Actor{ID: domain.NewActorID(), Role: domain.RoleLoanOfficer}
	s.admin = domain.Actor{ID: domain.NewActorID(), Role: domain.RoleAdmin}
}

func (s *LifecycleHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *LifecycleHandlerSuite) submit() ApplicationResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications",
		SubmitRequest{RequestedAmount: 25000, LoanType: "personal"})
	w := s.do(testutil.WithActor(req, s.customer))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp ApplicationResponse
	testutil.DecodeJSON(s.T(), w, &resp)
	return resp
}

// =============================================================================
// Submit Endpoint
// =============================================================================

func (s *LifecycleHandlerSuite) TestSubmitEndpoint() {
	s.Run("valid submission returns 201", func() {
		resp := s.submit()
		s.Equal("in_progress", resp.Status)
		s.EqualValues(1, resp.Version)
		s.Equal(s.customer.ID.String(), resp.ApplicantID)
	})

	s.Run("invalid body returns 400", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications",
			SubmitRequest{RequestedAmount: -5, LoanType: "personal"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("staff submission returns 403", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications",
			SubmitRequest{RequestedAmount: 1000, LoanType: "personal"})
		w := s.do(testutil.WithActor(req, s.admin))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("malformed JSON returns 400", func() {
		req := httptest.NewRequest(http.MethodPost, "/applications", nil)
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

// =============================================================================
// Transition Endpoint
// =============================================================================

func (s *LifecycleHandlerSuite) TestTransitionEndpoint() {
	s.Run("graph edge returns 200 with updated application", func() {
		app := s.submit()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
			TransitionRequest{TargetStatus: "submitted"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		var resp ApplicationResponse
		testutil.DecodeJSON(s.T(), w, &resp)
		s.Equal("submitted", resp.Status)
		s.EqualValues(2, resp.Version)
	})

	s.Run("undefined edge returns 422", func() {
		app := s.submit()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
			TransitionRequest{TargetStatus: "done"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("unqualified role returns 403", func() {
		app := s.submit()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
			TransitionRequest{TargetStatus: "submitted"})
		w := s.do(testutil.WithActor(req, s.loan))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unknown status value returns 400", func() {
		app := s.submit()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
			TransitionRequest{TargetStatus: "launched"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown application returns 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/applications/"+domain.NewApplicationID().String()+"/transitions",
			TransitionRequest{TargetStatus: "submitted"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed id returns 400", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/not-a-uuid/transitions",
			TransitionRequest{TargetStatus: "submitted"})
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

// =============================================================================
// Unlock Endpoint
// =============================================================================

func (s *LifecycleHandlerSuite) TestUnlockEndpoint() {
	prepareRejected := func() ApplicationResponse {
		app := s.submit()
		for _, step := range []struct {
			actor  domain.Actor
			target string
			reason string
		}{
			{s.customer, "submitted", ""},
			{s.loan, "under_review", ""},
			{s.admin, "rejected", "insufficient income"},
		} {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
				TransitionRequest{TargetStatus: step.target, Reason: step.reason})
			w := s.do(testutil.WithActor(req, step.actor))
			s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		}
		return app
	}

	s.Run("admin unlock returns 200 and clears decision fields", func() {
		app := prepareRejected()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/unlock",
			UnlockRequest{Reason: "customer appeal"})
		w := s.do(testutil.WithActor(req, s.admin))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		var resp ApplicationResponse
		testutil.DecodeJSON(s.T(), w, &resp)
		s.Equal("in_progress", resp.Status)
		s.Nil(resp.DecisionMaker)
		s.Nil(resp.DecidedAt)
	})

	s.Run("missing reason returns 400", func() {
		app := prepareRejected()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/unlock",
			UnlockRequest{})
		w := s.do(testutil.WithActor(req, s.admin))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("non-admin returns 403", func() {
		app := prepareRejected()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/unlock",
			UnlockRequest{Reason: "please"})
		w := s.do(testutil.WithActor(req, s.loan))
		s.Equal(http.StatusForbidden, w.Code)
	})
}

// =============================================================================
// Read Endpoints
// =============================================================================

func (s *LifecycleHandlerSuite) TestReadEndpoints() {
	app := s.submit()

	s.Run("get returns the application to its owner", func() {
		req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID, nil)
		w := s.do(testutil.WithActor(req, s.customer))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("get hides foreign applications from customers", func() {
		stranger := domain.Actor{ID: domain.NewActorID(), Role: domain.RoleCustomer}
		req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID, nil)
		w := s.do(testutil.WithActor(req, stranger))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("allowed transitions reflect the caller", func() {
		req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+"/transitions", nil)
		w := s.do(testutil.WithActor(req, s.customer))
		s.Require().Equal(http.StatusOK, w.Code)

		var resp TransitionsResponse
		testutil.DecodeJSON(s.T(), w, &resp)
		s.Equal("in_progress", resp.CurrentStatus)
		s.Equal([]string{"submitted", "cancelled"}, resp.AllowedTransitions)
	})

	s.Run("status summary after one transition", func() {
		moveReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/"+app.ID+"/transitions",
			TransitionRequest{TargetStatus: "submitted"})
		s.Require().Equal(http.StatusOK, s.do(testutil.WithActor(moveReq, s.customer)).Code)

		req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+"/status", nil)
		w := s.do(testutil.WithActor(req, s.customer))
		s.Require().Equal(http.StatusOK, w.Code)

		var resp StatusResponse
		testutil.DecodeJSON(s.T(), w, &resp)
		s.Equal("submitted", resp.Status)
		s.Equal(1, resp.TransitionCount)
		s.Equal(0, resp.UnlockCount)
	})

	s.Run("status history hidden from foreign customers", func() {
		stranger := domain.Actor{ID: domain.NewActorID(), Role: domain.RoleCustomer}
		for _, path := range []string{"/status", "/timeline", "/transitions"} {
			req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+path, nil)
			w := s.do(testutil.WithActor(req, stranger))
			s.Equal(http.StatusForbidden, w.Code, path)
		}
	})

	s.Run("staff read any application's status history", func() {
		for _, path := range []string{"/status", "/timeline", "/transitions"} {
			req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+path, nil)
			w := s.do(testutil.WithActor(req, s.loan))
			s.Equal(http.StatusOK, w.Code, path)
		}
	})

	s.Run("timeline lists steps oldest first", func() {
		req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID+"/timeline", nil)
		w := s.do(testutil.WithActor(req, s.customer))
		s.Require().Equal(http.StatusOK, w.Code)

		var steps []TimelineStepResponse
		testutil.DecodeJSON(s.T(), w, &steps)
		s.Require().NotEmpty(steps)
		s.Equal("in_progress", steps[0].Status)
		s.True(steps[len(steps)-1].IsCurrent)
	})
}
