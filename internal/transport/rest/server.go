package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
	"leadrouter/internal/ports"
	"leadrouter/internal/usecase/allocation"
)

// Server exposes the producer endpoint (create appeal + enqueue allocation)
// and the read-only inspection surface. Admin CRUD for operators and lead
// sources stays out; routing setup happens through init-db seeding.
type Server struct {
	service    *allocation.Service
	httpServer *http.Server
}

func NewServer(service *allocation.Service, addr string) *Server {
	s := &Server{service: service}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Route("/appeals", func(r chi.Router) {
		r.Post("/", s.createAppeal)
		r.Get("/", s.listAppeals)
		r.Get("/{appealID}", s.getAppeal)
		r.Post("/{appealID}/status", s.changeStatus)
	})
	router.Route("/inspect", func(r chi.Router) {
		r.Get("/leads", s.listLeads)
		r.Get("/operators", s.listOperators)
		r.Get("/appeals/distribution", s.distribution)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route tree for in-process serving and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "rest"))
	logging.Info(logCtx, "http server starting", slog.String("addr", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errs.Wrap(err, "serve http")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "shutdown http server")
	}

	logging.Info(logCtx, "http server stopped")
	return nil
}

type appealDTO struct {
	AppealID           uint64  `json:"id"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	LeadID             uint64  `json:"lead_id"`
	LeadSourceID       uint64  `json:"lead_source_id"`
	AssignedOperatorID *uint64 `json:"assigned_operator_id"`
}

func mapAppealDTO(appeal routing.Appeal) appealDTO {
	return appealDTO{
		AppealID:           appeal.AppealID,
		Status:             string(appeal.Status),
		CreatedAt:          appeal.CreatedAt,
		LeadID:             appeal.LeadID,
		LeadSourceID:       appeal.LeadSourceID,
		AssignedOperatorID: appeal.AssignedOperatorID,
	}
}

type createAppealRequest struct {
	LeadID       uint64 `json:"lead_id"`
	LeadSourceID uint64 `json:"lead_source_id"`
}

func (s *Server) createAppeal(w http.ResponseWriter, r *http.Request) {
	var req createAppealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appeal, err := s.service.CreateAppeal(r.Context(), allocation.CreateAppealInput{
		LeadID:       req.LeadID,
		LeadSourceID: req.LeadSourceID,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapAppealDTO(appeal))
}

func (s *Server) listAppeals(w http.ResponseWriter, r *http.Request) {
	filter := ports.AppealFilter{
		LeadSourceID: queryUint(r, "lead_source_id"),
		LeadID:       queryUint(r, "lead_id"),
		OnlyActive:   r.URL.Query().Get("active") == "true",
	}

	appeals, err := s.service.ListAppeals(r.Context(), filter)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	items := make([]appealDTO, 0, len(appeals))
	for _, appeal := range appeals {
		items = append(items, mapAppealDTO(appeal))
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getAppeal(w http.ResponseWriter, r *http.Request) {
	appealID, err := strconv.ParseUint(chi.URLParam(r, "appealID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appeal id")
		return
	}

	appeal, err := s.service.GetAppeal(r.Context(), appealID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAppealDTO(appeal))
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	appealID, err := strconv.ParseUint(chi.URLParam(r, "appealID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appeal id")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := routing.ParseAppealStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appeal status")
		return
	}

	appeal, err := s.service.ChangeStatus(r.Context(), appealID, status)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAppealDTO(appeal))
}

type leadDTO struct {
	LeadID    uint64      `json:"id"`
	CreatedAt string      `json:"created_at"`
	Appeals   []appealDTO `json:"appeals"`
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.service.LeadsWithAppeals(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	items := make([]leadDTO, 0, len(leads))
	for _, lead := range leads {
		appeals := make([]appealDTO, 0, len(lead.Appeals))
		for _, appeal := range lead.Appeals {
			appeals = append(appeals, mapAppealDTO(appeal))
		}
		items = append(items, leadDTO{
			LeadID:    lead.LeadID,
			CreatedAt: lead.CreatedAt,
			Appeals:   appeals,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type operatorLoadDTO struct {
	OperatorID         uint64 `json:"id"`
	Status             string `json:"status"`
	ActiveAppeals      int    `json:"active_appeals"`
	ActiveAppealsLimit int    `json:"active_appeals_limit"`
	AssignedTotal      int    `json:"assigned_total"`
}

func (s *Server) listOperators(w http.ResponseWriter, r *http.Request) {
	loads, err := s.service.OperatorLoads(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	items := make([]operatorLoadDTO, 0, len(loads))
	for _, load := range loads {
		items = append(items, operatorLoadDTO{
			OperatorID:         load.OperatorID,
			Status:             load.Status,
			ActiveAppeals:      load.ActiveAppeals,
			ActiveAppealsLimit: load.ActiveAppealsLimit,
			AssignedTotal:      load.AssignedTotal,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type distributionDTO struct {
	OperatorID uint64 `json:"operator_id"`
	Appeals    int    `json:"appeals"`
}

func (s *Server) distribution(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Distribution(r.Context(), queryUint(r, "lead_source_id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	out := make([]distributionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, distributionDTO{OperatorID: item.OperatorID, Appeals: item.Appeals})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryUint(r *http.Request, key string) uint64 {
	value, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrAppealNotFound),
		errors.Is(err, routing.ErrOperatorNotFound),
		errors.Is(err, routing.ErrLeadSourceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, routing.ErrInvalidAppealStatus),
		errors.Is(err, routing.ErrInvalidRoutingFactor):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error(ctx, "request failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
