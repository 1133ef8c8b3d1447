package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/faultlog"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/bietkhonhungvandi212/minidock/internal/workload"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server serves the dashboard page and the JSON API over one engine.
type Server struct {
	eng    *paging.Engine
	gen    *workload.Generator
	logger *slog.Logger
}

func New(eng *paging.Engine, gen *workload.Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{eng: eng, gen: gen, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("POST /create", s.createForm)
	mux.HandleFunc("POST /allocate", s.allocateForm)
	mux.HandleFunc("GET /start/{id}", s.lifecycleLink(s.eng.StartContainer))
	mux.HandleFunc("GET /stop/{id}", s.lifecycleLink(s.eng.StopContainer))
	mux.HandleFunc("GET /terminate/{id}", s.lifecycleLink(s.eng.DestroyContainer))

	mux.HandleFunc("GET /api/memory", s.memory)
	mux.HandleFunc("GET /api/containers", s.listContainers)
	mux.HandleFunc("POST /api/containers", s.createContainer)
	mux.HandleFunc("DELETE /api/containers/{id}", s.lifecycleAPI(s.eng.DestroyContainer))
	mux.HandleFunc("POST /api/containers/{id}/start", s.lifecycleAPI(s.eng.StartContainer))
	mux.HandleFunc("POST /api/containers/{id}/stop", s.lifecycleAPI(s.eng.StopContainer))
	mux.HandleFunc("POST /api/containers/{id}/simulate", s.simulate)
	mux.HandleFunc("POST /api/access", s.access)
	mux.HandleFunc("GET /api/faults", s.faults)
	mux.HandleFunc("GET /api/stats", s.stats)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

/* HTML */

type indexData struct {
	Containers any
	Memory     any
	Faults     []faultlog.Event
	Stats      paging.Stats
	Policies   []replacer.Kind
	Error      string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Containers: s.eng.Containers(),
		Memory:     s.eng.MemoryState(),
		Faults:     s.eng.FaultLog(),
		Stats:      s.eng.Stats(),
		Policies:   replacer.Kinds,
		Error:      r.URL.Query().Get("error"),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	var id util.ContainerID
	if raw := strings.TrimSpace(r.FormValue("container_id")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.redirect(w, r, err)
			return
		}
		id = util.ContainerID(n)
	}
	mem, err := strconv.Atoi(r.FormValue("memory_kb"))
	if err != nil {
		s.redirect(w, r, err)
		return
	}
	_, err = s.eng.CreateContainer(id, mem)
	s.redirect(w, r, err)
}

func (s *Server) allocateForm(w http.ResponseWriter, r *http.Request) {
	id, err1 := strconv.Atoi(r.FormValue("container_id"))
	p, err2 := strconv.Atoi(r.FormValue("page_number"))
	kind, err3 := replacer.ParseKind(r.FormValue("algorithm"))
	if err := errors.Join(err1, err2, err3); err != nil {
		s.redirect(w, r, err)
		return
	}
	_, err := s.eng.Access(util.ContainerID(id), util.PageNumber(p), kind)
	s.redirect(w, r, err)
}

func (s *Server) lifecycleLink(op func(util.ContainerID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err == nil {
			err = op(id)
		}
		s.redirect(w, r, err)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, err error) {
	target := "/"
	if err != nil {
		s.logger.Warn("dashboard action failed", "path", r.URL.Path, "error", err)
		target += "?error=" + url.QueryEscape(err.Error())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

/* JSON API */

func (s *Server) memory(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.eng.MemoryState())
}

func (s *Server) listContainers(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.eng.Containers())
}

type createRequest struct {
	ID       util.ContainerID `json:"id"`
	MemoryKB int              `json:"memory_kb"`
}

func (s *Server) createContainer(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.eng.CreateContainer(req.ID, req.MemoryKB)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	c, err := s.eng.Container(id)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusCreated, c)
}

func (s *Server) lifecycleAPI(op func(util.ContainerID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			sendError(w, http.StatusBadRequest, err)
			return
		}
		if err := op(id); err != nil {
			sendError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type accessRequest struct {
	Container util.ContainerID `json:"container"`
	Page      util.PageNumber  `json:"page"`
	Policy    string           `json:"policy"`
}

func (s *Server) access(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := decodeJSON(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := replacer.ParseKind(req.Policy)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.eng.Access(req.Container, req.Page, kind)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, out)
}

type simulateRequest struct {
	Policy   string `json:"policy"`
	Accesses int    `json:"accesses"`
	MaxPage  int    `json:"max_page"`
	DelayMS  int    `json:"delay_ms"`
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := replacer.ParseKind(req.Policy)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.gen.Run(r.Context(), workload.Request{
		Container: id,
		Policy:    kind,
		Accesses:  req.Accesses,
		MaxPage:   req.MaxPage,
		Delay:     time.Duration(req.DelayMS) * time.Millisecond,
	})
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, report)
}

func (s *Server) faults(w http.ResponseWriter, r *http.Request) {
	format, err := faultlog.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := faultlog.Export(w, s.eng.FaultLog(), format); err != nil {
		s.logger.Error("export faults", "format", format, "error", err)
	}
}

type statsResponse struct {
	paging.Stats
	HitRatio float64 `json:"hit_ratio"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st := s.eng.Stats()
	sendJSON(w, http.StatusOK, statsResponse{Stats: st, HitRatio: st.HitRatio()})
}

/* HELPERS */

func pathID(r *http.Request) (util.ContainerID, error) {
	n, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, util.ErrInvalidContainer
	}
	return util.ContainerID(n), nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrInvalidContainer):
		return http.StatusNotFound
	case errors.Is(err, util.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, util.ErrInsufficientMemory):
		return http.StatusInsufficientStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	response, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, status int, err error) {
	sendJSON(w, status, errorResponse{Error: err.Error()})
}
