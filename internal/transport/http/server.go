package httpx

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/service"
	json "github.com/goccy/go-json"
)

const (
	maxBodyBytes = 64 << 10
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type handler struct {
	noose *service.NooseService
	log   *logging.Logger
}

func NewServer(addr string, noose *service.NooseService, log *logging.Logger) *http.Server {
	if log == nil {
		log = logging.Nop()
	}
	log = log.Sub("http")
	return &http.Server{
		Addr:              addr,
		Handler:           withRequestLog(log, NewHandler(noose, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler returns the routed API and web page without request logging.
func NewHandler(noose *service.NooseService, log *logging.Logger) http.Handler {
	h := &handler{noose: noose, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dashboardPageHTML))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, noose.Health())
	})
	mux.HandleFunc("GET /api/agents", h.listAgents)
	mux.HandleFunc("POST /api/agents", h.createAgent)
	mux.HandleFunc("GET /api/agents/{id}", h.agentDetail)
	mux.HandleFunc("GET /api/accidents", h.listAccidents)
	mux.HandleFunc("POST /api/accidents", h.createAccident)
	mux.HandleFunc("GET /api/profile", h.profile)
	mux.HandleFunc("GET /api/quote", h.quote)
	mux.HandleFunc("GET /api/popup", h.popup)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/dashboard", h.dashboard)
	mux.HandleFunc("GET /api/export.xlsx", h.exportWorkbook)
	return mux
}

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.noose.ListAgents(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var request service.CreateAgentRequest
	if err := decodeBody(w, r, &request); err != nil {
		h.writeError(w, err)
		return
	}
	agent, err := h.noose.CreateAgent(r.Context(), request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (h *handler) agentDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.noose.AgentDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) listAccidents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	unassigned, _ := strconv.ParseBool(strings.TrimSpace(query.Get("unassigned")))
	accidents, err := h.noose.ListAccidents(r.Context(), service.ListAccidentsRequest{
		AgentID:    strings.TrimSpace(query.Get("agent_id")),
		Unassigned: unassigned,
		Limit:      int64(limit),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accidents)
}

func (h *handler) createAccident(w http.ResponseWriter, r *http.Request) {
	var request service.CreateAccidentRequest
	if err := decodeBody(w, r, &request); err != nil {
		h.writeError(w, err)
		return
	}
	accident, err := h.noose.CreateAccident(r.Context(), request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accident)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	view, err := h.noose.Profile(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.noose.DailyQuote(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
}

func (h *handler) popup(w http.ResponseWriter, r *http.Request) {
	popup, err := h.noose.ActivePopup(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"popup": popup})
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	board, err := h.noose.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.noose.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *handler) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.noose.ExportSnapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Render fully before writing headers so a failure still yields a 500.
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, snapshot); err != nil {
		h.writeError(w, domain.Internal("failed to render workbook", err))
		return
	}
	filename := "noose-" + snapshot.GeneratedAt.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn().Err(err).Msg("workbook write interrupted")
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]any{"error": message})
}

func statusFor(err error) (int, string) {
	appError, ok := domain.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError, "internal server error"
	}
	switch appError.Code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest, appError.Message
	case domain.CodeNotFound:
		return http.StatusNotFound, appError.Message
	case domain.CodeStore:
		return http.StatusServiceUnavailable, appError.Message
	default:
		return http.StatusInternalServerError, appError.Message
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.InvalidArgument("request body too large")
		}
		return domain.InvalidArgument("request body could not be read")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.InvalidArgument("request body is required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.InvalidArgument("request body must be a JSON object")
	}
	return nil
}

// queryInt parses an optional non-negative integer; empty means zero.
func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, domain.InvalidArgument(name + " must be a non-negative integer")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
