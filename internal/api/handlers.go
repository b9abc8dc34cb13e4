package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hillchart/internal/hill"
	"hillchart/internal/progress"
	"hillchart/internal/render"
	"hillchart/internal/service"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

type featureDTO struct {
	service.Feature
	progress.View
}

type statsDTO struct {
	FeatureID int64 `json:"featureId"`
	progress.View
}

type layoutDTO struct {
	Params hill.Params       `json:"params"`
	Items  []hill.Positioned `json:"items"`
}

type featureRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Status      service.FeatureStatus `json:"status"`
	DueDate     *time.Time            `json:"dueDate"`
	AssigneeIDs []int64               `json:"assigneeIds"`
}

type taskRequest struct {
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Position    float64    `json:"position"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeIDs []int64    `json:"assigneeIds"`
}

type taskPatch struct {
	Title     *string    `json:"title"`
	Completed *bool      `json:"completed"`
	Position  *float64   `json:"position"`
	DueDate   *time.Time `json:"dueDate"`
}

// moveRequest carries either an absolute position or a pixel x in the
// chart's coordinate space, relative to originX.
type moveRequest struct {
	Position *float64 `json:"position"`
	PixelX   *float64 `json:"pixelX"`
	OriginX  float64  `json:"originX"`
}

type assigneeRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

func (h *handlers) listFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.svc.ListFeatures(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]featureDTO, len(features))
	for i, f := range features {
		out[i] = featureDTO{Feature: f, View: f.Stats.View()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	f, err := h.svc.GetFeature(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, featureDTO{Feature: f, View: f.Stats.View()})
}

func (h *handlers) createFeature(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.CreateFeature(r.Context(), service.FeatureInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := h.svc.GetFeature(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, featureDTO{Feature: f, View: f.Stats.View()})
}

func (h *handlers) deleteFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteFeature(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.ListTasks(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handlers) createTask(w http.ResponseWriter, r *http.Request) {
	featureID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.CreateTask(r.Context(), featureID, service.TaskInput{
		Title:       req.Title,
		Completed:   req.Completed,
		Position:    req.Position,
		DueDate:     req.DueDate,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeTask(w, r, http.StatusCreated, id)
}

func (h *handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeTask(w, r, http.StatusOK, id)
}

func (h *handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req taskPatch
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.UpdateTask(r.Context(), id, service.TaskUpdate{
		Title:     req.Title,
		Completed: req.Completed,
		Position:  req.Position,
		DueDate:   req.DueDate,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeTask(w, r, http.StatusOK, id)
}

// moveTask applies a hill move. A pixelX goes through a full
// press/move/release drag so it gets the same clamping as the UI.
func (h *handlers) moveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !h.decode(w, r, &req) {
		return
	}

	var position float64
	switch {
	case req.Position != nil && req.PixelX != nil:
		h.fail(w, r, fmt.Errorf("%w: send either position or pixelX", service.ErrInvalid))
		return
	case req.Position != nil:
		position = *req.Position
	case req.PixelX != nil:
		drag := hill.NewDrag(h.chart, req.OriginX)
		drag.Press(id)
		if err := drag.Move(*req.PixelX); err != nil {
			h.fail(w, r, fmt.Errorf("%w: %v", service.ErrInvalid, err))
			return
		}
		commit, _ := drag.Release()
		position = commit.Position
	default:
		h.fail(w, r, fmt.Errorf("%w: position or pixelX required", service.ErrInvalid))
		return
	}

	if err := h.svc.UpdateTaskPosition(r.Context(), id, position); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeTask(w, r, http.StatusOK, id)
}

func (h *handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) featureStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.FeatureStats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsDTO{FeatureID: st.FeatureID, View: st.Stats.View()})
}

func (h *handlers) allStats(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.AllFeatureStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]statsDTO, len(all))
	for i, st := range all {
		out[i] = statsDTO{FeatureID: st.FeatureID, View: st.Stats.View()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) layout(w http.ResponseWriter, r *http.Request) {
	_, items, ok := h.featureItems(w, r)
	if !ok {
		return
	}
	placed, err := hill.Layout(items, h.chart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layoutDTO{Params: h.chart, Items: placed})
}

func (h *handlers) chartSVG(w http.ResponseWriter, r *http.Request) {
	f, items, ok := h.featureItems(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.SVG(&buf, f.Name, items, h.chart); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = buf.WriteTo(w)
}

func (h *handlers) listAssignees(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAssignees(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createAssignee(w http.ResponseWriter, r *http.Request) {
	var req assigneeRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.CreateAssignee(r.Context(), req.Username, req.AvatarURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// featureItems loads a feature and its tasks in one read and turns the
// tasks into chart items.
func (h *handlers) featureItems(w http.ResponseWriter, r *http.Request) (service.Feature, []hill.Item, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return service.Feature{}, nil, false
	}
	f, tasks, err := h.svc.FeatureWithTasks(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return service.Feature{}, nil, false
	}
	items := make([]hill.Item, len(tasks))
	for i, t := range tasks {
		items[i] = hill.Item{ID: t.ID, Position: t.Position, Label: t.Title}
	}
	return f, items, true
}

func (h *handlers) writeTask(w http.ResponseWriter, r *http.Request, status int, id int64) {
	t, err := h.svc.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, t)
}

func (h *handlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.fail(w, r, fmt.Errorf("%w: bad id %q", service.ErrInvalid, raw))
		return 0, false
	}
	return id, true
}

// decode reads a single JSON object and rejects unknown fields.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalid, err))
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.fail(w, r, fmt.Errorf("%w: body must contain a single JSON object", service.ErrInvalid))
		return false
	}
	return true
}

// fail maps service errors onto status codes. Unexpected errors are logged
// and hidden from the client.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalid), errors.Is(err, service.ErrAmbiguous),
		errors.Is(err, hill.ErrNonFinite), errors.Is(err, progress.ErrNonFinite):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
