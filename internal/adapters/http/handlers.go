package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/futuretasks/core/internal/application/services"
	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// DefaultMaxImportBytes caps snapshot uploads when no limit is configured
const DefaultMaxImportBytes = 5 << 20

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService    ports.TaskService
	reportService  ports.ReportService
	clock          services.Clock
	maxImportBytes int64
	logger         *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, reportService ports.ReportService, clock services.Clock, maxImportBytes int64, appLogger *logger.Logger) *TaskHandler {
	if clock == nil {
		clock = services.RealClock{}
	}
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &TaskHandler{
		taskService:    taskService,
		reportService:  reportService,
		clock:          clock,
		maxImportBytes: maxImportBytes,
		logger:         appLogger,
	}
}

// ListTasks handles filtered listing
func (h *TaskHandler) ListTasks(c echo.Context) error {
	tasks := h.taskService.Query(queryFromRequest(c))
	return c.JSON(http.StatusOK, ListResponse{Data: tasks, Total: len(tasks)})
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.TaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Add(c.Request().Context(), req)
	if err != nil && !entities.IsWarning(err) {
		h.logger.Warnw("Create task rejected", "error", err)
	}
	return respondMutation(c, http.StatusCreated, task, err)
}

// GetTask handles single task lookup
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask handles editing text, priority, category and due date
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	var req ports.TaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Update(c.Request().Context(), id, req)
	return respondMutation(c, http.StatusOK, task, err)
}

// ToggleTask flips the completed flag
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.ToggleCompleted(c.Request().Context(), id)
	return respondMutation(c, http.StatusOK, task, err)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	err = h.taskService.Delete(c.Request().Context(), id)
	return respondMutation(c, http.StatusNoContent, nil, err)
}

// MoveTask places a task before another one, or at the end when before_id is absent
func (h *TaskHandler) MoveTask(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	var req MoveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	err = h.taskService.Reorder(c.Request().Context(), id, req.BeforeID)
	return respondMutation(c, http.StatusNoContent, nil, err)
}

// GetStats returns the summary counters
func (h *TaskHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.taskService.Stats())
}

// ExportTasks downloads the whole list as a JSON snapshot
func (h *TaskHandler) ExportTasks(c echo.Context) error {
	data, err := h.taskService.ExportSnapshot()
	if err != nil {
		return mapError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(services.SnapshotFileName(h.clock.Now())))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// ImportTasks replaces the list with an uploaded snapshot. The snapshot is read
// from a multipart "file" field or from the raw request body.
func (h *TaskHandler) ImportTasks(c echo.Context) error {
	blob, err := h.readImport(c)
	if err != nil {
		return err
	}

	count, err := h.taskService.ImportSnapshot(c.Request().Context(), blob)
	if err != nil && !entities.IsWarning(err) {
		h.logger.Warnw("Import rejected", "error", err, "bytes", len(blob))
		return mapError(err)
	}

	resp := ImportResponse{Imported: count}
	if err != nil {
		resp.Warning = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// GetReport renders the filtered list as csv, xlsx, pdf or json
func (h *TaskHandler) GetReport(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = services.FormatCSV
	}

	tasks := h.taskService.Query(queryFromRequest(c))
	report, err := h.reportService.Render(format, tasks, h.taskService.Stats())
	if err != nil {
		return mapError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(report.FileName))
	return c.Blob(http.StatusOK, report.ContentType, report.Body)
}

func (h *TaskHandler) readImport(c echo.Context) ([]byte, error) {
	limit := h.maxImportBytes
	if limit <= 0 {
		limit = DefaultMaxImportBytes
	}

	var src io.Reader
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			if tooLarge(err) {
				return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Snapshot too large")
			}
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing file field")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable upload").SetInternal(err)
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request().Body
	}

	blob, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		if tooLarge(err) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Snapshot too large")
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable request body").SetInternal(err)
	}
	if int64(len(blob)) > limit {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Snapshot too large")
	}
	return blob, nil
}

// tooLarge reports whether err comes from a body size limit.
func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, echo.ErrStatusRequestEntityTooLarge)
}

func queryFromRequest(c echo.Context) ports.TaskQuery {
	return ports.TaskQuery{
		Filter:   entities.ParseFilterMode(c.QueryParam("filter")),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}
}

func taskIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}
	return id, nil
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
