package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/madgik/datacatalog/internal/domain"
	"github.com/madgik/datacatalog/internal/present/rest/presenter"
	"github.com/madgik/datacatalog/internal/service"
	"github.com/madgik/datacatalog/internal/usecase"
)

const spreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	datamodel  *usecase.DataModelUsecase
	federation *usecase.FederationUsecase
	events     *service.EventService
}

func NewHandler(
	datamodel *usecase.DataModelUsecase,
	federation *usecase.FederationUsecase,
	events *service.EventService,
) *Handler {
	return &Handler{
		datamodel:  datamodel,
		federation: federation,
		events:     events,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/datamodels", h.handleListDataModels)
	e.GET("/datamodels/:uuid", h.handleGetDataModel)
	e.POST("/datamodels", h.handleCreateDataModel)
	e.PUT("/datamodels/:uuid", h.handleUpdateDataModel)
	e.DELETE("/datamodels/:uuid", h.handleDeleteDataModel)
	e.POST("/datamodels/:uuid/release", h.handleReleaseDataModel)
	e.POST("/datamodels/import", h.handleImportDataModel)
	e.PUT("/datamodels/:uuid/excel", h.handleUpdateDataModelExcel)
	e.GET("/datamodels/:uuid/export", h.handleExportDataModel)

	e.GET("/federations", h.handleListFederations)
	e.GET("/federations/:code", h.handleGetFederation)
	e.POST("/federations", h.handleCreateFederation)
	e.PUT("/federations/:code", h.handleUpdateFederation)
	e.DELETE("/federations/:code", h.handleDeleteFederation)

	e.GET("/user", h.handleActiveUser)
	e.GET("/events", h.handleEvents)
}

func (h *Handler) handleListDataModels(c echo.Context) error {
	ctx := c.Request().Context()

	var released *bool
	if param := c.QueryParam("released"); param != "" {
		parsed, err := strconv.ParseBool(param)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid released parameter")
		}
		released = &parsed
	}

	dataModels, err := h.datamodel.List(ctx, released)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, dataModels)
}

func (h *Handler) handleGetDataModel(c echo.Context) error {
	ctx := c.Request().Context()

	dm, err := h.datamodel.Get(ctx, c.Param("uuid"))
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, dm)
}

func (h *Handler) handleCreateDataModel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	var doc domain.DataModelDocument
	if err := c.Bind(&doc); err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.datamodel.Create(ctx, user, doc)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateDataModel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	var doc domain.DataModelDocument
	if err := c.Bind(&doc); err != nil {
		return presenter.BadRequest(c, err)
	}

	updated, err := h.datamodel.Update(ctx, user, c.Param("uuid"), doc)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, updated)
}

func (h *Handler) handleDeleteDataModel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	if err := h.datamodel.Delete(ctx, user, c.Param("uuid")); err != nil {
		return respondError(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleReleaseDataModel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	if err := h.datamodel.Release(ctx, user, c.Param("uuid")); err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleImportDataModel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	spreadsheet, version, longitudinal, err := spreadsheetForm(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.datamodel.Import(ctx, user, spreadsheet, version, longitudinal)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateDataModelExcel(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	spreadsheet, version, longitudinal, err := spreadsheetForm(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	updated, err := h.datamodel.UpdateFromSpreadsheet(ctx, user, c.Param("uuid"), spreadsheet, version, longitudinal)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, updated)
}

func (h *Handler) handleExportDataModel(c echo.Context) error {
	ctx := c.Request().Context()

	spreadsheet, err := h.datamodel.Export(ctx, c.Param("uuid"))
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=data-model.xlsx`)
	return c.Blob(http.StatusOK, spreadsheetContentType, spreadsheet)
}

func (h *Handler) handleListFederations(c echo.Context) error {
	ctx := c.Request().Context()

	federations, err := h.federation.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, federations)
}

func (h *Handler) handleGetFederation(c echo.Context) error {
	ctx := c.Request().Context()

	fed, err := h.federation.Get(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, fed)
}

func (h *Handler) handleCreateFederation(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	var fed domain.Federation
	if err := c.Bind(&fed); err != nil {
		return presenter.BadRequest(c, err)
	}
	if fed.Code == "" {
		return presenter.BadRequestMessage(c, "code is required")
	}

	created, err := h.federation.Create(ctx, user, fed)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateFederation(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	var fed domain.Federation
	if err := c.Bind(&fed); err != nil {
		return presenter.BadRequest(c, err)
	}

	updated, err := h.federation.Update(ctx, user, c.Param("code"), fed)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, updated)
}

func (h *Handler) handleDeleteFederation(c echo.Context) error {
	ctx := c.Request().Context()
	user := activeUser(c)
	logAction(c, user)

	if err := h.federation.Delete(ctx, user, c.Param("code")); err != nil {
		return respondError(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleActiveUser(c echo.Context) error {
	return presenter.OK(c, activeUser(c))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents streams catalog change events to the client until it
// disconnects.
func (h *Handler) handleEvents(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "events"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, unsubscribe, err := h.events.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer unsubscribe()

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	streamEvents(ctx, ws, events)
	return nil
}

// eventWriter is the subset of the websocket connection the stream loop
// needs.
type eventWriter interface {
	WriteJSON(v any) error
}

// streamEvents forwards events to the client until the context is cancelled,
// the source closes or a write fails. Returning on ctx.Done matters: after a
// disconnect the source channel goes quiet, and blocking on it would keep
// the subscription open until an unrelated event arrives.
func streamEvents(ctx context.Context, ws eventWriter, events <-chan domain.CatalogEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func activeUser(c echo.Context) domain.User {
	if user, ok := c.Request().Context().Value(domain.UserCtxKey).(domain.User); ok {
		return user
	}
	return domain.User{Username: "unauthenticated"}
}

func logAction(c echo.Context, user domain.User) {
	slog.Info("user action",
		slog.String("user", user.Username),
		slog.String("endpoint", c.Request().Method+" "+c.Request().URL.Path),
	)
}

func spreadsheetForm(c echo.Context) (spreadsheet []byte, version string, longitudinal bool, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", false, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", false, err
	}
	defer file.Close()

	spreadsheet, err = io.ReadAll(file)
	if err != nil {
		return nil, "", false, err
	}

	version = c.FormValue("version")
	if param := c.FormValue("longitudinal"); param != "" {
		longitudinal, err = strconv.ParseBool(param)
		if err != nil {
			return nil, "", false, err
		}
	}
	return spreadsheet, version, longitudinal, nil
}

// respondError maps the domain error taxonomy onto HTTP statuses. The
// membership case is matched first since it also satisfies ErrConflict.
func respondError(c echo.Context, err error) error {
	var membership *domain.MembershipError
	if errors.As(err, &membership) {
		return presenter.MembershipConflict(c, membership.Error(), membership.Missing, membership.Unreleased)
	}
	var membershipValue domain.MembershipError
	if errors.As(err, &membershipValue) {
		return presenter.MembershipConflict(c, membershipValue.Error(), membershipValue.Missing, membershipValue.Unreleased)
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return presenter.Conflict(c, err)
	case errors.Is(err, domain.ErrValidation):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrUnauthorized):
		return presenter.Forbidden(c, err)
	case errors.Is(err, domain.ErrUpstream):
		return presenter.BadGateway(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}
