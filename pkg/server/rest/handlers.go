package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type RouterService interface {
	ShortestPath(ctx context.Context, srcLat, srcLon, dstLat, dstLon float64) (string, datastructure.PathResult, error)
	RouteBetweenNodes(ctx context.Context, fromID, toID int64) (string, datastructure.PathResult, error)
	NearestNode(ctx context.Context, lat, lon float64) (int64, float64, error)
	DistanceToPoint(ctx context.Context, lat, lon float64) (int64, float64, error)
}

type RouterHandler struct {
	svc RouterService
}

func NavigatorRouter(r *chi.Mux, svc RouterService) {
	handler := &RouterHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/navigations", func(r chi.Router) {
			r.Post("/shortest-path", handler.ShortestPath)
			r.Post("/route-between-nodes", handler.RouteBetweenNodes)
			r.Post("/nearest-node", handler.NearestNode)
			r.Post("/distance-to-point", handler.DistanceToPoint)
		})
	})
}

// ShortestPathRequest model info
//
//	@Description	request body for routing between two arbitrary coordinates
type ShortestPathRequest struct {
	SrcLat float64 `json:"src_lat" validate:"required,lt=90,gt=-90"`
	SrcLon float64 `json:"src_lon" validate:"required,lt=180,gt=-180"`
	DstLat float64 `json:"dst_lat" validate:"required,lt=90,gt=-90"`
	DstLon float64 `json:"dst_lon" validate:"required,lt=180,gt=-180"`
}

func (s *ShortestPathRequest) Bind(r *http.Request) error {
	if s.SrcLat == 0 && s.SrcLon == 0 && s.DstLat == 0 && s.DstLon == 0 {
		return errors.New("invalid request")
	}
	return nil
}

// RouteResponse model info
//
//	@Description	response body for shortest path queries
type RouteResponse struct {
	Path     string  `json:"path"`
	Dist     float64 `json:"distance"`
	NodeIDs  []int64 `json:"node_ids"`
	Geometry []Coord `json:"geometry"`
}

// Coord model info
//
//	@Description	coordinate model
type Coord struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

func RenderRouteResponse(polylinePath string, result datastructure.PathResult) *RouteResponse {
	geometry := make([]Coord, 0, len(result.Coords))
	for _, c := range result.Coords {
		geometry = append(geometry, Coord{Lat: c.Lat, Lon: c.Lon})
	}
	return &RouteResponse{
		Path:     polylinePath,
		Dist:     result.Dist,
		NodeIDs:  result.Path,
		Geometry: geometry,
	}
}

// ShortestPath
//
//	@Summary		shortest path between two coordinates. Both endpoints are snapped/projected onto the road network first
//	@Description	shortest path between two coordinates using dijkstra over the road graph plus request-scoped virtual nodes
//	@Tags			navigations
//	@Param			body	body	ShortestPathRequest	true	"request body shortest path"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/navigations/shortest-path [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *RouterHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	data := &ShortestPathRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateStruct(w, r, data) {
		return
	}

	p, result, err := h.svc.ShortestPath(r.Context(), data.SrcLat, data.SrcLon, data.DstLat, data.DstLon)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(p, result))
}

// RouteBetweenNodesRequest model info
//
//	@Description	request body for routing between two known graph node ids
type RouteBetweenNodesRequest struct {
	FromID int64 `json:"from_id"`
	ToID   int64 `json:"to_id"`
}

func (s *RouteBetweenNodesRequest) Bind(r *http.Request) error {
	return nil
}

// RouteBetweenNodes
//
//	@Summary		shortest path between two graph node ids
//	@Description	shortest path between two existing node ids. Single-source results are cached per source node
//	@Tags			navigations
//	@Param			body	body	RouteBetweenNodesRequest	true	"request body route between nodes"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/navigations/route-between-nodes [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		422	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *RouterHandler) RouteBetweenNodes(w http.ResponseWriter, r *http.Request) {
	data := &RouteBetweenNodesRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	p, result, err := h.svc.RouteBetweenNodes(r.Context(), data.FromID, data.ToID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(p, result))
}

// PointRequest model info
//
//	@Description	request body carrying one coordinate
type PointRequest struct {
	Lat float64 `json:"lat" validate:"required,lt=90,gt=-90"`
	Lon float64 `json:"lon" validate:"required,lt=180,gt=-180"`
}

func (s *PointRequest) Bind(r *http.Request) error {
	if s.Lat == 0 && s.Lon == 0 {
		return errors.New("invalid request")
	}
	return nil
}

// NearestNodeResponse model info
//
//	@Description	response body for nearest node / distance-to-point queries
type NearestNodeResponse struct {
	NodeID int64   `json:"node_id"`
	Dist   float64 `json:"distance"`
}

// NearestNode
//
//	@Summary		nearest road network node to a coordinate
//	@Description	nearest road network node to a coordinate, ties broken by lowest node id
//	@Tags			navigations
//	@Param			body	body	PointRequest	true	"request body nearest node"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/navigations/nearest-node [post]
//	@Success		200	{object}	NearestNodeResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *RouterHandler) NearestNode(w http.ResponseWriter, r *http.Request) {
	data := &PointRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateStruct(w, r, data) {
		return
	}

	nodeID, dist, err := h.svc.NearestNode(r.Context(), data.Lat, data.Lon)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NearestNodeResponse{NodeID: nodeID, Dist: dist})
}

// DistanceToPoint
//
//	@Summary		geodesic distance from a coordinate to the road network
//	@Description	distance from a coordinate to the nearest point of the road network, without running a shortest path search
//	@Tags			navigations
//	@Param			body	body	PointRequest	true	"request body distance to point"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/navigations/distance-to-point [post]
//	@Success		200	{object}	NearestNodeResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *RouterHandler) DistanceToPoint(w http.ResponseWriter, r *http.Request) {
	data := &PointRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateStruct(w, r, data) {
		return
	}

	nodeID, dist, err := h.svc.DistanceToPoint(r.Context(), data.Lat, data.Lon)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NearestNodeResponse{NodeID: nodeID, Dist: dist})
}

func validateStruct(w http.ResponseWriter, r *http.Request, data interface{}) bool {
	validate := validator.New()
	if err := validate.Struct(data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return false
	}
	return true
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *server.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Code() {
		case server.ErrNotFound:
			render.Render(w, r, ErrNotFoundRend(svcErr))
			return
		case server.ErrConflict:
			render.Render(w, r, ErrUnprocessableEntity(svcErr))
			return
		case server.ErrInvalidArgument:
			render.Render(w, r, ErrInvalidRequest(svcErr))
			return
		}
	}
	render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
}

// ErrResponse model info
//
//	@Description	model for error response
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFoundRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrUnprocessableEntity(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 422,
		StatusText:     "Unprocessable entity.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}
