package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/twpayne/go-polyline"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/server"
	"lintang/trafficspeed/pkg/server/rest/service"
	"lintang/trafficspeed/pkg/storage"
	"lintang/trafficspeed/pkg/util"
)

type SpeedService interface {
	PredictedSpeeds(ctx context.Context, target time.Time, intervalMinutes int) (*datastructure.PredictionMap, error)
	SegmentSpeed(ctx context.Context, segmentID int64, target time.Time, intervalMinutes int) (service.SegmentSpeed, error)
	NearbySpeeds(ctx context.Context, lat, lon, radiusKm float64, target time.Time, intervalMinutes int) ([]service.NearbySegment, error)
	SegmentGeometry(ctx context.Context, segmentID int64) ([]datastructure.Coordinate, error)
}

type SpeedHandler struct {
	svc             SpeedService
	promeMetrics    *metrics
	defaultInterval int
	now             func() time.Time
}

func SpeedRouter(r *chi.Mux, svc SpeedService, m *metrics, defaultInterval int) {
	handler := &SpeedHandler{svc: svc, promeMetrics: m, defaultInterval: defaultInterval, now: time.Now}

	r.Group(func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Get("/speeds", handler.predictedSpeeds)
			r.Get("/speeds/nearby", handler.nearbySpeeds)
			r.Get("/speeds/segments/{id}", handler.segmentSpeed)
			r.Get("/segments/{id}/geometry", handler.segmentGeometry)
		})
	})
}

// SpeedQuery query param waktu prediksi. Timestamp unix detik, 0 = sekarang.
type SpeedQuery struct {
	Timestamp int64 `validate:"gte=0"`
	Interval  int   `validate:"gt=0,lte=1440"`
}

type NearbyQuery struct {
	SpeedQuery
	Lat      float64 `validate:"required,lt=90,gt=-90"`
	Lon      float64 `validate:"required,lt=180,gt=-180"`
	RadiusKm float64 `validate:"gt=0,lte=10"`
}

func (h *SpeedHandler) parseSpeedQuery(r *http.Request) (SpeedQuery, error) {
	q := SpeedQuery{Interval: h.defaultInterval}
	if ts := r.URL.Query().Get("timestamp"); ts != "" {
		v, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			t, errT := time.Parse(time.RFC3339, ts)
			if errT != nil {
				return q, fmt.Errorf("timestamp %q is neither unix seconds nor RFC3339", ts)
			}
			v = t.Unix()
		}
		q.Timestamp = v
	}
	if iv := r.URL.Query().Get("interval"); iv != "" {
		v, err := strconv.Atoi(iv)
		if err != nil {
			return q, fmt.Errorf("interval %q is not a number", iv)
		}
		q.Interval = v
	}
	return q, nil
}

func (h *SpeedHandler) target(q SpeedQuery) time.Time {
	if q.Timestamp == 0 {
		return h.now()
	}
	return time.Unix(q.Timestamp, 0)
}

func parseFloatParam(r *http.Request, key string, def float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", key, s)
	}
	return v, nil
}

func segmentIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.New("segment id must be an integer")
	}
	return id, nil
}

// validateRequest render 400 berisi pesan validasi yang sudah ditranslate. false kalau request tidak valid.
func validateRequest(w http.ResponseWriter, r *http.Request, data interface{}) bool {
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

// predictedSpeeds
//
//	@Summary		prediksi kecepatan semua segment untuk time bin yang memuat timestamp.
//	@Router			/speeds [get]
//	@Success		200	{object}	storage.PredictionDocument
func (h *SpeedHandler) predictedSpeeds(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSpeedQuery(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, q) {
		return
	}

	h.promeMetrics.SpeedQueryCount.WithLabelValues("speeds").Inc()
	p, err := h.svc.PredictedSpeeds(r.Context(), h.target(q), q.Interval)
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, storage.NewPredictionDocument(p))
}

type SegmentSpeedResponse struct {
	SegmentID        int64   `json:"segment_id"`
	TimeSlotInterval int     `json:"time_slot_interval"`
	IntervalIdx      int     `json:"interval_idx"`
	PredictTimeRange string  `json:"predict_time_range"`
	Speed            float64 `json:"speed"`
	SpeedRatio       float64 `json:"speed_ratio"`
}

func NewSegmentSpeedResponse(s service.SegmentSpeed) *SegmentSpeedResponse {
	return &SegmentSpeedResponse{
		SegmentID:        s.SegmentID,
		TimeSlotInterval: s.IntervalMinutes,
		IntervalIdx:      s.Bin,
		PredictTimeRange: util.TimeRangeLabel(s.Bin, s.IntervalMinutes),
		Speed:            util.RoundFloat(s.Speed, 2),
		SpeedRatio:       util.RoundFloat(s.SpeedRatio, 2),
	}
}

// segmentSpeed
//
//	@Summary		prediksi kecepatan satu segment.
//	@Router			/speeds/segments/{id} [get]
//	@Success		200	{object}	SegmentSpeedResponse
//	@Failure		404	{object}	ErrResponse
func (h *SpeedHandler) segmentSpeed(w http.ResponseWriter, r *http.Request) {
	id, err := segmentIDParam(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	q, err := h.parseSpeedQuery(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, q) {
		return
	}

	h.promeMetrics.SpeedQueryCount.WithLabelValues("segment").Inc()
	s, err := h.svc.SegmentSpeed(r.Context(), id, h.target(q), q.Interval)
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewSegmentSpeedResponse(s))
}

type NearbySegmentResponse struct {
	SegmentID  int64   `json:"segment_id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
	Speed      float64 `json:"speed"`
	SpeedRatio float64 `json:"speed_ratio"`
}

type NearbyResponse struct {
	Segments []NearbySegmentResponse `json:"segments"`
}

func NewNearbyResponse(segs []service.NearbySegment) *NearbyResponse {
	out := make([]NearbySegmentResponse, 0, len(segs))
	for _, s := range segs {
		out = append(out, NearbySegmentResponse{
			SegmentID:  s.SegmentID,
			Lat:        s.Center.Lat,
			Lon:        s.Center.Lon,
			DistanceKm: util.RoundFloat(s.DistanceKm, 3),
			Speed:      util.RoundFloat(s.Speed, 2),
			SpeedRatio: util.RoundFloat(s.SpeedRatio, 2),
		})
	}
	return &NearbyResponse{Segments: out}
}

// nearbySpeeds
//
//	@Summary		prediksi kecepatan segment di sekitar titik.
//	@Router			/speeds/nearby [get]
//	@Success		200	{object}	NearbyResponse
//	@Failure		400	{object}	ErrResponse
func (h *SpeedHandler) nearbySpeeds(w http.ResponseWriter, r *http.Request) {
	sq, err := h.parseSpeedQuery(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	q := NearbyQuery{SpeedQuery: sq}
	if q.Lat, err = parseFloatParam(r, "lat", 0); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if q.Lon, err = parseFloatParam(r, "lon", 0); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if q.RadiusKm, err = parseFloatParam(r, "radius_km", 0.5); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, q) {
		return
	}

	h.promeMetrics.SpeedQueryCount.WithLabelValues("nearby").Inc()
	segs, err := h.svc.NearbySpeeds(r.Context(), q.Lat, q.Lon, q.RadiusKm, h.target(q.SpeedQuery), q.Interval)
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewNearbyResponse(segs))
}

type GeometryResponse struct {
	SegmentID   int64                      `json:"segment_id"`
	Polyline    string                     `json:"polyline"`
	Coordinates []datastructure.Coordinate `json:"coordinates"`
}

func NewGeometryResponse(id int64, coords []datastructure.Coordinate) *GeometryResponse {
	pts := make([][]float64, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, []float64{c.Lat, c.Lon})
	}
	return &GeometryResponse{
		SegmentID:   id,
		Polyline:    string(polyline.EncodeCoords(pts)),
		Coordinates: coords,
	}
}

// segmentGeometry
//
//	@Summary		polyline (google encoded) satu segment.
//	@Router			/segments/{id}/geometry [get]
//	@Success		200	{object}	GeometryResponse
//	@Failure		404	{object}	ErrResponse
func (h *SpeedHandler) segmentGeometry(w http.ResponseWriter, r *http.Request) {
	id, err := segmentIDParam(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	coords, err := h.svc.SegmentGeometry(r.Context(), id)
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewGeometryResponse(id, coords))
}

// ErrResponse model info
//
//	@Description	model untuk error response
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

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrChi(err error) render.Renderer {
	statusText := ""
	switch getStatusCode(err) {
	case http.StatusNotFound:
		statusText = "Resource not found."
	case http.StatusInternalServerError:
		statusText = "Internal server error."
	case http.StatusConflict:
		statusText = "Resource conflict."
	case http.StatusBadRequest:
		statusText = "Bad request."
	default:
		statusText = "Error."
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: getStatusCode(err),
		StatusText:     statusText,
		ErrorText:      err.Error(),
	}
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ierr *server.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch ierr.Code() {
	case server.ErrNotFound:
		return http.StatusNotFound
	case server.ErrConflict:
		return http.StatusConflict
	case server.ErrBadParamInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}
