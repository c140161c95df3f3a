package main

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxHistogramBins = 200
	maxChartSide     = 4000
	svgContentType   = "image/svg+xml"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// statsResponse is Stats with non-finite values encoded as null.
type statsResponse struct {
	TestRunID int64     `json:"test_run_id"`
	Count     int       `json:"count"`
	Min       *float64  `json:"min"`
	Max       *float64  `json:"max"`
	Mean      *float64  `json:"mean"`
	Median    *float64  `json:"median"`
	Q1        *float64  `json:"q1"`
	Q3        *float64  `json:"q3"`
	IQR       *float64  `json:"iqr"`
	StdDev    *float64  `json:"std"`
	Outliers  []float64 `json:"outliers"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// chartServer serves statistics and charts for stored test runs.
type chartServer struct {
	samples sampleSource
	chart   ChartConfig
}

func newHTTPApp(samples sampleSource, cfg ChartConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chartstats",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s := &chartServer{samples: samples, chart: cfg}

	app.Use(recover.New())
	app.Use(requestLogger)

	app.Get("/health", s.health)
	runs := app.Group("/test_runs/:id")
	runs.Get("/stats", s.stats)
	runs.Get("/boxplot.svg", s.boxPlot)
	runs.Get("/histogram.svg", s.histogram)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
	return app
}

// errorHandler maps domain errors onto HTTP statuses.
func errorHandler(c *fiber.Ctx, err error) error {
	code, label, message := fiber.StatusInternalServerError, "INTERNAL", "internal server error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, message = fe.Code, fe.Message
		label = "ERROR"
		switch fe.Code {
		case fiber.StatusBadRequest:
			label = "BAD_REQUEST"
		case fiber.StatusNotFound:
			label = "NOT_FOUND"
		}
	case errors.Is(err, ErrTestRunNotFound):
		code, label, message = fiber.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, ErrNoSamples):
		code, label, message = fiber.StatusUnprocessableEntity, "NO_SAMPLES", err.Error()
	case errors.Is(err, errNonFinite):
		code, label, message = fiber.StatusUnprocessableEntity, "NON_FINITE", err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
	}
	return c.Status(code).JSON(errorResponse{Error: errorDetail{
		Code:    label,
		Message: message,
		Path:    c.Path(),
	}})
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("X-Request-ID", requestID)

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("request")
	return nil
}

func (s *chartServer) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func testRunID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid test run id %q", c.Params("id")))
	}
	return id, nil
}

// load resolves the samples of the run named in the path and their statistics.
func (s *chartServer) load(c *fiber.Ctx) (int64, []float64, Stats, error) {
	id, err := testRunID(c)
	if err != nil {
		return 0, nil, Stats{}, err
	}
	values, err := s.samples.Samples(c.UserContext(), id)
	if err != nil {
		return id, nil, Stats{}, err
	}
	st, err := calculateStatistics(values)
	if err != nil {
		return id, nil, Stats{}, fmt.Errorf("test run %d: %w", id, err)
	}
	return id, values, st, nil
}

// queryInt reads an optional integer query parameter. Absent values yield def;
// malformed or out of range values are rejected.
func queryInt(c *fiber.Ctx, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s must be an integer between %d and %d, got %q", key, lo, hi, raw))
	}
	return v, nil
}

// sized applies the optional width and height query parameters.
func (s *chartServer) sized(c *fiber.Ctx) (ChartConfig, error) {
	w, err := queryInt(c, "width", 0, 1, maxChartSide)
	if err != nil {
		return ChartConfig{}, err
	}
	h, err := queryInt(c, "height", 0, 1, maxChartSide)
	if err != nil {
		return ChartConfig{}, err
	}
	cfg := s.chart.WithDimensions(w, h)
	if dims := cfg.Dimensions(0, 0, nil); dims.InnerWidth <= 0 || dims.InnerHeight <= 0 {
		return ChartConfig{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%dx%d leaves no room inside the margins", dims.Width, dims.Height))
	}
	return cfg, nil
}

func (s *chartServer) stats(c *fiber.Ctx) error {
	id, values, st, err := s.load(c)
	if err != nil {
		return err
	}
	return c.JSON(statsResponse{
		TestRunID: id,
		Count:     len(values),
		Min:       finite(st.Min),
		Max:       finite(st.Max),
		Mean:      finite(st.Mean),
		Median:    finite(st.Median),
		Q1:        finite(st.Q1),
		Q3:        finite(st.Q3),
		IQR:       finite(st.IQR),
		StdDev:    finite(st.StdDev),
		Outliers:  st.Outliers,
	})
}

func (s *chartServer) boxPlot(c *fiber.Ctx) error {
	cfg, err := s.sized(c)
	if err != nil {
		return err
	}
	id, values, st, err := s.load(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	label := fmt.Sprintf("test run %d", id)
	if err := renderBoxPlot(&buf, values, st, cfg, AxisOptions{Label: "value", Format: FormatNumber}, label); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, svgContentType)
	return c.Send(buf.Bytes())
}

func (s *chartServer) histogram(c *fiber.Ctx) error {
	cfg, err := s.sized(c)
	if err != nil {
		return err
	}
	bins, err := queryInt(c, "bins", cfg.HistogramBins, 1, maxHistogramBins)
	if err != nil {
		return err
	}
	id, err := testRunID(c)
	if err != nil {
		return err
	}
	values, err := s.samples.Samples(c.UserContext(), id)
	if err != nil {
		return err
	}
	hist, err := buildHistogram(values, bins)
	if err != nil {
		return fmt.Errorf("test run %d: %w", id, err)
	}

	var buf bytes.Buffer
	x := AxisOptions{Format: FormatNumber, Rotate: -45}
	y := AxisOptions{Label: "count", Format: FormatInteger}
	if err := renderHistogram(&buf, hist, cfg, x, y); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, svgContentType)
	return c.Send(buf.Bytes())
}
