package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/logging"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.version}
	if reg := s.svc.Engine().Registry(); reg != nil {
		resp.Components = reg.Len()
	}
	if s.tel != nil {
		h := s.tel.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCompress(c echo.Context) error {
	var req CompressRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	opts, err := s.options(c, req)
	if err != nil {
		return err
	}

	res, err := s.svc.Compress(c.Request().Context(), req.Content, opts)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleCompressBatch(c echo.Context) error {
	var req BatchRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if len(req.Contents) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "contents field is required")
	}
	opts, err := s.options(c, req.CompressRequest)
	if err != nil {
		return err
	}

	results, err := s.svc.CompressBatch(c.Request().Context(), req.Contents, opts)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) handleDecompress(c echo.Context) error {
	var req DecompressRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	out, err := s.svc.Decompress(c.Request().Context(), req.Content, req.Format)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, DecompressResponse{Content: out})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.svc.Analyze(c.Request().Context(), req.Content)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleValidate(c echo.Context) error {
	var req ValidateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	decompressed := req.Decompressed
	if decompressed == "" {
		out, err := s.svc.Decompress(ctx, req.Compressed, false)
		if err != nil {
			return s.serviceError(c, err)
		}
		decompressed = out
	}

	res := s.svc.Validate(ctx, req.Original, req.Compressed, decompressed)
	return c.JSON(http.StatusOK, ValidateResponse{Result: res, Decompressed: decompressed})
}

func (s *Server) handleStrategies(c echo.Context) error {
	store := s.svc.Store()
	resp := StrategiesResponse{}
	for _, cfg := range strategy.Configs() {
		m, _ := store.Snapshot(cfg.ID)
		resp.Strategies = append(resp.Strategies, StrategyInfo{
			ID:            cfg.ID,
			Name:          cfg.Name,
			Description:   cfg.Description,
			MinSize:       cfg.MinSize,
			MaxSize:       cfg.MaxSize,
			ExpectedRatio: cfg.ExpectedRatio,
			Metrics:       m,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleComponents(c echo.Context) error {
	resp := ComponentsResponse{Components: []*registry.Component{}}
	if reg := s.svc.Engine().Registry(); reg != nil {
		if category := c.QueryParam("category"); category != "" {
			resp.Components = reg.SearchByCategory(category)
		} else {
			resp.Components = reg.List()
		}
		resp.Stats = reg.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleComponent(c echo.Context) error {
	reg := s.svc.Engine().Registry()
	if reg == nil {
		return echo.NewHTTPError(http.StatusNotFound, "component registry is disabled")
	}
	comp, err := reg.Get(c.Param("id"))
	if errors.Is(err, registry.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comp)
}

func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid request body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// options merges request flags over the server defaults. The echo request
// id becomes the compression request id.
func (s *Server) options(c echo.Context, req CompressRequest) (compression.Options, error) {
	opts := s.defaults
	opts.Strategy = req.Strategy
	opts.Format = req.Format
	opts.PreferSpeed = opts.PreferSpeed || req.PreferSpeed
	opts.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	if req.Selection != "" {
		sel, err := compression.ParseSelection(req.Selection)
		if err != nil {
			return opts, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		opts.Selection = sel
	}
	if req.Analyze != nil {
		opts.Analyze = *req.Analyze
	}
	if req.Validate != nil {
		opts.Validate = *req.Validate
	}
	if req.RecordMetrics != nil {
		opts.RecordMetrics = *req.RecordMetrics
	}
	return opts, nil
}

func (s *Server) serviceError(c echo.Context, err error) error {
	ctx := logging.WithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
	switch {
	case errors.Is(err, compression.ErrInputTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case c.Request().Context().Err() != nil:
		s.logger.Debug(ctx, "request canceled", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled")
	default:
		s.logger.Error(ctx, "compression request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
