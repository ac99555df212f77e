package ui

import (
	stderrors "errors"
	"net/http"
	"path/filepath"

	"mcspec/adapters/export"
	"mcspec/adapters/tabular"
	"mcspec/app"
	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/domain/modelspec"
	"mcspec/internal/errors"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds dataset uploads.
const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleExamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": formula.Examples()})
}

// handleResolve runs one full derivation for a formula.
func (s *Server) handleResolve(c *gin.Context) {
	var req ResolveRequest
	if !s.bind(c, &req) {
		return
	}
	res, provider, err := s.resolve(c, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := s.respond(res, provider)
	if res.OK() && req.Save && s.deps.History != nil {
		snap, err := s.deps.History.Record(c.Request.Context(), res, core.DatasetID(req.DatasetID))
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp.HistoryID = snap.ID.String()
	}
	c.JSON(statusOf(res), resp)
}

// handleDesign resolves a factor-based design.
func (s *Server) handleDesign(c *gin.Context) {
	var req app.DesignRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.deps.Design.Resolve(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(statusOf(res), s.respond(res, nil))
}

// handleExport renders a resolved model as a script or report.
func (s *Server) handleExport(c *gin.Context) {
	var req ExportRequest
	if !s.bind(c, &req) {
		return
	}
	res, provider, err := s.resolve(c, req.ResolveRequest)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !res.OK() {
		c.JSON(statusOf(res), s.respond(res, provider))
		return
	}

	corr := make(modelspec.Correlations)
	if provider != nil {
		for k, v := range provider.Correlations(res.Spec.CorrelableVariables()) {
			corr[k] = v
		}
	}
	for key, r := range req.Correlations {
		a, b, ok := modelspec.SplitCorrKey(key)
		if !ok {
			s.writeError(c, errors.InvalidInput("correlation key "+key+" must be \"a,b\""))
			return
		}
		if err := corr.Set(a, b, r); err != nil {
			s.writeError(c, errors.WithCode(errors.CodeInvalidInput, err))
			return
		}
	}
	model := export.Model{
		Spec:         res.Spec,
		Effects:      modelspec.Effects(req.Effects),
		Correlations: corr,
		Clusters:     modelspec.ClusterConfig(req.Clusters),
	}

	switch req.Format {
	case "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(export.Markdown(model)))
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", export.HTML(model))
	default:
		settings := req.Settings
		if settings == (export.Settings{}) {
			settings = export.DefaultSettings()
		}
		script, err := export.Script(model, settings)
		if err != nil {
			s.writeError(c, errors.WithCode(errors.CodeClusterError, err))
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(script))
	}
}

// handleDatasetUpload profiles an uploaded CSV or Excel file and caches it.
func (s *Server) handleDatasetUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.writeError(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer f.Close()

	ds, err := s.deps.Reader.ReadFrom(c.Request.Context(), filepath.Base(fh.Filename), f)
	if err != nil {
		s.writeError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	if err := s.deps.Datasets.Save(c.Request.Context(), ds); err != nil {
		s.writeError(c, errors.Wrap(err, "failed to store dataset"))
		return
	}
	s.logger.Info("dataset %s uploaded: %d rows, %d columns", ds.ID, ds.Rows, len(ds.Columns))
	c.JSON(http.StatusCreated, gin.H{
		"dataset":        ds.Summarize(),
		"factor_columns": tabular.NewProvider(ds).FactorColumns(""),
	})
}

func (s *Server) handleDatasetGet(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	ds, err := s.deps.Datasets.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dataset":        ds.Summarize(),
		"factor_columns": tabular.NewProvider(ds).FactorColumns(c.Query("dependent")),
	})
}

func (s *Server) handleHistoryList(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusOK, gin.H{"history": []any{}})
		return
	}
	snaps, err := s.deps.History.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": snaps})
}

func (s *Server) handleHistoryGet(c *gin.Context) {
	if s.deps.History == nil {
		s.writeError(c, errors.NotFound("history"))
		return
	}
	snap, err := s.deps.History.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// resolve turns a request into assembler input and runs it. The returned
// error covers request problems only; pipeline failures live in the Resolution.
func (s *Server) resolve(c *gin.Context, req ResolveRequest) (app.Resolution, *tabular.Provider, error) {
	manual, refs, err := req.manual()
	if err != nil {
		return app.Resolution{}, nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	opts := s.deps.Options
	opts.ContinuousDependent = true
	if req.AssumeContinuous != nil {
		opts.AssumeContinuous = *req.AssumeContinuous
	}
	if len(refs) > 0 {
		merged := make(map[string]string, len(opts.ReferenceOverrides)+len(refs))
		for k, v := range opts.ReferenceOverrides {
			merged[k] = v
		}
		for k, v := range refs {
			merged[k] = v
		}
		opts.ReferenceOverrides = merged
	}

	in := app.Input{Formula: req.Formula, Manual: manual, Options: opts}
	var provider *tabular.Provider
	if req.DatasetID != "" {
		if s.deps.Datasets == nil {
			return app.Resolution{}, nil, errors.NotFound("dataset")
		}
		ds, err := s.deps.Datasets.GetByID(c.Request.Context(), core.DatasetID(req.DatasetID))
		if err != nil {
			return app.Resolution{}, nil, err
		}
		provider = tabular.NewProvider(ds)
		in.Data = provider
	}
	return s.deps.Assembler.Resolve(c.Request.Context(), in), provider, nil
}

// respond builds the response body for a resolution, with editor defaults
// for successful ones.
func (s *Server) respond(res app.Resolution, provider *tabular.Provider) ResolveResponse {
	resp := ResolveResponse{
		State:   string(res.State),
		Formula: res.Input,
		Summary: res.Summary(),
	}
	for _, w := range res.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	switch res.State {
	case app.StateReady:
		resp.Formula = res.Spec.Formula()
		resp.Spec = res.Spec
		resp.TermKinds = res.Spec.TermKinds()
		resp.Effects = modelspec.DefaultEffects(res.Spec, modelspec.EffectMedium)
		resp.Clusters = modelspec.ClusterConfig(nil).Carry(res.Spec)
		if provider != nil {
			resp.Correlations = provider.Correlations(res.Spec.CorrelableVariables())
		}
	case app.StateFailed:
		resp.Error = errorDTO(res.Err, res.Input)
	}
	return resp
}

// statusOf maps a resolution to its HTTP status.
func statusOf(res app.Resolution) int {
	if res.State != app.StateFailed {
		return http.StatusOK
	}
	return errors.HTTPStatus(errors.FromDomain(res.Err))
}

func errorDTO(err error, input string) *ErrorDTO {
	appErr := errors.FromDomain(err)
	dto := &ErrorDTO{
		Code:    errors.GetCode(appErr),
		Stage:   string(core.StageOf(err)),
		Message: core.Unstage(err).Error(),
	}
	var pe *core.ParseError
	if stderrors.As(err, &pe) {
		offset := pe.Offset
		dto.Fragment = pe.Fragment
		dto.Offset = &offset
		dto.Hint = pe.Hint(input)
	}
	return dto
}

// bind decodes and validates a JSON body, writing a 422 on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(c, errors.ValidationError(err.Error()))
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": ErrorDTO{
		Code:    errors.GetCode(appErr),
		Message: appErr.Error(),
	}})
}
