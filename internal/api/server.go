package api

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"image-verify/internal/imagecmp"
	"image-verify/internal/logging"
	"image-verify/internal/model"
	"image-verify/internal/verify"
)

const (
	formField = "file"
	// multipartSlack covers boundaries and headers around the file part.
	multipartSlack = 1 << 20

	msgNoMatch = "Image does not match the reference"
)

type Server struct {
	verifier *verify.Verifier
	log      *logging.Logger
}

// NewRouter wires the upload endpoint, the upload page and the health check.
func NewRouter(v *verify.Verifier, log *logging.Logger) *gin.Engine {
	s := &Server{verifier: v, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.MaxMultipartMemory = v.Config().MaxFileSize + multipartSlack

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)
	r.POST("/api/verify", s.handleVerify)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infof("http: %s %s -> %d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func (s *Server) handleHealth(c *gin.Context) {
	ref := s.verifier.Reference()
	if _, err := ref.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.HealthResponse{Status: "degraded", Reference: ref.Location(), Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.HealthResponse{Status: "ok", Reference: ref.Location()})
}

func (s *Server) handleVerify(c *gin.Context) {
	start := time.Now()
	cfg := s.verifier.Config()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxFileSize+multipartSlack)
	fh, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = verify.Validate(verify.Upload{Size: cfg.MaxFileSize + 1}, cfg)
		} else {
			err = &verify.ValidationError{Reason: "No file provided"}
		}
		s.fail(c, start, err)
		return
	}

	upload := verify.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	// reject on the declared metadata before reading anything
	if err := verify.Validate(upload, cfg); err != nil {
		s.fail(c, start, err)
		return
	}
	if upload.Data, err = readPart(fh, cfg.MaxFileSize); err != nil {
		s.fail(c, start, err)
		return
	}

	out, err := s.verifier.Verify(c.Request.Context(), upload)
	if err != nil {
		s.fail(c, start, err)
		return
	}
	c.JSON(http.StatusOK, buildResponse(out, time.Since(start)))
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

func buildResponse(out *verify.Verification, elapsed time.Duration) model.VerifyResponse {
	res := out.Result
	resp := model.VerifyResponse{
		Success:    res.Match,
		Hash:       out.ContentHash,
		Similarity: verify.FormatPercent(res.OverallSimilarity),
		Details: &model.VerifyDetails{
			PixelSimilarity:      round2(res.PixelSimilarity),
			PerceptualSimilarity: round2(res.PerceptualSimilarity),
			StructuralSimilarity: round2(res.StructuralSimilarity),
			ProcessingTimeMs:     elapsed.Milliseconds(),
		},
	}
	if !res.Match {
		threshold := out.Threshold
		resp.Error = msgNoMatch
		resp.Details.Threshold = &threshold
	}
	return resp
}

func (s *Server) fail(c *gin.Context, start time.Time, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf("verify: %v", err)
	} else {
		s.log.Infof("verify: rejected: %v", err)
	}
	ms := time.Since(start).Milliseconds()
	c.JSON(status, model.VerifyResponse{Success: false, Error: msg, ProcessingTimeMs: &ms})
}

// classify maps the error taxonomy onto HTTP status codes and client messages.
func classify(err error) (int, string) {
	var (
		ve *verify.ValidationError
		rm *verify.ReferenceMissingError
		de *imagecmp.DecodeError
		ce *imagecmp.ComparisonError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Reason
	case errors.As(err, &rm):
		return http.StatusInternalServerError, "Reference image not found on server"
	case errors.As(err, &de):
		if de.Source == "reference" {
			return http.StatusInternalServerError, "Reference image could not be decoded"
		}
		return http.StatusInternalServerError, "Failed to decode uploaded image"
	case errors.As(err, &ce):
		return http.StatusInternalServerError, "Failed to compare images"
	}
	return http.StatusInternalServerError, "Verification failed"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
