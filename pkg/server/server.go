// Package server exposes hide, extract and capacity over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Beastly713/steg/pkg/capacity"
	"github.com/Beastly713/steg/pkg/imageio"
	"github.com/Beastly713/steg/pkg/stego"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MaxUploadSize caps multipart request bodies.
const MaxUploadSize = 32 << 20

// Response is the JSON body of every non-binary reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CapacityResponse describes a carrier.
type CapacityResponse struct {
	Success         bool   `json:"success"`
	Format          string `json:"format"`
	Mode            string `json:"mode"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	CapacityBits    int    `json:"capacity_bits"`
	MaxPayloadBytes int    `json:"max_payload_bytes"`
}

// Handler serves the stego endpoints. Each request gets its own Engine, so
// requests never share buffers or touch the filesystem.
type Handler struct {
	log zerolog.Logger
}

func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log}
}

// NewRouter wires the API routes. An empty origins list allows any origin.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	config := cors.DefaultConfig()
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.ExposeHeaders = []string{"X-Stego-Mode", "X-Stego-Capacity", "X-Stego-PSNR", "Content-Disposition"}
	router.Use(cors.New(config))

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/hide", h.Hide)
		api.POST("/extract", h.Extract)
		api.POST("/capacity", h.Capacity)
	}
	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Message: "steg API is running"})
}

func (h *Handler) Hide(c *gin.Context) {
	carrierName, carrierData, err := formFile(c, "carrier")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}
	payloadName, payloadData, err := formFile(c, "payload")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}

	format, err := imageio.OutputFormat(carrierName)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}

	carrier, err := imageio.Decode(carrierData)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %w", stego.ErrFileAccess, err))
		return
	}

	engine := stego.New(stego.Options{Logger: h.log})
	embedded, err := engine.HideImage(carrier, stego.Payload{
		Data:      payloadData,
		Extension: stego.ExtensionOf(payloadName),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := imageio.Encode(&buf, embedded.Image, format); err != nil {
		h.fail(c, fmt.Errorf("%w: %w", stego.ErrWrite, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", format.FileName()))
	c.Header("X-Stego-Mode", embedded.Mode.String())
	c.Header("X-Stego-Capacity", fmt.Sprintf("%d", embedded.CapacityBits))
	c.Header("X-Stego-PSNR", fmt.Sprintf("%.2f", embedded.PSNR))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) Extract(c *gin.Context) {
	_, carrierData, err := formFile(c, "carrier")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}

	carrier, err := imageio.Decode(carrierData)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %w", stego.ErrFileAccess, err))
		return
	}

	engine := stego.New(stego.Options{Logger: h.log})
	payload, err := engine.ExtractImage(carrier)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", stego.HiddenFileName(payload.Extension)))
	c.Data(http.StatusOK, "application/octet-stream", payload.Data)
}

func (h *Handler) Capacity(c *gin.Context) {
	_, carrierData, err := formFile(c, "carrier")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}

	carrier, err := imageio.Decode(carrierData)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %w", stego.ErrFileAccess, err))
		return
	}

	capBits := capacity.Bits(carrier.Width(), carrier.Height(), carrier.Mode)
	c.JSON(http.StatusOK, CapacityResponse{
		Success:         true,
		Format:          carrier.Format,
		Mode:            carrier.Mode.String(),
		Width:           carrier.Width(),
		Height:          carrier.Height(),
		CapacityBits:    capBits,
		MaxPayloadBytes: capacity.MaxPayload(capBits, 3),
	})
}

// fail maps an error kind onto an HTTP status.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, stego.ErrFileAccess):
		status = http.StatusBadRequest
	case errors.Is(err, stego.ErrCapacityExceeded):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, stego.ErrUnsupportedMode),
		errors.Is(err, stego.ErrDecode),
		errors.Is(err, stego.ErrFrameNotFound),
		errors.Is(err, stego.ErrUnknownExtension):
		status = http.StatusUnprocessableEntity
	}
	h.log.Warn().Err(err).Int("status", status).Msg("request failed")
	c.JSON(status, Response{Message: err.Error()})
}

func formFile(c *gin.Context, field string) (string, []byte, error) {
	if c.Request.MultipartForm == nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	}

	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s file is required", field)
	}
	data, err := readHeader(header)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}
	return header.Filename, data, nil
}

func readHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
