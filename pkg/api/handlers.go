package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ssargent/bl4serial/pkg/savefile"
	"github.com/ssargent/bl4serial/pkg/serial"
)

// maxSaveBytes bounds an uploaded save document
const maxSaveBytes = 32 << 20

// Server holds the API server state
type Server struct {
	codec   ItemCodec
	config  ServerConfig
	metrics *Metrics
	log     *slog.Logger
}

// NewServer creates a new API server
func NewServer(codec ItemCodec, config ServerConfig, metrics *Metrics, log *slog.Logger) *Server {
	if config.MaxBatch < 1 {
		config.MaxBatch = 1
	}
	if config.BatchWorkers < 1 {
		config.BatchWorkers = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		codec:   codec,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecode godoc
//
//	@Summary		Decode a serial
//	@Description	Decode one item serial. Undecodable input yields an item with item_type "error".
//	@Tags			serials
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DecodeRequest	true	"Serial"
//	@Success		200		{object}	serial.Item
//	@Failure		400		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/serials/decode [post]
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	req.Serial = strings.TrimSpace(req.Serial)
	if req.Serial == "" {
		sendError(w, "Serial is required", http.StatusBadRequest)
		return
	}

	item := s.codec.Decode(req.Serial)
	s.metrics.RecordDecode(item)
	sendSuccess(w, item)
}

// handleDecodeBatch godoc
//
//	@Summary		Decode serials in bulk
//	@Description	Decode up to codec.max_batch serials. Items keep request order.
//	@Tags			serials
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchDecodeRequest	true	"Serials"
//	@Success		200		{object}	BatchDecodeResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/serials/decode-batch [post]
func (s *Server) handleDecodeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchDecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if len(req.Serials) == 0 {
		sendError(w, "At least one serial is required", http.StatusBadRequest)
		return
	}
	if len(req.Serials) > s.config.MaxBatch {
		sendError(w, fmt.Sprintf("Batch of %d serials exceeds limit of %d", len(req.Serials), s.config.MaxBatch),
			http.StatusRequestEntityTooLarge)
		return
	}
	s.metrics.RecordBatch("serials", len(req.Serials))

	items := make([]*serial.Item, len(req.Serials))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.config.BatchWorkers)
	for i, sn := range req.Serials {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items[i] = s.codec.Decode(strings.TrimSpace(sn))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("batch decode aborted", "error", err, "size", len(req.Serials))
		sendError(w, "Batch decode cancelled", http.StatusServiceUnavailable)
		return
	}

	for _, item := range items {
		s.metrics.RecordDecode(item)
	}
	sendSuccess(w, BatchDecodeResponse{Items: items, Count: len(items)})
}

// handleEncode godoc
//
//	@Summary		Encode an edited item
//	@Description	Write edited stats back into the item's serial. Failures other than pool violations fall back to the original serial.
//	@Tags			serials
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EncodeRequest	true	"Edited item"
//	@Success		200		{object}	serial.EncodeResult
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/serials/encode [post]
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.Item == nil || req.Item.Serial == "" {
		sendError(w, "Item with a serial is required", http.StatusBadRequest)
		return
	}

	res, err := s.codec.Encode(req.Item)
	s.metrics.RecordEncode(res)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, serial.ErrPoolNibbleMismatch) || errors.Is(err, serial.ErrInvalidNibble) {
			status = http.StatusUnprocessableEntity
		}
		sendError(w, err.Error(), status)
		return
	}
	sendSuccess(w, res)
}

// handleSaveItems godoc
//
//	@Summary		List the items of a save document
//	@Description	Decode every item slot of a decrypted YAML save document
//	@Tags			saves
//	@Accept			plain
//	@Produce		json
//	@Param			body	body		string	true	"Decrypted save YAML"
//	@Success		200		{object}	SaveItemsResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/saves/items [post]
func (s *Server) handleSaveItems(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSaveBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Save document too large", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	doc, err := savefile.Load(body)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots := doc.Slots()
	s.metrics.RecordBatch("save", len(slots))
	decoded, err := savefile.DecodeSlots(r.Context(), s.codec, slots, s.config.BatchWorkers)
	if err != nil {
		s.log.Warn("save decode aborted", "error", err, "slots", len(slots))
		sendError(w, "Save decode cancelled", http.StatusServiceUnavailable)
		return
	}

	for _, d := range decoded {
		s.metrics.RecordDecode(d.Item)
	}
	sendSuccess(w, SaveItemsResponse{Slots: decoded, Count: len(decoded)})
}
