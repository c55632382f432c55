package api

import (
	"github.com/ssargent/bl4serial/pkg/savefile"
	"github.com/ssargent/bl4serial/pkg/serial"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DecodeRequest is the body of POST /serials/decode
type DecodeRequest struct {
	Serial string `json:"serial"`
}

// BatchDecodeRequest is the body of POST /serials/decode-batch
type BatchDecodeRequest struct {
	Serials []string `json:"serials"`
}

// BatchDecodeResponse holds decoded items in request order
type BatchDecodeResponse struct {
	Items []*serial.Item `json:"items"`
	Count int            `json:"count"`
}

// EncodeRequest is the body of POST /serials/encode. Item is normally a
// decoded item with edited stats.
type EncodeRequest struct {
	Item *serial.Item `json:"item"`
}

// SaveItemsResponse lists the decoded slots of an uploaded save document
type SaveItemsResponse struct {
	Slots []savefile.DecodedSlot `json:"slots"`
	Count int                    `json:"count"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind         string
	Port         int
	APIKey       string
	MaxBatch     int // upper bound on serials per batch request
	BatchWorkers int
}

// ItemCodec defines the codec operations the API exposes
type ItemCodec interface {
	savefile.Decoder
	Encode(item *serial.Item) (*serial.EncodeResult, error)
}
