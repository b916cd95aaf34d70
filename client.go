package transfer

import (
	"net/http"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/rs/zerolog"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/clock"
	"github.com/meridianworks/transfer/internal/multipart"
	"github.com/meridianworks/transfer/internal/plan"
	"github.com/meridianworks/transfer/rpc"
	"github.com/meridianworks/transfer/transfertypes"
)

// Default entity types and location for the preflight and completion records.
const (
	DefaultComponentEntityType = "FileComponent"
	DefaultLocationEntityType  = "ComponentLocation"
	DefaultLocationID          = "server-location"
)

// Client runs upload pipelines against a batched RPC platform API. It is
// safe for concurrent use; every Start call runs an independent session.
type Client struct {
	caller     rpc.Caller
	cfg        transfertypes.ClientConfig
	httpClient *http.Client
	fs         fs.Filesystem
	log        zerolog.Logger
}

// New creates a transfer client backed by the given RPC caller.
//
// Example:
//
//	caller := rpc.NewBatchClient("https://platform.example.com/api")
//	client, err := transfer.New(caller,
//	    transfer.WithConcurrency(4),
//	    transfer.WithLogger(log),
//	)
func New(caller rpc.Caller, opts ...transfertypes.Option) (*Client, error) {
	if caller == nil {
		return nil, xferrors.NewError("newClient", xferrors.ErrValidation).
			WithMessage("rpc caller is required")
	}

	cfg := transfertypes.ClientConfig{
		Concurrency:         multipart.DefaultCeiling,
		ChunkPolicy:         plan.DefaultChunkPolicy,
		Logger:              zerolog.Nop(),
		Clock:               clock.Real{},
		Connectivity:        alwaysOnline{},
		Publisher:           transfertypes.NopPublisher{},
		ComponentEntityType: DefaultComponentEntityType,
		LocationEntityType:  DefaultLocationEntityType,
		LocationID:          DefaultLocationID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Concurrency < 1 {
		return nil, xferrors.NewError("newClient", xferrors.ErrValidation).
			WithMessage("concurrency must be at least 1")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = billy.NewOSFS("/")
	}

	return &Client{
		caller:     caller,
		cfg:        cfg,
		httpClient: httpClient,
		fs:         filesystem,
		log:        cfg.Logger,
	}, nil
}

// alwaysOnline is the default connectivity probe when none is configured.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }
