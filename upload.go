package transfer

import (
	"context"
	"io"
	"path/filepath"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/transfertypes"
)

// Upload transfers the payload and blocks until it finishes. It is
// equivalent to Start followed by Wait; use Start directly when the caller
// needs the Session handle for cooperative abort.
func (c *Client) Upload(
	ctx context.Context,
	name string,
	payload io.Reader,
	size int64,
	opts ...transfertypes.UploadOption,
) (*transfertypes.UploadResult, error) {
	sess, err := c.Start(ctx, name, payload, size, opts...)
	if err != nil {
		return nil, err
	}
	// Cancelling ctx aborts the session, which terminates promptly and
	// surfaces the aborted error; waiting on ctx here would race that and
	// return a bare context error instead.
	return sess.Wait(context.Background())
}

// UploadFile transfers a file from the client's filesystem, deriving the
// display name from the path's base element and the size from the file's
// metadata.
func (c *Client) UploadFile(
	ctx context.Context,
	path string,
	opts ...transfertypes.UploadOption,
) (*transfertypes.UploadResult, error) {
	file, err := c.fs.Open(path)
	if err != nil {
		return nil, xferrors.NewError("openFile", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, xferrors.NewError("statFile", err)
	}
	if info.IsDir() {
		return nil, xferrors.NewError("openFile", xferrors.ErrValidation).
			WithMessage("path is a directory")
	}

	return c.Upload(ctx, filepath.Base(path), file, info.Size(), opts...)
}
