package responses

import "jan-server/services/media-storage/internal/utils/platformerrors"

// ErrorResponse documents the error envelope written by platformerrors.WriteError.
type ErrorResponse = platformerrors.HTTPErrorResponse
