package media

import (
	"context"

	"jan-server/services/media-storage/internal/utils/platformerrors"
)

func notFound(ctx context.Context, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, message, nil, code)
}

func unauthorized(ctx context.Context, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, message, nil, code)
}

func validationError(ctx context.Context, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, code)
}

func conflict(ctx context.Context, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, message, nil, code)
}

func isNotFound(err error) bool {
	return platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound)
}
