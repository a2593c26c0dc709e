package errors

import (
	"errors"

	"cardpulse/internal/fx"
	"cardpulse/internal/listing"
	"cardpulse/internal/optimizer"
)

// FromDomain maps domain sentinel errors onto the API taxonomy. Anything
// unrecognized becomes an internal server error with the message attached.
func FromDomain(err error) *APIError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, optimizer.ErrTableTooLarge):
		return NewWithDetails(ErrOptimizerTooLarge.StatusCode, ErrOptimizerTooLarge.ErrorCode, ErrOptimizerTooLarge.Message, err.Error())
	case errors.Is(err, listing.ErrUpstreamFetch):
		return NewWithDetails(ErrUpstreamFetch.StatusCode, ErrUpstreamFetch.ErrorCode, ErrUpstreamFetch.Message, err.Error())
	case errors.Is(err, fx.ErrAnchorRate):
		return NewWithDetails(ErrFXAnchor.StatusCode, ErrFXAnchor.ErrorCode, ErrFXAnchor.Message, err.Error())
	default:
		return NewWithDetails(ErrInternalServer.StatusCode, ErrInternalServer.ErrorCode, ErrInternalServer.Message, err.Error())
	}
}
