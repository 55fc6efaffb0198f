package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/descimarket/market"
)

// mapErr translates the market's stable error kinds into gRPC status codes.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch market.KindOf(err) {
	case market.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case market.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case market.KindUnauthorized:
		return status.Error(codes.PermissionDenied, err.Error())
	case market.KindInvalidState:
		return status.Error(codes.FailedPrecondition, err.Error())
	case market.KindPaymentMismatch:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
