package rpc

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/descimarket/envelope"
	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/market"
)

// Server is the gateway in front of the market core. It plays the ledger
// authority's part: verify the envelope signature, commit the declared
// payment into custody, dispatch, and roll the payment back when the core
// rejects — so the caller observes an all-or-nothing request.
type Server struct {
	UnimplementedMarketServer

	Market     *market.Market
	Settlement market.Settlement
	Logger     zerolog.Logger

	// mu serializes requests; the core relies on the surrounding authority
	// for this and does no locking of its own.
	mu sync.Mutex
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Market == nil || s.Settlement == nil {
		return nil, status.Error(codes.FailedPrecondition, "gateway not configured")
	}

	env, err := envelope.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := env.Verify(); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	sender, err := env.SenderAddress()
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req := market.Request{Method: env.Method, Args: env.Args, Sender: sender}

	// Commit the declared payment into custody first, in the same serialized
	// unit as the dispatch.
	var paid uint64
	if env.Payment != nil {
		receiver, derr := identity.Decode(env.Payment.Receiver)
		if derr != nil || receiver != s.Market.Custody() {
			return nil, status.Error(codes.FailedPrecondition, "payment receiver is not the custody account")
		}
		if terr := s.Settlement.Transfer(sender, receiver, env.Payment.Amount); terr != nil {
			return nil, status.Error(codes.FailedPrecondition, terr.Error())
		}
		paid = env.Payment.Amount
		req.Payment = &market.Payment{Amount: env.Payment.Amount, Receiver: receiver}
	}

	events, err := s.Market.Submit(req)
	if err != nil {
		// Zero-effect failure: return the attempted payment to the sender.
		if paid > 0 {
			if rerr := s.Settlement.Transfer(s.Market.Custody(), sender, paid); rerr != nil {
				s.Logger.Error().Err(rerr).Str("method", env.Method).Msg("payment rollback failed")
				return nil, status.Error(codes.Internal, "payment rollback failed")
			}
		}
		s.Logger.Debug().Err(err).Str("method", env.Method).Stringer("sender", sender).Msg("request rejected")
		return nil, mapErr(err)
	}

	s.Logger.Info().Str("method", env.Method).Stringer("sender", sender).Int("events", len(events)).Msg("request committed")
	return wrapperspb.String(market.RenderEvents(events)), nil
}
