package market

import (
	"strconv"

	"xdao.co/descimarket/identity"
)

// Request is one authenticated call against the market: a method name,
// ordered string arguments, the verified sender, and the optional payment
// grouped with the request.
//
// The surrounding gateway has already verified the sender's signature and is
// responsible for committing the declared payment (and the dispatch) as one
// atomic unit.
type Request struct {
	Method  string
	Args    []string
	Sender  identity.Address
	Payment *Payment
}

// Submit routes a request to the owning engine.
//
// Argument-count and argument-shape violations fail with InvalidArgument
// before any engine runs. The first precondition failure aborts the whole
// request; nothing is retried internally.
func (m *Market) Submit(req Request) ([]Event, error) {
	if req.Sender.IsZero() {
		return nil, newError(KindUnauthorized, "submit: missing sender identity")
	}
	// Only escrow creation consumes a grouped payment; a stray payment on any
	// other method is a mismatch, not money to silently swallow.
	if req.Payment != nil && req.Method != "create_escrow" {
		return nil, newError(KindPaymentMismatch, "submit: method does not accept a payment")
	}

	switch req.Method {
	case "create_escrow":
		if err := wantArgs(req, 3); err != nil {
			return nil, err
		}
		modelID, err := argUint64(req.Args[0], "model_id")
		if err != nil {
			return nil, err
		}
		publisher, err := argAddress(req.Args[1], "publisher")
		if err != nil {
			return nil, err
		}
		price, err := argUint64(req.Args[2], "price")
		if err != nil {
			return nil, err
		}
		_, events, err := m.CreateEscrow(req.Sender, modelID, publisher, price, req.Payment)
		return events, err

	case "release_payment":
		id, err := oneID(req)
		if err != nil {
			return nil, err
		}
		return m.ReleasePayment(req.Sender, id)

	case "refund_payment":
		id, err := oneID(req)
		if err != nil {
			return nil, err
		}
		return m.RefundPayment(req.Sender, id)

	case "get_escrow_status":
		id, err := oneID(req)
		if err != nil {
			return nil, err
		}
		return m.GetEscrowStatus(id)

	case "get_escrow_count":
		if err := wantArgs(req, 0); err != nil {
			return nil, err
		}
		return m.GetEscrowCount()

	case "publish_model":
		if err := wantArgs(req, 3); err != nil {
			return nil, err
		}
		publisher, err := argAddress(req.Args[1], "publisher")
		if err != nil {
			return nil, err
		}
		// The publisher argument names the record owner; publishing on
		// someone else's behalf is not a thing.
		if publisher != req.Sender {
			return nil, newError(KindUnauthorized, "publish_model: publisher argument does not match sender")
		}
		_, events, err := m.PublishModel(req.Sender, req.Args[0], req.Args[2])
		return events, err

	case "get_model":
		id, err := oneID(req)
		if err != nil {
			return nil, err
		}
		return m.GetModel(id)

	case "model_exists":
		id, err := oneID(req)
		if err != nil {
			return nil, err
		}
		return m.ModelExists(id)

	case "update_model":
		if err := wantArgs(req, 3); err != nil {
			return nil, err
		}
		id, err := argUint64(req.Args[0], "model_id")
		if err != nil {
			return nil, err
		}
		return m.UpdateModel(req.Sender, id, req.Args[1], req.Args[2])

	case "transfer_model":
		if err := wantArgs(req, 2); err != nil {
			return nil, err
		}
		id, err := argUint64(req.Args[0], "model_id")
		if err != nil {
			return nil, err
		}
		newPub, err := argAddress(req.Args[1], "new_publisher")
		if err != nil {
			return nil, err
		}
		return m.TransferModel(req.Sender, id, newPub)

	case "register":
		if err := wantArgs(req, 3); err != nil {
			return nil, err
		}
		price, err := argUint64(req.Args[2], "price")
		if err != nil {
			return nil, err
		}
		return m.RegisterName(req.Sender, req.Args[0], req.Args[1], price)

	case "resolve":
		if err := wantArgs(req, 1); err != nil {
			return nil, err
		}
		return m.ResolveName(req.Args[0])

	case "update":
		if err := wantArgs(req, 3); err != nil {
			return nil, err
		}
		price, err := argUint64(req.Args[2], "price")
		if err != nil {
			return nil, err
		}
		return m.UpdateName(req.Sender, req.Args[0], req.Args[1], price)

	case "transfer":
		if err := wantArgs(req, 2); err != nil {
			return nil, err
		}
		newOwner, err := argAddress(req.Args[1], "new_owner")
		if err != nil {
			return nil, err
		}
		return m.TransferName(req.Sender, req.Args[0], newOwner)

	case "delete":
		if err := wantArgs(req, 1); err != nil {
			return nil, err
		}
		return m.DeleteName(req.Sender, req.Args[0])

	case "exists":
		if err := wantArgs(req, 1); err != nil {
			return nil, err
		}
		return m.NameExists(req.Args[0])

	default:
		return nil, newError(KindInvalidArgument, "submit: unknown method "+strconv.Quote(req.Method))
	}
}

func wantArgs(req Request, n int) error {
	if len(req.Args) != n {
		return newError(KindInvalidArgument, req.Method+": wrong argument count")
	}
	return nil
}

func oneID(req Request) (uint64, error) {
	if err := wantArgs(req, 1); err != nil {
		return 0, err
	}
	return argUint64(req.Args[0], "id")
}

func argUint64(s, field string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, wrapError(KindInvalidArgument, "argument "+field+" is not a uint64", err)
	}
	return v, nil
}

func argAddress(s, field string) (identity.Address, error) {
	a, err := identity.Decode(s)
	if err != nil {
		return identity.Zero, wrapError(KindInvalidArgument, "argument "+field+" is not a well-formed address", err)
	}
	if a.IsZero() {
		return identity.Zero, newError(KindInvalidArgument, "argument "+field+" is the zero address")
	}
	return a, nil
}
