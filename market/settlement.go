package market

import "xdao.co/descimarket/identity"

// Settlement is the external authority that moves funds.
//
// Contract:
// - Transfer MUST either commit the full amount or reject with an error;
//   partial transfers do not exist.
// - A rejected Transfer aborts the enclosing request; the caller is
//   responsible for rolling back any record writes of the same request.
// - The engine only ever calls Transfer after the corresponding escrow record
//   has been flipped to a terminal status. That ordering is the reentrancy
//   guard: a nested call back into the engine observes the terminal status
//   and rejects instead of double-paying.
type Settlement interface {
	Transfer(from, to identity.Address, amount uint64) error
}

// Payment declares the inbound payment grouped with a request. The gateway
// commits it to custody in the same atomic unit as the dispatch; the engine
// validates that the declaration matches the operation's price exactly.
type Payment struct {
	Amount   uint64
	Receiver identity.Address
}
