package settlement

import "xdao.co/descimarket/identity"

// Faucet wraps a Bank and grants each debtor a one-time starting balance the
// first time it pays. Demo and development deployments use it so freshly
// generated accounts can buy; production gateways pass the Bank directly.
type Faucet struct {
	Bank  *Bank
	Grant uint64

	seen map[identity.Address]bool
}

func (f *Faucet) Transfer(from, to identity.Address, amount uint64) error {
	if f.seen == nil {
		f.seen = make(map[identity.Address]bool)
	}
	if f.Grant > 0 && !f.seen[from] {
		f.seen[from] = true
		if err := f.Bank.Mint(from, f.Grant); err != nil {
			return err
		}
	}
	return f.Bank.Transfer(from, to, amount)
}

func (f *Faucet) Balance(a identity.Address) uint64 { return f.Bank.Balance(a) }
