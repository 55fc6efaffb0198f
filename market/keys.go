package market

import "xdao.co/descimarket/ledger"

// Field prefixes. Every record is addressed by (prefix, identity); entity
// kinds get distinct tags so they can share one store.
const (
	// Escrow fields, keyed by the 8-byte big-endian escrow ID.
	prefEscrowModel    ledger.Prefix = "esc_model_"
	prefEscrowBuyer    ledger.Prefix = "esc_buyer_"
	prefEscrowPub      ledger.Prefix = "esc_pub_"
	prefEscrowAmount   ledger.Prefix = "esc_amt_"
	prefEscrowStatus   ledger.Prefix = "esc_status_"
	prefEscrowCreated  ledger.Prefix = "esc_created_"
	prefEscrowReleased ledger.Prefix = "esc_released_"
	prefEscrowRefunded ledger.Prefix = "esc_refunded_"

	// Model fields, keyed by the 8-byte big-endian model ID.
	prefModelCID     ledger.Prefix = "mdl_cid_"
	prefModelPub     ledger.Prefix = "mdl_pub_"
	prefModelLicense ledger.Prefix = "mdl_lic_"
	prefModelCreated ledger.Prefix = "mdl_created_"
	prefModelUpdated ledger.Prefix = "mdl_updated_"

	// Name fields, keyed by the name bytes.
	prefNameOwner   ledger.Prefix = "nam_owner_"
	prefNameCID     ledger.Prefix = "nam_cid_"
	prefNamePrice   ledger.Prefix = "nam_price_"
	prefNameCreated ledger.Prefix = "nam_created_"
	prefNameUpdated ledger.Prefix = "nam_updated_"

	// Counters, keyed by nil.
	prefEscrowCount ledger.Prefix = "escrow_count"
	prefModelCount  ledger.Prefix = "model_count"
	prefFeeAccrued  ledger.Prefix = "fee_accrued"
)
