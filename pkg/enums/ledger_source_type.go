package enums

import "fmt"

// LedgerSourceType maps to the ledger_source_type_enum enum in Postgres.
type LedgerSourceType string

const (
	LedgerSourcePurchase     LedgerSourceType = "purchase"
	LedgerSourceDeposit      LedgerSourceType = "deposit"
	LedgerSourceRedeem       LedgerSourceType = "redeem"
	LedgerSourceRedeemRefund LedgerSourceType = "redeem_refund"
)

var validLedgerSourceTypes = []LedgerSourceType{
	LedgerSourcePurchase,
	LedgerSourceDeposit,
	LedgerSourceRedeem,
	LedgerSourceRedeemRefund,
}

// IsValid reports whether the value matches the canonical source type enum.
func (t LedgerSourceType) IsValid() bool {
	for _, candidate := range validLedgerSourceTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether entries of this source type add grams.
func (t LedgerSourceType) IsCredit() bool {
	return t == LedgerSourcePurchase || t == LedgerSourceDeposit || t == LedgerSourceRedeemRefund
}

// ParseLedgerSourceType converts raw input into LedgerSourceType.
func ParseLedgerSourceType(value string) (LedgerSourceType, error) {
	for _, candidate := range validLedgerSourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source type %q", value)
}
