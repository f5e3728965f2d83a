package tx

// Result is a transaction engine result code. Codes are grouped by numeric
// range: tes (success), tec (failed but fee claimed), ter (retry this
// close), tef (failed, cannot succeed against this ledger), tem (malformed,
// can never succeed).
type Result int

const (
	// tesSUCCESS (0-99)
	TesSUCCESS Result = 0

	// tec: failure applied to the ledger, fee claimed (100-255)
	TecCLAIM               Result = 100
	TecUNFUNDED_OFFER      Result = 103
	TecUNFUNDED_PAYMENT    Result = 104
	TecINSUF_RESERVE_OFFER Result = 123
	TecNO_DST              Result = 124
	TecNO_DST_INSUF_XRP    Result = 125
	TecPATH_DRY            Result = 128
	TecNO_ISSUER           Result = 133
	TecNO_LINE             Result = 135
	TecFROZEN              Result = 137

	// tef: failure, not applied, final against this ledger (-199 to -100)
	TefFAILURE  Result = -199
	TefALREADY  Result = -198
	TefBAD_AUTH Result = -196
	TefPAST_SEQ Result = -190

	// tem: malformed, can never succeed (-299 to -200)
	TemMALFORMED     Result = -299
	TemBAD_AMOUNT    Result = -298
	TemBAD_FEE       Result = -295
	TemBAD_LIMIT     Result = -293
	TemBAD_OFFER     Result = -292
	TemBAD_SIGNATURE Result = -282
	TemDST_IS_SRC    Result = -279
	TemDST_NEEDED    Result = -278
	TemINVALID       Result = -277
	TemINVALID_FLAG  Result = -276
	TemREDUNDANT     Result = -275

	// ter: not applicable yet, retry within this close (-99 to -1)
	TerRETRY       Result = -99
	TerINSUF_FEE_B Result = -97
	TerNO_ACCOUNT  Result = -96
	TerPRE_SEQ     Result = -92
)

// IsSuccess reports a tes code.
func (r Result) IsSuccess() bool {
	return r >= 0 && r < 100
}

// IsTecClaim reports a tec code: the transaction failed but the failure is
// recorded in the ledger and the fee is claimed.
func (r Result) IsTecClaim() bool {
	return r >= 100 && r < 256
}

// IsRetry reports a ter code: the transaction may succeed later in the same
// close once other transactions have applied.
func (r Result) IsRetry() bool {
	return r >= -99 && r < 0
}

// IsFailure reports a tef code.
func (r Result) IsFailure() bool {
	return r >= -199 && r < -100
}

// IsMalformed reports a tem code.
func (r Result) IsMalformed() bool {
	return r >= -299 && r < -200
}

// IsApplied reports whether the transaction changed the ledger: success, or
// a claimed-fee failure.
func (r Result) IsApplied() bool {
	return r.IsSuccess() || r.IsTecClaim()
}

// String returns the canonical name of the result code.
func (r Result) String() string {
	switch r {
	case TesSUCCESS:
		return "tesSUCCESS"
	case TecCLAIM:
		return "tecCLAIM"
	case TecUNFUNDED_OFFER:
		return "tecUNFUNDED_OFFER"
	case TecUNFUNDED_PAYMENT:
		return "tecUNFUNDED_PAYMENT"
	case TecINSUF_RESERVE_OFFER:
		return "tecINSUF_RESERVE_OFFER"
	case TecNO_DST:
		return "tecNO_DST"
	case TecNO_DST_INSUF_XRP:
		return "tecNO_DST_INSUF_XRP"
	case TecPATH_DRY:
		return "tecPATH_DRY"
	case TecNO_ISSUER:
		return "tecNO_ISSUER"
	case TecNO_LINE:
		return "tecNO_LINE"
	case TecFROZEN:
		return "tecFROZEN"
	case TefFAILURE:
		return "tefFAILURE"
	case TefALREADY:
		return "tefALREADY"
	case TefBAD_AUTH:
		return "tefBAD_AUTH"
	case TefPAST_SEQ:
		return "tefPAST_SEQ"
	case TemMALFORMED:
		return "temMALFORMED"
	case TemBAD_AMOUNT:
		return "temBAD_AMOUNT"
	case TemBAD_FEE:
		return "temBAD_FEE"
	case TemBAD_LIMIT:
		return "temBAD_LIMIT"
	case TemBAD_OFFER:
		return "temBAD_OFFER"
	case TemBAD_SIGNATURE:
		return "temBAD_SIGNATURE"
	case TemDST_IS_SRC:
		return "temDST_IS_SRC"
	case TemDST_NEEDED:
		return "temDST_NEEDED"
	case TemINVALID:
		return "temINVALID"
	case TemINVALID_FLAG:
		return "temINVALID_FLAG"
	case TemREDUNDANT:
		return "temREDUNDANT"
	case TerRETRY:
		return "terRETRY"
	case TerINSUF_FEE_B:
		return "terINSUF_FEE_B"
	case TerNO_ACCOUNT:
		return "terNO_ACCOUNT"
	case TerPRE_SEQ:
		return "terPRE_SEQ"
	default:
		return "unknown"
	}
}
