package tx

import (
	"bytes"
	"sort"

	"github.com/arcledger/arcd/internal/core/book"
	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/log"
)

// LedgerView is the mutable state a transaction applies against. The ledger
// package provides the implementation backed by the account state tree.
type LedgerView interface {
	Read(key [32]byte) ([]byte, bool)
	Write(key [32]byte, data []byte) error
	Erase(key [32]byte) error
	Sequence() uint32
}

// ApplyFlags modify engine behavior for one application.
type ApplyFlags uint32

const (
	// ApplyOpenLedger marks a provisional application to the open ledger:
	// conditions that may clear once the state moves (missing account,
	// future sequence, short balance for the fee) come back as retriable
	// ter results so the caller can hold the transaction and try again.
	// Without the flag the application is final and the same conditions are
	// hard failures.
	ApplyOpenLedger ApplyFlags = 1 << iota

	// ApplyNoCheckSign skips signature verification. Used when replaying
	// transactions that were verified on first application.
	ApplyNoCheckSign
)

// Fallback fee schedule when the state has no fee settings entry.
const (
	defaultBaseFee     uint64 = 10
	defaultReserveBase uint64 = 20_000_000
)

// Engine validates transactions and applies their effects to a ledger view.
// Not safe for concurrent use; the closer drives one engine per close.
type Engine struct {
	view    LedgerView
	touched map[[32]byte]struct{}
}

// NewEngine creates an engine over the given view.
func NewEngine(view LedgerView) *Engine {
	return &Engine{view: view}
}

// Apply runs one transaction against the view. The view changes only when
// the returned result satisfies IsApplied: success and claimed-fee failures
// charge the fee, advance the account sequence and stamp the affecting
// transaction; every other result leaves the view untouched.
func (e *Engine) Apply(t *Transaction, txID [32]byte, flags ApplyFlags) (Result, *Metadata) {
	e.touched = make(map[[32]byte]struct{})

	result := e.preflight(t)
	if result == TesSUCCESS && flags&ApplyNoCheckSign == 0 {
		result = t.CheckSign()
	}

	var delivered sle.Amount
	if result == TesSUCCESS {
		result, delivered = e.applyChecked(t, txID, flags)
	}

	log.Debug("transaction applied",
		"txid", txID[:4], "type", t.Type.String(),
		"result", result.String(), "applied", result.IsApplied())

	if !result.IsApplied() {
		return result, nil
	}
	meta := &Metadata{TransactionResult: result}
	if result.IsSuccess() && t.Type == TypePayment {
		meta.DeliveredAmount = delivered
	}
	for key := range e.touched {
		meta.AffectedKeys = append(meta.AffectedKeys, key)
	}
	// Metadata is hashed into the transaction tree, so the key order must
	// not depend on map iteration.
	sort.Slice(meta.AffectedKeys, func(i, j int) bool {
		return bytes.Compare(meta.AffectedKeys[i][:], meta.AffectedKeys[j][:]) < 0
	})
	return result, meta
}

// preflight runs the stateless checks: anything that can never succeed no
// matter the ledger contents.
func (e *Engine) preflight(t *Transaction) Result {
	if t.Account == (crypto.AccountID{}) {
		return TemINVALID
	}
	if t.Fee == 0 {
		return TemBAD_FEE
	}
	switch t.Type {
	case TypePayment:
		if t.Destination == (crypto.AccountID{}) {
			return TemDST_NEEDED
		}
		// There are no paths, so paying yourself can never do anything.
		if t.Destination == t.Account {
			return TemREDUNDANT
		}
		if t.Amount.IsZero() || t.Amount.IsNegative() {
			return TemBAD_AMOUNT
		}
	case TypeTrustSet:
		if t.LimitAmount.Native {
			return TemBAD_LIMIT
		}
		if t.LimitAmount.IsNegative() {
			return TemBAD_LIMIT
		}
		if t.LimitAmount.Issuer == t.Account {
			return TemDST_IS_SRC
		}
	case TypeAccountSet:
		if t.SetFlag != 0 && t.SetFlag == t.ClearFlag {
			return TemINVALID_FLAG
		}
	case TypeOfferCreate:
		if t.TakerPays.IsZero() || t.TakerPays.IsNegative() ||
			t.TakerGets.IsZero() || t.TakerGets.IsNegative() {
			return TemBAD_OFFER
		}
		if t.TakerPays.SameAsset(t.TakerGets) {
			return TemBAD_OFFER
		}
	case TypeOfferCancel:
		if t.OfferSequence == 0 || t.OfferSequence >= t.Sequence {
			return TemBAD_OFFER
		}
	default:
		return TemMALFORMED
	}
	return TesSUCCESS
}

// applyChecked runs the stateful checks and, when they pass, the
// transaction's effects. It owns the source account root: any applied
// outcome charges the fee and advances the sequence.
func (e *Engine) applyChecked(t *Transaction, txID [32]byte, flags ApplyFlags) (Result, sle.Amount) {
	acctKey := keylet.Account(t.Account)
	acct, ok := e.readAccount(acctKey.Key)
	if !ok {
		return retriable(TerNO_ACCOUNT, flags), sle.Amount{}
	}

	if t.Sequence < acct.Sequence {
		return TefPAST_SEQ, sle.Amount{}
	}
	if t.Sequence > acct.Sequence {
		return retriable(TerPRE_SEQ, flags), sle.Amount{}
	}
	if acct.Balance < t.Fee {
		return retriable(TerINSUF_FEE_B, flags), sle.Amount{}
	}

	// Fee comes off before the operation sees the balance.
	acct.Balance -= t.Fee

	result, delivered := e.doApply(t, acct)
	if !result.IsApplied() {
		return result, sle.Amount{}
	}

	acct.Sequence++
	acct.PreviousTxnID = txID
	acct.PreviousTxnLgrSeq = e.view.Sequence()
	if err := e.writeAccount(acctKey.Key, acct); err != nil {
		return TefFAILURE, sle.Amount{}
	}
	return result, delivered
}

// retriable downgrades a retry code to a hard failure when the application
// is final: without an open ledger there is no later attempt the condition
// could clear for.
func retriable(code Result, flags ApplyFlags) Result {
	if flags&ApplyOpenLedger != 0 {
		return code
	}
	return TefFAILURE
}

func (e *Engine) doApply(t *Transaction, acct *sle.AccountRoot) (Result, sle.Amount) {
	switch t.Type {
	case TypePayment:
		return e.applyPayment(t, acct)
	case TypeTrustSet:
		return e.applyTrustSet(t, acct), sle.Amount{}
	case TypeAccountSet:
		return e.applyAccountSet(t, acct), sle.Amount{}
	case TypeOfferCreate:
		return e.applyOfferCreate(t, acct), sle.Amount{}
	case TypeOfferCancel:
		return e.applyOfferCancel(t, acct), sle.Amount{}
	default:
		return TemMALFORMED, sle.Amount{}
	}
}

func (e *Engine) applyPayment(t *Transaction, acct *sle.AccountRoot) (Result, sle.Amount) {
	if t.Amount.Native {
		return e.applyNativePayment(t, acct)
	}
	return e.applyIssuedPayment(t, acct)
}

func (e *Engine) applyNativePayment(t *Transaction, acct *sle.AccountRoot) (Result, sle.Amount) {
	if acct.Balance < t.Amount.Drops {
		return TecUNFUNDED_PAYMENT, sle.Amount{}
	}

	dstKey := keylet.Account(t.Destination)
	dst, ok := e.readAccount(dstKey.Key)
	if !ok {
		// Funding a new account requires at least the base reserve.
		if t.Amount.Drops < e.reserveBase() {
			return TecNO_DST_INSUF_XRP, sle.Amount{}
		}
		dst = &sle.AccountRoot{Account: t.Destination, Sequence: 1}
	}

	acct.Balance -= t.Amount.Drops
	dst.Balance += t.Amount.Drops
	if err := e.writeAccount(dstKey.Key, dst); err != nil {
		return TefFAILURE, sle.Amount{}
	}
	return TesSUCCESS, t.Amount
}

func (e *Engine) applyIssuedPayment(t *Transaction, acct *sle.AccountRoot) (Result, sle.Amount) {
	issuer := t.Amount.Issuer

	issuerAcct, ok := e.readAccount(keylet.Account(issuer).Key)
	if !ok {
		return TecNO_ISSUER, sle.Amount{}
	}
	if issuerAcct.GlobalFreeze() && t.Account != issuer && t.Destination != issuer {
		return TecFROZEN, sle.Amount{}
	}

	if _, ok := e.readAccount(keylet.Account(t.Destination).Key); !ok {
		return TecNO_DST, sle.Amount{}
	}

	// Redeem leg: the sender gives up holdings on their line with the
	// issuer. Skipped when the sender is the issuer.
	if t.Account != issuer {
		lineKey := keylet.Line(t.Account, issuer, t.Amount.Currency)
		line, ok := e.readLine(lineKey.Key)
		if !ok || line.BalanceFor(t.Account) < t.Amount.Value {
			return TecPATH_DRY, sle.Amount{}
		}
	}
	// Credit leg: the destination must already trust the issuer, unless
	// the destination is the issuer redeeming their own obligation.
	if t.Destination != issuer {
		lineKey := keylet.Line(t.Destination, issuer, t.Amount.Currency)
		if _, ok := e.readLine(lineKey.Key); !ok {
			return TecPATH_DRY, sle.Amount{}
		}
	}

	// All checks passed. Both legs are encoded before either lands so a
	// failure cannot leave the transfer half applied.
	type lineWrite struct {
		key  [32]byte
		blob []byte
	}
	var writes []lineWrite
	if t.Account != issuer {
		lineKey := keylet.Line(t.Account, issuer, t.Amount.Currency)
		line, _ := e.readLine(lineKey.Key)
		line.Credit(t.Account, -t.Amount.Value)
		blob, err := line.Encode()
		if err != nil {
			return TefFAILURE, sle.Amount{}
		}
		writes = append(writes, lineWrite{lineKey.Key, blob})
	}
	if t.Destination != issuer {
		lineKey := keylet.Line(t.Destination, issuer, t.Amount.Currency)
		line, _ := e.readLine(lineKey.Key)
		line.Credit(t.Destination, t.Amount.Value)
		blob, err := line.Encode()
		if err != nil {
			return TefFAILURE, sle.Amount{}
		}
		writes = append(writes, lineWrite{lineKey.Key, blob})
	}
	for _, lw := range writes {
		if err := e.write(lw.key, lw.blob); err != nil {
			return TefFAILURE, sle.Amount{}
		}
	}
	return TesSUCCESS, t.Amount
}

func (e *Engine) applyTrustSet(t *Transaction, acct *sle.AccountRoot) Result {
	issuer := t.LimitAmount.Issuer
	if _, ok := e.readAccount(keylet.Account(issuer).Key); !ok {
		return TecNO_ISSUER
	}

	lineKey := keylet.Line(t.Account, issuer, t.LimitAmount.Currency)
	line, ok := e.readLine(lineKey.Key)
	if !ok {
		if t.LimitAmount.IsZero() {
			return TesSUCCESS
		}
		line = sle.NewRippleState(t.Account, issuer, t.LimitAmount.Currency)
		acct.OwnerCount++
	}
	line.SetLimit(t.Account, t.LimitAmount.Value)

	// A fully zeroed line is removed rather than stored.
	if line.Balance == 0 && line.LowLimit == 0 && line.HighLimit == 0 {
		if ok {
			if err := e.erase(lineKey.Key); err != nil {
				return TefFAILURE
			}
			if acct.OwnerCount > 0 {
				acct.OwnerCount--
			}
		}
		return TesSUCCESS
	}
	if err := e.writeLine(lineKey.Key, line); err != nil {
		return TefFAILURE
	}
	return TesSUCCESS
}

func (e *Engine) applyAccountSet(t *Transaction, acct *sle.AccountRoot) Result {
	switch t.SetFlag {
	case 0:
	case sle.AccountSetFlagGlobalFreeze:
		acct.Flags |= sle.FlagGlobalFreeze
	case sle.AccountSetFlagDefaultRipple:
		acct.Flags |= sle.FlagDefaultRipple
	default:
		return TemINVALID_FLAG
	}
	switch t.ClearFlag {
	case 0:
	case sle.AccountSetFlagGlobalFreeze:
		acct.Flags &^= sle.FlagGlobalFreeze
	case sle.AccountSetFlagDefaultRipple:
		acct.Flags &^= sle.FlagDefaultRipple
	default:
		return TemINVALID_FLAG
	}
	return TesSUCCESS
}

func (e *Engine) applyOfferCreate(t *Transaction, acct *sle.AccountRoot) Result {
	rate, err := book.Rate(t.TakerPays, t.TakerGets)
	if err != nil {
		return TemBAD_OFFER
	}

	// The owner must hold what they offer.
	if t.TakerGets.Native {
		if acct.Balance < t.TakerGets.Drops {
			return TecUNFUNDED_OFFER
		}
	} else {
		lineKey := keylet.Line(t.Account, t.TakerGets.Issuer, t.TakerGets.Currency)
		line, ok := e.readLine(lineKey.Key)
		if t.Account != t.TakerGets.Issuer &&
			(!ok || line.BalanceFor(t.Account) < t.TakerGets.Value) {
			return TecUNFUNDED_OFFER
		}
	}

	base := keylet.BookBase(
		t.TakerPays.Currency, t.TakerPays.Issuer,
		t.TakerGets.Currency, t.TakerGets.Issuer)

	offer := &sle.Offer{
		Account:       t.Account,
		Sequence:      t.Sequence,
		TakerPays:     t.TakerPays,
		TakerGets:     t.TakerGets,
		BookDirectory: book.DirIndex(base.Key, rate),
	}
	blob, err := offer.Encode()
	if err != nil {
		return TefFAILURE
	}
	offerKey := keylet.Offer(t.Account, t.Sequence)
	if err := e.write(offerKey.Key, blob); err != nil {
		return TefFAILURE
	}
	acct.OwnerCount++
	return TesSUCCESS
}

func (e *Engine) applyOfferCancel(t *Transaction, acct *sle.AccountRoot) Result {
	offerKey := keylet.Offer(t.Account, t.OfferSequence)
	if _, ok := e.view.Read(offerKey.Key); !ok {
		// Cancelling an offer that no longer exists still succeeds.
		return TesSUCCESS
	}
	if err := e.erase(offerKey.Key); err != nil {
		return TefFAILURE
	}
	if acct.OwnerCount > 0 {
		acct.OwnerCount--
	}
	return TesSUCCESS
}

// reserveBase reads the base reserve from the fee settings entry, falling
// back to the default schedule.
func (e *Engine) reserveBase() uint64 {
	data, ok := e.view.Read(keylet.Fees().Key)
	if !ok {
		return defaultReserveBase
	}
	fees, err := sle.DecodeFeeSettings(data)
	if err != nil {
		return defaultReserveBase
	}
	return fees.ReserveBase
}

func (e *Engine) readAccount(key [32]byte) (*sle.AccountRoot, bool) {
	data, ok := e.view.Read(key)
	if !ok {
		return nil, false
	}
	acct, err := sle.DecodeAccountRoot(data)
	if err != nil {
		return nil, false
	}
	return acct, true
}

func (e *Engine) writeAccount(key [32]byte, acct *sle.AccountRoot) error {
	blob, err := acct.Encode()
	if err != nil {
		return err
	}
	return e.write(key, blob)
}

func (e *Engine) readLine(key [32]byte) (*sle.RippleState, bool) {
	data, ok := e.view.Read(key)
	if !ok {
		return nil, false
	}
	line, err := sle.DecodeRippleState(data)
	if err != nil {
		return nil, false
	}
	return line, true
}

func (e *Engine) writeLine(key [32]byte, line *sle.RippleState) error {
	blob, err := line.Encode()
	if err != nil {
		return err
	}
	return e.write(key, blob)
}

func (e *Engine) write(key [32]byte, data []byte) error {
	e.touched[key] = struct{}{}
	return e.view.Write(key, data)
}

func (e *Engine) erase(key [32]byte) error {
	e.touched[key] = struct{}{}
	return e.view.Erase(key)
}
