package submit

import (
	"errors"
	"strings"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

const (
	msgTooManyProposals = "Too many proposals outstanding. Cancel some. CODE=0x23c"
	msgCannotEdit       = "Invalid state. Can't edit transactions in proposal. CODE=0x20b"
	msgUnknownPrefix    = "Unknown error. "
)

// Classify turns a submission failure into the message shown to the caller
// and the program logs that go with it.
func Classify(err error) (string, []string) {
	var txErr *ledger.TransactionError
	if !errors.As(err, &txErr) {
		return msgUnknownPrefix + err.Error(), nil
	}

	switch {
	case mentions(txErr, "0x20b"):
		return msgCannotEdit, txErr.Logs
	case mentions(txErr, "0x23c"):
		return msgTooManyProposals, txErr.Logs
	}

	var lines []string
	for _, l := range txErr.Logs {
		if strings.Contains(strings.ToLower(l), "error") {
			lines = append(lines, l)
		}
	}
	msg := msgUnknownPrefix + strings.Join(lines, " ")

	if pe, ok := worknet.LookupProgramError(txErr.Message); ok {
		msg += " (" + pe.Name + ": " + pe.Message + ")"
	}
	return msg, txErr.Logs
}

// mentions reports whether the error message or any program log line carries
// the error code.
func mentions(txErr *ledger.TransactionError, code string) bool {
	if strings.Contains(txErr.Message, code) {
		return true
	}
	for _, l := range txErr.Logs {
		if strings.Contains(l, "custom program error: "+code) {
			return true
		}
	}
	return false
}
