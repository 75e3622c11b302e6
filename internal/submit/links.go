package submit

import (
	"net/url"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// ExplorerURL links a landed transaction on solscan, pointed at the RPC
// endpoint it was sent to.
func ExplorerURL(endpoint string, sig solana.Signature) string {
	return "https://solscan.io/tx/" + sig.String() + "?cluster=custom&customUrl=" + url.QueryEscape(endpoint)
}

// InspectorURL links the explorer's transaction inspector, which re-runs the
// simulation of the message.
func InspectorURL(endpoint string, tx *solana.Transaction) string {
	return "https://explorer.solana.com/tx/inspector?cluster=" + ledger.ExplorerCluster(endpoint) +
		"&message=" + url.QueryEscape(tx.Message.ToBase64())
}
