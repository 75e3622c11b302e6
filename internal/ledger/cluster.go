package ledger

import "strings"

// ExplorerCluster names the cluster an endpoint belongs to, as explorers and
// the Realms UI expect it in their cluster query parameter.
func ExplorerCluster(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "devnet"):
		return "devnet"
	case strings.Contains(endpoint, "mainnet-beta"):
		return "mainnet-beta"
	default:
		return "custom"
	}
}
