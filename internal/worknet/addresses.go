package worknet

import (
	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/derive"
)

// Seed suffixes used by the program.
const (
	seedWorkGroup        = "work_group"
	seedLicenseTokens    = "license_tokens"
	seedSpec             = "spec"
	seedDeployment       = "deployment"
	seedDeploymentMint   = "deployment_mint"
	seedDeploymentTokens = "deployment_tokens"
	seedDeviceTokens     = "device_tokens"
)

// PDAs derives the addresses of worknet accounts.
type PDAs struct {
	Program solana.PublicKey
}

// WorkGroup derives the group address from its identifier.
func (p PDAs) WorkGroup(identifier string) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Str(identifier), derive.Str(seedWorkGroup))
}

// LicenseTokens derives the group's license token account.
func (p PDAs) LicenseTokens(group solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(group), derive.Str(seedLicenseTokens))
}

// Spec derives a spec address. Specs are keyed by name only, so two specs
// with the same name in one group share an address.
func (p PDAs) Spec(group solana.PublicKey, name string) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(group), derive.Str(name), derive.Str(seedSpec))
}

// Deployment derives a deployment address.
func (p PDAs) Deployment(group solana.PublicKey, name string) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(group), derive.Str(name), derive.Str(seedDeployment))
}

// DeploymentMint derives the replica token mint of a deployment.
func (p PDAs) DeploymentMint(deployment solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(deployment), derive.Str(seedDeploymentMint))
}

// DeploymentTokens derives the token account holding unscheduled replicas.
func (p PDAs) DeploymentTokens(deployment solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(deployment), derive.Str(seedDeploymentTokens))
}

// Device derives a device address from the device's own key.
func (p PDAs) Device(deviceAuthority solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(deviceAuthority))
}

// DeviceTokens derives the token account holding replicas scheduled on a
// device.
func (p PDAs) DeviceTokens(deviceAuthority, deployment solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Key(deviceAuthority), derive.Key(deployment), derive.Str(seedDeviceTokens))
}
